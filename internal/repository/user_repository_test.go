package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "display_name", "avatar_url", "provider", "provider_id", "role", "status",
		"submissions_count", "approved_count", "rejected_count", "last_login", "created_at", "updated_at",
	})
}

func TestUserRepositoryFindByProvider(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE provider = $1 AND provider_id = $2")).
		WithArgs("discord", "123456").
		WillReturnRows(userRows().
			AddRow("user-1", "ann@example.com", "Ann", "", "discord", "123456", "USER", "ACTIVE",
				3, 2, 0, nil, time.Now(), time.Now()))

	user, err := repo.FindByProvider(context.Background(), "discord", "123456")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, models.RoleUser, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE provider = $1 AND provider_id = $2")).
		WithArgs("discord", "missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByProvider(context.Background(), "discord", "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryCreateDefaultsID(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Email:       "ann@example.com",
		DisplayName: "Ann",
		Provider:    "discord",
		ProviderID:  "123456",
		Role:        models.RoleUser,
		Status:      models.StatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)
	require.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	role := models.RoleReviewer
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE 1=1 AND role = $1")).
		WithArgs(role).
		WillReturnRows(userRows().
			AddRow("rev-1", "rex@example.com", "Rex", "", "google", "9", "REVIEWER", "ACTIVE",
				0, 0, 0, nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND role = $1")).
		WithArgs(role).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteScrubsIdentity(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, email = CONCAT('deleted-', id, '@invalid')")).
		WithArgs("user-1", models.StatusDeleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokenLifecycle(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{
		UserID:    "user-1",
		Token:     "opaque",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	require.NotEmpty(t, token.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1")).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryModerationActions(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO moderation_actions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	action := &models.ModerationAction{
		UserID:    "user-1",
		ActorID:   "admin-1",
		ActorName: "Root",
		Action:    models.ModerationStatusChange,
		OldValue:  "ACTIVE",
		NewValue:  "SUSPENDED",
	}
	require.NoError(t, repo.CreateModerationAction(context.Background(), action))
	require.NotEmpty(t, action.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM moderation_actions WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "actor_id", "actor_name", "action", "old_value", "new_value", "reason", "created_at"}).
			AddRow(action.ID, "user-1", "admin-1", "Root", "STATUS_CHANGE", "ACTIVE", "SUSPENDED", nil, time.Now()))

	history, err := repo.ListModerationActions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
