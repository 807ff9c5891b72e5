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

func newGameRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func gameRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "slug", "title", "release_date", "developer", "publisher", "genre", "status",
		"activation_type", "server_status", "cover_url", "download_url", "notes", "published",
		"published_at", "published_by", "created_at", "updated_at",
	})
}

func TestGameRepositoryFindBySlug(t *testing.T) {
	db, mock, cleanup := newGameRepoMock(t)
	defer cleanup()

	repo := NewGameRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM games WHERE slug = $1")).
		WithArgs("lost-planet").
		WillReturnRows(gameRows().
			AddRow("game-1", "lost-planet", "Lost Planet", "2008-06-26", "Capcom", "Capcom",
				"Action", "PLAYABLE", "SSA", nil, nil, nil, nil, true, time.Now(), "admin-1",
				time.Now(), time.Now()))

	game, err := repo.FindBySlug(context.Background(), "lost-planet")
	require.NoError(t, err)
	require.Equal(t, "game-1", game.ID)
	require.True(t, game.Published)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepositoryPublishGuard(t *testing.T) {
	db, mock, cleanup := newGameRepoMock(t)
	defer cleanup()

	repo := NewGameRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND published = FALSE")).
		WithArgs("game-1", now, "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Publish(context.Background(), "game-1", "admin-1", now))

	// second publish hits zero rows
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND published = FALSE")).
		WithArgs("game-1", now, "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Publish(context.Background(), "game-1", "admin-1", now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepositoryListPublishedOnly(t *testing.T) {
	db, mock, cleanup := newGameRepoMock(t)
	defer cleanup()

	repo := NewGameRepository(db)
	published := true
	mock.ExpectQuery(regexp.QuoteMeta("FROM games WHERE 1=1 AND published = $1")).
		WithArgs(published).
		WillReturnRows(gameRows().
			AddRow("game-1", "lost-planet", "Lost Planet", nil, nil, nil, nil, nil, nil, nil,
				nil, nil, nil, true, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM games WHERE 1=1 AND published = $1")).
		WithArgs(published).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	games, total, err := repo.List(context.Background(), models.GameFilter{Published: &published})
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
