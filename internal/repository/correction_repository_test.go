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

func newCorrectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func correctionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "game_id", "game_slug", "game_title", "submitter_id", "submitter_name", "field",
		"old_value", "new_value", "reason", "status", "reviewed_by", "reviewer_name", "reviewed_at",
		"review_notes", "final_value", "message_ids", "submitted_at",
	})
}

func TestCorrectionRepositorySubmitFreshBatch(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	value := "Capcom"

	mock.ExpectBegin()
	// no pending anchor in the window
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrections")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET submissions_count = submissions_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at ASC")).
		WillReturnRows(correctionRows().
			AddRow("cor-1", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "developer",
				nil, value, "publisher listed as developer", "PENDING", nil, nil, nil,
				nil, nil, nil, time.Now()))
	mock.ExpectCommit()

	result, err := repo.Submit(context.Background(), &models.Correction{
		GameID:        "game-1",
		GameSlug:      "lost-planet",
		GameTitle:     "Lost Planet",
		SubmitterID:   "user-1",
		SubmitterName: "Ann",
		Field:         models.FieldDeveloper,
		NewValue:      &value,
		Reason:        "publisher listed as developer",
	}, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, models.CorrectionStatusPending, result.Created.Status)
	require.NotEmpty(t, result.Created.ID)
	require.Empty(t, result.AnchorMessageIDs)
	require.Zero(t, result.SupersededCount)
	require.Len(t, result.Batch, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositorySubmitSupersedesSameField(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	oldValue := "Capcpm"
	newValue := "Capcom"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(correctionRows().
			AddRow("cor-1", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "developer",
				nil, oldValue, "typo", "PENDING", nil, nil, nil,
				nil, nil, "{msg-1}", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE corrections")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrections")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET submissions_count = submissions_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at ASC")).
		WillReturnRows(correctionRows().
			AddRow("cor-2", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "developer",
				nil, newValue, "fixed typo", "PENDING", nil, nil, nil,
				nil, nil, nil, time.Now()))
	mock.ExpectCommit()

	result, err := repo.Submit(context.Background(), &models.Correction{
		GameID:        "game-1",
		GameSlug:      "lost-planet",
		GameTitle:     "Lost Planet",
		SubmitterID:   "user-1",
		SubmitterName: "Ann",
		Field:         models.FieldDeveloper,
		NewValue:      &newValue,
		Reason:        "fixed typo",
	}, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, result.SupersededCount)
	require.Equal(t, []string{"msg-1"}, result.AnchorMessageIDs)
	require.Len(t, result.Batch, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositorySubmitDifferentFieldMerges(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	genre := "Action"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(correctionRows().
			AddRow("cor-1", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "developer",
				nil, "Capcom", "typo", "PENDING", nil, nil, nil,
				nil, nil, "{msg-1}", time.Now()))
	// different field, so no supersede statement
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrections")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET submissions_count = submissions_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at ASC")).
		WillReturnRows(correctionRows().
			AddRow("cor-1", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "developer",
				nil, "Capcom", "typo", "PENDING", nil, nil, nil, nil, nil, "{msg-1}", time.Now()).
			AddRow("cor-2", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "genre",
				nil, genre, "missing genre", "PENDING", nil, nil, nil, nil, nil, nil, time.Now()))
	mock.ExpectCommit()

	result, err := repo.Submit(context.Background(), &models.Correction{
		GameID:        "game-1",
		GameSlug:      "lost-planet",
		GameTitle:     "Lost Planet",
		SubmitterID:   "user-1",
		SubmitterName: "Ann",
		Field:         models.FieldGenre,
		NewValue:      &genre,
		Reason:        "missing genre",
	}, 10*time.Minute)
	require.NoError(t, err)
	require.Zero(t, result.SupersededCount)
	require.Equal(t, []string{"msg-1"}, result.AnchorMessageIDs)
	require.Len(t, result.Batch, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryReviewAppliesAtomically(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	now := time.Now()
	value := "Capcom"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE corrections")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE games SET developer =")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET approved_count = approved_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reviewerID := "rev-1"
	err := repo.Review(context.Background(), ReviewParams{
		ID:           "cor-1",
		Status:       models.CorrectionStatusApproved,
		ReviewerID:   reviewerID,
		ReviewerName: "Rex",
		ReviewedAt:   now,
		SubmitterID:  "user-1",
		Apply:        true,
		GameID:       "game-1",
		Field:        models.FieldDeveloper,
		AppliedValue: &value,
		Audit: &models.AuditLog{
			UserID:   &reviewerID,
			Action:   models.AuditActionCorrectionApply,
			Resource: "corrections",
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryReviewAlreadyReviewed(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE corrections")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Review(context.Background(), ReviewParams{
		ID:          "cor-1",
		Status:      models.CorrectionStatusRejected,
		ReviewerID:  "rev-1",
		ReviewedAt:  time.Now(),
		SubmitterID: "user-1",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, game_id, game_slug")).
		WithArgs("PENDING", "user-1").
		WillReturnRows(correctionRows().
			AddRow("cor-1", "game-1", "lost-planet", "Lost Planet", "user-1", "Ann", "developer",
				nil, "Capcom", "typo", "PENDING", nil, nil, nil, nil, nil, nil, time.Now()))

	list, err := repo.List(context.Background(), models.CorrectionFilter{
		Status:      []models.CorrectionStatus{models.CorrectionStatusPending},
		SubmitterID: "user-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "cor-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryUpdateMessageIDs(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE corrections SET message_ids")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpdateMessageIDs(context.Background(), []string{"cor-1", "cor-2"}, []string{"msg-9"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// empty input is a no-op, no SQL expected
	require.NoError(t, repo.UpdateMessageIDs(context.Background(), nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
