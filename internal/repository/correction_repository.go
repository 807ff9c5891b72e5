package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
)

const correctionColumns = `id, game_id, game_slug, game_title, submitter_id, submitter_name, field,
       old_value, new_value, reason, status, reviewed_by, reviewer_name, reviewed_at, review_notes,
       final_value, message_ids, submitted_at`

// supersededNote is stamped on corrections replaced by a newer submission for
// the same field.
const supersededNote = "superseded by a newer correction from the same submitter"

// CorrectionRepository persists the correction workflow.
type CorrectionRepository struct {
	db *sqlx.DB
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db *sqlx.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// SubmitResult reports the outcome of a merged submission.
type SubmitResult struct {
	Created *models.Correction
	// Batch holds every still-pending correction in the merge window for the
	// (game, submitter) pair, oldest first, including the new one.
	Batch []models.Correction
	// AnchorMessageIDs carries the notification message identifiers of the
	// anchor correction, when one existed. Empty means send fresh.
	AnchorMessageIDs []string
	SupersededCount  int
}

// Submit runs the merge/supersede resolution and the insert in one
// transaction: lock the newest pending correction for (game, submitter)
// inside the rolling window, supersede same-field pendings, insert the new
// correction, bump the submitter's counter and re-read the batch.
func (r *CorrectionRepository) Submit(ctx context.Context, correction *models.Correction, window time.Duration) (*SubmitResult, error) {
	if correction.ID == "" {
		correction.ID = uuid.NewString()
	}
	if correction.Status == "" {
		correction.Status = models.CorrectionStatusPending
	}
	if correction.SubmittedAt.IsZero() {
		correction.SubmittedAt = time.Now().UTC()
	}
	cutoff := correction.SubmittedAt.Add(-window)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	anchorQuery := fmt.Sprintf(`SELECT %s FROM corrections
		WHERE game_slug = $1 AND submitter_id = $2 AND status = $3 AND submitted_at > $4
		ORDER BY submitted_at DESC LIMIT 1 FOR UPDATE`, correctionColumns)

	var anchor models.Correction
	hasAnchor := true
	err = tx.GetContext(ctx, &anchor, anchorQuery,
		correction.GameSlug, correction.SubmitterID, models.CorrectionStatusPending, cutoff)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("find anchor correction: %w", err)
		}
		hasAnchor = false
	}

	result := &SubmitResult{Created: correction}
	if hasAnchor {
		result.AnchorMessageIDs = []string(anchor.MessageIDs)
	}

	if hasAnchor && anchor.Field == correction.Field {
		res, err := tx.ExecContext(ctx, `UPDATE corrections
			SET status = $1, review_notes = $2, reviewed_at = $3
			WHERE game_slug = $4 AND submitter_id = $5 AND field = $6 AND status = $7 AND submitted_at > $8`,
			models.CorrectionStatusSuperseded, supersededNote, correction.SubmittedAt,
			correction.GameSlug, correction.SubmitterID, correction.Field,
			models.CorrectionStatusPending, cutoff)
		if err != nil {
			return nil, fmt.Errorf("supersede pending corrections: %w", err)
		}
		if rows, err := res.RowsAffected(); err == nil {
			result.SupersededCount = int(rows)
		}
	}

	const insertQuery = `INSERT INTO corrections
		(id, game_id, game_slug, game_title, submitter_id, submitter_name, field, old_value, new_value,
		 reason, status, message_ids, submitted_at)
		VALUES (:id, :game_id, :game_slug, :game_title, :submitter_id, :submitter_name, :field, :old_value,
		 :new_value, :reason, :status, :message_ids, :submitted_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, correction); err != nil {
		return nil, fmt.Errorf("insert correction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET submissions_count = submissions_count + 1, updated_at = $2 WHERE id = $1`,
		correction.SubmitterID, correction.SubmittedAt); err != nil {
		return nil, fmt.Errorf("increment submissions count: %w", err)
	}

	batchQuery := fmt.Sprintf(`SELECT %s FROM corrections
		WHERE game_slug = $1 AND submitter_id = $2 AND status = $3 AND submitted_at > $4
		ORDER BY submitted_at ASC`, correctionColumns)
	if err := tx.SelectContext(ctx, &result.Batch, batchQuery,
		correction.GameSlug, correction.SubmitterID, models.CorrectionStatusPending, cutoff); err != nil {
		return nil, fmt.Errorf("load correction batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit tx: %w", err)
	}
	return result, nil
}

// GetByID fetches a correction by identifier.
func (r *CorrectionRepository) GetByID(ctx context.Context, id string) (*models.Correction, error) {
	query := fmt.Sprintf(`SELECT %s FROM corrections WHERE id = $1`, correctionColumns)
	var correction models.Correction
	if err := r.db.GetContext(ctx, &correction, query, id); err != nil {
		return nil, err
	}
	return &correction, nil
}

// List returns corrections matching the filter (newest first).
func (r *CorrectionRepository) List(ctx context.Context, filter models.CorrectionFilter) ([]models.Correction, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM corrections", correctionColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.GameSlug != "" {
		args = append(args, filter.GameSlug)
		conditions = append(conditions, fmt.Sprintf("game_slug = $%d", len(args)))
	}
	if filter.SubmitterID != "" {
		args = append(args, filter.SubmitterID)
		conditions = append(conditions, fmt.Sprintf("submitter_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var corrections []models.Correction
	if err := r.db.SelectContext(ctx, &corrections, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	return corrections, nil
}

// UpdateMessageIDs stamps notification message identifiers onto every batch member.
func (r *CorrectionRepository) UpdateMessageIDs(ctx context.Context, correctionIDs, messageIDs []string) error {
	if len(correctionIDs) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE corrections SET message_ids = $1 WHERE id = ANY($2)`,
		pq.Array(messageIDs), pq.Array(correctionIDs)); err != nil {
		return fmt.Errorf("update message ids: %w", err)
	}
	return nil
}

// ReviewParams groups the columns written by a review decision.
type ReviewParams struct {
	ID           string
	Status       models.CorrectionStatus
	ReviewerID   string
	ReviewerName string
	ReviewedAt   time.Time
	Notes        *string
	FinalValue   *string

	// SubmitterID receives the counter increment.
	SubmitterID string
	// Apply, when set, writes AppliedValue into the game column for Field.
	Apply        bool
	GameID       string
	Field        models.CorrectionField
	AppliedValue *string

	Audit *models.AuditLog
}

// gameColumn maps editable fields to their games-table columns.
var gameColumn = map[models.CorrectionField]string{
	models.FieldTitle:          "title",
	models.FieldReleaseDate:    "release_date",
	models.FieldDeveloper:      "developer",
	models.FieldPublisher:      "publisher",
	models.FieldGenre:          "genre",
	models.FieldStatus:         "status",
	models.FieldActivationType: "activation_type",
	models.FieldServerStatus:   "server_status",
	models.FieldCoverURL:       "cover_url",
	models.FieldDownloadURL:    "download_url",
	models.FieldNotes:          "notes",
}

// Review atomically finalises a pending correction: the guarded status update,
// the optional game mutation, the submitter counter and the audit entry all
// commit or roll back together. Returns sql.ErrNoRows when the correction was
// not pending (already reviewed).
func (r *CorrectionRepository) Review(ctx context.Context, params ReviewParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE corrections
		SET status = $1, reviewed_by = $2, reviewer_name = $3, reviewed_at = $4, review_notes = $5, final_value = $6
		WHERE id = $7 AND status = $8`,
		params.Status, params.ReviewerID, params.ReviewerName, params.ReviewedAt, params.Notes, params.FinalValue,
		params.ID, models.CorrectionStatusPending)
	if err != nil {
		return fmt.Errorf("update correction status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check correction update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if params.Apply {
		column, ok := gameColumn[params.Field]
		if !ok {
			return fmt.Errorf("no game column for field %s", params.Field)
		}
		query := fmt.Sprintf(`UPDATE games SET %s = $1, updated_at = $2 WHERE id = $3`, column)
		if _, err := tx.ExecContext(ctx, query, params.AppliedValue, params.ReviewedAt, params.GameID); err != nil {
			return fmt.Errorf("apply correction to game: %w", err)
		}
	}

	counterColumn := "rejected_count"
	if params.Status == models.CorrectionStatusApproved || params.Status == models.CorrectionStatusModified {
		counterColumn = "approved_count"
	}
	counterQuery := fmt.Sprintf(`UPDATE users SET %s = %s + 1, updated_at = $2 WHERE id = $1`, counterColumn, counterColumn)
	if _, err := tx.ExecContext(ctx, counterQuery, params.SubmitterID, params.ReviewedAt); err != nil {
		return fmt.Errorf("increment review counter: %w", err)
	}

	if params.Audit != nil {
		log := params.Audit
		if log.ID == "" {
			log.ID = uuid.NewString()
		}
		if log.CreatedAt.IsZero() {
			log.CreatedAt = params.ReviewedAt
		}
		const auditQuery = `INSERT INTO audit_logs
			(id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
			VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
		if _, err := tx.NamedExecContext(ctx, auditQuery, log); err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}

// CountByStatus returns the number of corrections in the given state.
func (r *CorrectionRepository) CountByStatus(ctx context.Context, status models.CorrectionStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM corrections WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count corrections: %w", err)
	}
	return count, nil
}

// OldestPending returns the longest-waiting pending correction, nil when the
// queue is empty.
func (r *CorrectionRepository) OldestPending(ctx context.Context) (*models.Correction, error) {
	query := fmt.Sprintf(`SELECT %s FROM corrections WHERE status = $1 ORDER BY submitted_at ASC LIMIT 1`, correctionColumns)
	var correction models.Correction
	if err := r.db.GetContext(ctx, &correction, query, models.CorrectionStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("oldest pending correction: %w", err)
	}
	return &correction, nil
}
