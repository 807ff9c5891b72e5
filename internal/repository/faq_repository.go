package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
)

const faqColumns = `id, question, answer, category, position, published, created_at, updated_at`

// FAQRepository provides database access for help entries.
type FAQRepository struct {
	db *sqlx.DB
}

// NewFAQRepository creates a new instance of FAQRepository.
func NewFAQRepository(db *sqlx.DB) *FAQRepository {
	return &FAQRepository{db: db}
}

// FindByID returns an entry by identifier.
func (r *FAQRepository) FindByID(ctx context.Context, id string) (*models.FAQ, error) {
	query := fmt.Sprintf(`SELECT %s FROM faqs WHERE id = $1 LIMIT 1`, faqColumns)
	var faq models.FAQ
	if err := r.db.GetContext(ctx, &faq, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faq by id: %w", err)
	}
	return &faq, nil
}

// List returns entries ordered by category and position. When publishedOnly is
// set, drafts are excluded.
func (r *FAQRepository) List(ctx context.Context, publishedOnly bool) ([]models.FAQ, error) {
	query := fmt.Sprintf(`SELECT %s FROM faqs`, faqColumns)
	if publishedOnly {
		query += ` WHERE published = TRUE`
	}
	query += ` ORDER BY category ASC, position ASC`

	var faqs []models.FAQ
	if err := r.db.SelectContext(ctx, &faqs, query); err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	return faqs, nil
}

// Create inserts a new entry.
func (r *FAQRepository) Create(ctx context.Context, faq *models.FAQ) error {
	if faq.ID == "" {
		faq.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if faq.CreatedAt.IsZero() {
		faq.CreatedAt = now
	}
	faq.UpdatedAt = now

	const query = `INSERT INTO faqs (id, question, answer, category, position, published, created_at, updated_at)
		VALUES (:id, :question, :answer, :category, :position, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, faq); err != nil {
		return fmt.Errorf("create faq: %w", err)
	}
	return nil
}

// Update rewrites an entry.
func (r *FAQRepository) Update(ctx context.Context, faq *models.FAQ) error {
	faq.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faqs SET question = :question, answer = :answer, category = :category,
		position = :position, published = :published, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, faq); err != nil {
		return fmt.Errorf("update faq: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (r *FAQRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	return nil
}
