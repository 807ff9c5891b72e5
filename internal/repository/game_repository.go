package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
)

const gameColumns = `id, slug, title, release_date, developer, publisher, genre, status,
       activation_type, server_status, cover_url, download_url, notes, published,
       published_at, published_by, created_at, updated_at`

// GameRepository provides database access for the catalogue.
type GameRepository struct {
	db *sqlx.DB
}

// NewGameRepository creates a new instance of GameRepository.
func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// FindByID returns a game by identifier.
func (r *GameRepository) FindByID(ctx context.Context, id string) (*models.Game, error) {
	query := fmt.Sprintf(`SELECT %s FROM games WHERE id = $1 LIMIT 1`, gameColumns)
	var game models.Game
	if err := r.db.GetContext(ctx, &game, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find game by id: %w", err)
	}
	return &game, nil
}

// FindBySlug returns a game by its URL slug.
func (r *GameRepository) FindBySlug(ctx context.Context, slug string) (*models.Game, error) {
	query := fmt.Sprintf(`SELECT %s FROM games WHERE slug = $1 LIMIT 1`, gameColumns)
	var game models.Game
	if err := r.db.GetContext(ctx, &game, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find game by slug: %w", err)
	}
	return &game, nil
}

// Create inserts a new title.
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = now
	}
	game.UpdatedAt = now

	const query = `INSERT INTO games
		(id, slug, title, release_date, developer, publisher, genre, status, activation_type,
		 server_status, cover_url, download_url, notes, published, created_at, updated_at)
		VALUES (:id, :slug, :title, :release_date, :developer, :publisher, :genre, :status, :activation_type,
		 :server_status, :cover_url, :download_url, :notes, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, game); err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// Update writes the mutable catalogue fields.
func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	game.UpdatedAt = time.Now().UTC()
	const query = `UPDATE games SET
		title = :title, release_date = :release_date, developer = :developer, publisher = :publisher,
		genre = :genre, status = :status, activation_type = :activation_type, server_status = :server_status,
		cover_url = :cover_url, download_url = :download_url, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, game); err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

// Publish flips the published flag with provenance. Returns sql.ErrNoRows when
// the game was already published.
func (r *GameRepository) Publish(ctx context.Context, id, publishedBy string, at time.Time) error {
	const query = `UPDATE games SET published = TRUE, published_at = $2, published_by = $3, updated_at = $2
		WHERE id = $1 AND published = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, at, publishedBy)
	if err != nil {
		return fmt.Errorf("publish game: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check publish rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns games based on filters with total count.
func (r *GameRepository) List(ctx context.Context, filter models.GameFilter) ([]models.Game, int, error) {
	baseQuery := `FROM games WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(slug) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY title ASC LIMIT %d OFFSET %d", gameColumns, baseQuery, pageSize, offset)

	var games []models.Game
	if err := r.db.SelectContext(ctx, &games, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list games: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}

	return games, total, nil
}

// Counts returns the total and published game counts for the admin dashboard.
func (r *GameRepository) Counts(ctx context.Context) (total, published int, err error) {
	row := struct {
		Total     int `db:"total"`
		Published int `db:"published"`
	}{}
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE published) AS published FROM games`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("count games: %w", err)
	}
	return row.Total, row.Published, nil
}

// Delete removes a title. Corrections referencing it keep their denormalized
// slug and title.
func (r *GameRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}
