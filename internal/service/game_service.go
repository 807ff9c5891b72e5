package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type gameStore interface {
	FindByID(ctx context.Context, id string) (*models.Game, error)
	FindBySlug(ctx context.Context, slug string) (*models.Game, error)
	Create(ctx context.Context, game *models.Game) error
	Update(ctx context.Context, game *models.Game) error
	Publish(ctx context.Context, id, publishedBy string, at time.Time) error
	List(ctx context.Context, filter models.GameFilter) ([]models.Game, int, error)
	Counts(ctx context.Context) (total, published int, err error)
	Delete(ctx context.Context, id string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// GameService manages the catalogue. Direct edits are admin-only and audited;
// members change games through the correction workflow instead.
type GameService struct {
	repo   gameStore
	audit  auditLogger
	cache  *CacheService
	logger *zap.Logger
}

// NewGameService constructs the service.
func NewGameService(repo gameStore, audit auditLogger, cache *CacheService, logger *zap.Logger) *GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameService{repo: repo, audit: audit, cache: cache, logger: logger}
}

// Get returns a game by slug. Unpublished titles are visible only to
// reviewers and admins.
func (s *GameService) Get(ctx context.Context, slug string, actor *models.JWTClaims) (*models.Game, error) {
	game, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "game not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load game")
	}
	if !game.Published && (actor == nil || !privileged(actor.Role)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "game not found")
	}
	return game, nil
}

// List returns catalogue entries. Anonymous and regular callers only see
// published titles.
func (s *GameService) List(ctx context.Context, query dto.GameQuery, actor *models.JWTClaims) ([]models.Game, *models.Pagination, error) {
	filter := models.GameFilter{
		Search:    strings.TrimSpace(query.Search),
		Published: query.Published,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if actor == nil || !privileged(actor.Role) {
		published := true
		filter.Published = &published
	}

	games, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list games")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.PageSize <= 0 || pagination.PageSize > 100 {
		pagination.PageSize = 20
	}
	return games, pagination, nil
}

// Create registers a new unpublished title.
func (s *GameService) Create(ctx context.Context, req dto.CreateGameRequest, actor *models.JWTClaims, ip, userAgent string) (*models.Game, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must be lowercase letters, digits and hyphens")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if _, err := s.repo.FindBySlug(ctx, slug); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("slug %s already exists", slug))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
	}

	game := &models.Game{
		Slug:           slug,
		Title:          strings.TrimSpace(req.Title),
		ReleaseDate:    req.ReleaseDate,
		Developer:      req.Developer,
		Publisher:      req.Publisher,
		Genre:          req.Genre,
		Status:         req.Status,
		ActivationType: req.ActivationType,
		ServerStatus:   req.ServerStatus,
		CoverURL:       req.CoverURL,
		DownloadURL:    req.DownloadURL,
		Notes:          req.Notes,
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create game")
	}
	return game, nil
}

// Update patches catalogue fields directly, recording one audit entry with the
// previous and new state.
func (s *GameService) Update(ctx context.Context, slug string, req dto.UpdateGameRequest, actor *models.JWTClaims, ip, userAgent string) (*models.Game, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	game, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "game not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load game")
	}

	before, _ := json.Marshal(game)
	applyGamePatch(game, req)
	if strings.TrimSpace(game.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
	}

	if err := s.repo.Update(ctx, game); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update game")
	}
	after, _ := json.Marshal(game)
	s.emitAudit(ctx, actor, models.AuditActionGameEdit, game.ID, before, after, ip, userAgent)
	s.invalidateDashboards(ctx)
	return game, nil
}

// Publish makes a title publicly visible. The required fields must be
// populated; otherwise the call fails naming them and nothing is mutated.
func (s *GameService) Publish(ctx context.Context, slug string, actor *models.JWTClaims, ip, userAgent string) (*models.Game, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	game, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "game not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load game")
	}

	if missing := game.MissingPublishFields(); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cannot publish, missing required fields: %s", strings.Join(missing, ", ")))
	}

	now := time.Now().UTC()
	if err := s.repo.Publish(ctx, game.ID, actor.UserID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "game already published")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish game")
	}

	game.Published = true
	game.PublishedAt = &now
	publishedBy := actor.UserID
	game.PublishedBy = &publishedBy

	after, _ := json.Marshal(map[string]interface{}{"published": true, "published_at": now})
	s.emitAudit(ctx, actor, models.AuditActionGamePublish, game.ID, nil, after, ip, userAgent)
	s.invalidateDashboards(ctx)
	return game, nil
}

func (s *GameService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, gameID string, oldValues, newValues []byte, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	actorID := actor.UserID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "games",
		ResourceID: &gameID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record game audit log", zap.Error(err))
	}
}

func (s *GameService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func applyGamePatch(game *models.Game, req dto.UpdateGameRequest) {
	if req.Title != nil {
		game.Title = strings.TrimSpace(*req.Title)
	}
	if req.ReleaseDate != nil {
		game.ReleaseDate = req.ReleaseDate
	}
	if req.Developer != nil {
		game.Developer = req.Developer
	}
	if req.Publisher != nil {
		game.Publisher = req.Publisher
	}
	if req.Genre != nil {
		game.Genre = req.Genre
	}
	if req.Status != nil {
		game.Status = req.Status
	}
	if req.ActivationType != nil {
		game.ActivationType = req.ActivationType
	}
	if req.ServerStatus != nil {
		game.ServerStatus = req.ServerStatus
	}
	if req.CoverURL != nil {
		game.CoverURL = req.CoverURL
	}
	if req.DownloadURL != nil {
		game.DownloadURL = req.DownloadURL
	}
	if req.Notes != nil {
		game.Notes = req.Notes
	}
}
