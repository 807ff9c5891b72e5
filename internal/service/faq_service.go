package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type faqStore interface {
	FindByID(ctx context.Context, id string) (*models.FAQ, error)
	List(ctx context.Context, publishedOnly bool) ([]models.FAQ, error)
	Create(ctx context.Context, faq *models.FAQ) error
	Update(ctx context.Context, faq *models.FAQ) error
	Delete(ctx context.Context, id string) error
}

// FAQService serves the help entries. Reads are public, writes are admin-only.
type FAQService struct {
	repo   faqStore
	logger *zap.Logger
}

// NewFAQService constructs the service.
func NewFAQService(repo faqStore, logger *zap.Logger) *FAQService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FAQService{repo: repo, logger: logger}
}

// List returns entries ordered by category and position. Anonymous and
// regular callers only see published entries.
func (s *FAQService) List(ctx context.Context, actor *models.JWTClaims) ([]models.FAQ, error) {
	publishedOnly := actor == nil || actor.Role != models.RoleAdmin
	faqs, err := s.repo.List(ctx, publishedOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faqs")
	}
	return faqs, nil
}

// Create adds a help entry.
func (s *FAQService) Create(ctx context.Context, req dto.UpsertFAQRequest, actor *models.JWTClaims) (*models.FAQ, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateFAQRequest(req); err != nil {
		return nil, err
	}
	faq := &models.FAQ{
		Question:  strings.TrimSpace(req.Question),
		Answer:    strings.TrimSpace(req.Answer),
		Category:  strings.TrimSpace(req.Category),
		Position:  req.Position,
		Published: req.Published,
	}
	if err := s.repo.Create(ctx, faq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faq")
	}
	return faq, nil
}

// Update replaces an entry's fields.
func (s *FAQService) Update(ctx context.Context, id string, req dto.UpsertFAQRequest, actor *models.JWTClaims) (*models.FAQ, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateFAQRequest(req); err != nil {
		return nil, err
	}
	faq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faq not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faq")
	}
	faq.Question = strings.TrimSpace(req.Question)
	faq.Answer = strings.TrimSpace(req.Answer)
	faq.Category = strings.TrimSpace(req.Category)
	faq.Position = req.Position
	faq.Published = req.Published
	if err := s.repo.Update(ctx, faq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faq")
	}
	return faq, nil
}

// Delete removes an entry.
func (s *FAQService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faq not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faq")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faq")
	}
	return nil
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}

func validateFAQRequest(req dto.UpsertFAQRequest) error {
	if strings.TrimSpace(req.Question) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "question is required")
	}
	if strings.TrimSpace(req.Answer) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "answer is required")
	}
	return nil
}
