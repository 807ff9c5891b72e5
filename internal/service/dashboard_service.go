package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

const dashboardRecentLimit = 10

type dashCorrectionStore interface {
	CountByStatus(ctx context.Context, status models.CorrectionStatus) (int, error)
	OldestPending(ctx context.Context) (*models.Correction, error)
	List(ctx context.Context, filter models.CorrectionFilter) ([]models.Correction, error)
}

type dashGameCounter interface {
	Counts(ctx context.Context) (total, published int, err error)
}

type dashUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// DashboardService assembles role-specific summary views, cached briefly in
// Redis. Correction reviews and catalogue changes invalidate the cache.
type DashboardService struct {
	corrections dashCorrectionStore
	games       dashGameCounter
	users       dashUserStore
	cache       *CacheService
	logger      *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(corrections dashCorrectionStore, games dashGameCounter, users dashUserStore, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{corrections: corrections, games: games, users: users, cache: cache, logger: logger}
}

// Reviewer returns the review queue summary.
func (s *DashboardService) Reviewer(ctx context.Context) (*dto.ReviewerDashboard, error) {
	cacheKey := "dash:reviewer"
	var cached dto.ReviewerDashboard
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	dashboard, err := s.buildReviewerDashboard(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cacheKey, dashboard)
	return dashboard, nil
}

// User returns a member's own contribution summary.
func (s *DashboardService) User(ctx context.Context, userID string) (*dto.UserDashboard, error) {
	cacheKey := fmt.Sprintf("dash:user:%s", userID)
	var cached dto.UserDashboard
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	recent, err := s.corrections.List(ctx, models.CorrectionFilter{
		SubmitterID: userID,
		Limit:       dashboardRecentLimit,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent corrections")
	}

	stats := models.UserStats{
		SubmissionsCount: user.SubmissionsCount,
		ApprovedCount:    user.ApprovedCount,
		RejectedCount:    user.RejectedCount,
	}
	stats.ApprovalRate = stats.Rate()

	dashboard := &dto.UserDashboard{Stats: stats, Recent: recent}
	s.store(ctx, cacheKey, dashboard)
	return dashboard, nil
}

// Admin extends the reviewer view with catalogue and membership totals.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboard, error) {
	cacheKey := "dash:admin"
	var cached dto.AdminDashboard
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	reviewer, err := s.buildReviewerDashboard(ctx)
	if err != nil {
		return nil, err
	}

	totalGames, publishedGames, err := s.games.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count games")
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}

	dashboard := &dto.AdminDashboard{
		ReviewerDashboard: *reviewer,
		TotalGames:        totalGames,
		PublishedGames:    publishedGames,
		TotalUsers:        totalUsers,
	}
	s.store(ctx, cacheKey, dashboard)
	return dashboard, nil
}

func (s *DashboardService) buildReviewerDashboard(ctx context.Context) (*dto.ReviewerDashboard, error) {
	pending, err := s.corrections.CountByStatus(ctx, models.CorrectionStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending corrections")
	}

	oldest, err := s.corrections.OldestPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load oldest pending correction")
	}

	recent, err := s.corrections.List(ctx, models.CorrectionFilter{
		Status: []models.CorrectionStatus{models.CorrectionStatusPending},
		Limit:  dashboardRecentLimit,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review queue")
	}

	return &dto.ReviewerDashboard{
		PendingCount:  pending,
		OldestPending: oldest,
		Recent:        recent,
	}, nil
}

func (s *DashboardService) store(ctx context.Context, key string, value interface{}) {
	// TTL zero defers to the cache service default, tuned via DASHBOARD_CACHE_TTL.
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		s.logger.Debug("dashboard cache store failed", zap.String("key", key), zap.Error(err))
	}
}
