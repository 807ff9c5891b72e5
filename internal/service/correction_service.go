package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	"github.com/gfwl-hub/gfwl-hub-api/internal/repository"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/jobs"
)

// NotificationJobType identifies correction batch notifications on the queue.
const NotificationJobType = "correction-batch-notification"

// directDownloadExtensions are rejected for downloadUrl corrections: the hub
// links to landing pages, never to files.
var directDownloadExtensions = map[string]struct{}{
	".exe": {}, ".msi": {}, ".zip": {}, ".rar": {}, ".7z": {},
}

type correctionStore interface {
	Submit(ctx context.Context, correction *models.Correction, window time.Duration) (*repository.SubmitResult, error)
	GetByID(ctx context.Context, id string) (*models.Correction, error)
	List(ctx context.Context, filter models.CorrectionFilter) ([]models.Correction, error)
	UpdateMessageIDs(ctx context.Context, correctionIDs, messageIDs []string) error
	Review(ctx context.Context, params repository.ReviewParams) error
}

type gameFinder interface {
	FindByID(ctx context.Context, id string) (*models.Game, error)
}

type submitterFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type batchPublisher interface {
	PublishBatch(ctx context.Context, batch []models.Correction, existingIDs []string) ([]string, error)
}

type notificationEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationRecorder counts notification outcomes for the metrics endpoint.
type NotificationRecorder interface {
	NotificationSent()
	NotificationFailed()
}

// NotificationPayload is the queue payload for a batch event.
type NotificationPayload struct {
	CorrectionIDs []string
	Batch         []models.Correction
	ExistingIDs   []string
}

// CorrectionService orchestrates the submission resolver and the review
// workflow.
type CorrectionService struct {
	repo      correctionStore
	games     gameFinder
	users     submitterFinder
	queue     notificationEnqueuer
	publisher batchPublisher
	metrics   NotificationRecorder
	logger    *zap.Logger

	window  time.Duration
	listCap int
}

// CorrectionServiceOption configures the service.
type CorrectionServiceOption func(*CorrectionService)

// WithNotificationQueue sets the background queue for batch notifications.
func WithNotificationQueue(queue notificationEnqueuer) CorrectionServiceOption {
	return func(s *CorrectionService) { s.queue = queue }
}

// WithNotificationRecorder sets the metrics sink for notification outcomes.
func WithNotificationRecorder(recorder NotificationRecorder) CorrectionServiceOption {
	return func(s *CorrectionService) { s.metrics = recorder }
}

// WithMergeWindow overrides the rolling merge window.
func WithMergeWindow(window time.Duration) CorrectionServiceOption {
	return func(s *CorrectionService) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithListCap overrides the listing cap.
func WithListCap(cap int) CorrectionServiceOption {
	return func(s *CorrectionService) {
		if cap > 0 {
			s.listCap = cap
		}
	}
}

// NewCorrectionService constructs the service with defaults: a ten minute
// merge window and a listing cap of 1000.
func NewCorrectionService(repo correctionStore, games gameFinder, users submitterFinder, publisher batchPublisher, logger *zap.Logger, opts ...CorrectionServiceOption) *CorrectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CorrectionService{
		repo:      repo,
		games:     games,
		users:     users,
		publisher: publisher,
		logger:    logger,
		window:    10 * time.Minute,
		listCap:   1000,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// AttachQueue sets the notification queue after construction. The queue's
// handler is this service's HandleNotification, so the two are wired in
// two steps.
func (s *CorrectionService) AttachQueue(queue notificationEnqueuer) {
	s.queue = queue
}

// Submit validates and stores a new correction, resolving it against the
// submitter's open batch, then schedules the channel notification.
func (s *CorrectionService) Submit(ctx context.Context, req dto.CreateCorrectionRequest, actor *models.JWTClaims) (*models.Correction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	submitter, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submitter")
	}
	if !submitter.Status.CanSubmit() {
		return nil, appErrors.ErrAccountSuspended
	}

	if err := validateCorrectionRequest(req); err != nil {
		return nil, err
	}

	game, err := s.games.FindByID(ctx, req.GameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "game not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load game")
	}
	if req.GameSlug != "" && req.GameSlug != game.Slug {
		return nil, appErrors.Clone(appErrors.ErrValidation, "gameSlug does not match the referenced game")
	}

	oldValue := game.FieldValue(req.Field)
	if valuesEqual(oldValue, req.NewValue) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposed value matches the current value")
	}

	correction := &models.Correction{
		GameID:        game.ID,
		GameSlug:      game.Slug,
		GameTitle:     game.Title,
		SubmitterID:   submitter.ID,
		SubmitterName: submitter.DisplayName,
		Field:         req.Field,
		OldValue:      oldValue,
		NewValue:      req.NewValue,
		Reason:        strings.TrimSpace(req.Reason),
	}

	result, err := s.repo.Submit(ctx, correction, s.window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store correction")
	}

	s.enqueueNotification(result)
	return result.Created, nil
}

func (s *CorrectionService) enqueueNotification(result *repository.SubmitResult) {
	if s.queue == nil || len(result.Batch) == 0 {
		return
	}
	ids := make([]string, 0, len(result.Batch))
	for _, correction := range result.Batch {
		ids = append(ids, correction.ID)
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: NotificationJobType,
		Payload: NotificationPayload{
			CorrectionIDs: ids,
			Batch:         result.Batch,
			ExistingIDs:   result.AnchorMessageIDs,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue batch notification", zap.Error(err))
		if s.metrics != nil {
			s.metrics.NotificationFailed()
		}
	}
}

// HandleNotification is the queue handler: publish the batch to the channel
// and persist the resulting message IDs on every batch member. Errors bubble
// up so the queue retries per its policy.
func (s *CorrectionService) HandleNotification(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(NotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}

	messageIDs, err := s.publisher.PublishBatch(ctx, payload.Batch, payload.ExistingIDs)
	if err != nil {
		if s.metrics != nil {
			s.metrics.NotificationFailed()
		}
		return fmt.Errorf("publish correction batch: %w", err)
	}

	if err := s.repo.UpdateMessageIDs(ctx, payload.CorrectionIDs, messageIDs); err != nil {
		// Message IDs stay stale; the next batch event heals via the 404
		// fallback on edit.
		s.logger.Warn("failed to persist notification message ids", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.NotificationSent()
	}
	return nil
}

// Get returns a correction, restricting non-privileged callers to their own.
func (s *CorrectionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Correction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	correction, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction")
	}
	if !privileged(actor.Role) && correction.SubmitterID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return correction, nil
}

// List returns corrections respecting actor scope: regular members only ever
// see their own submissions regardless of requested filters.
func (s *CorrectionService) List(ctx context.Context, query dto.CorrectionQuery, actor *models.JWTClaims) ([]models.Correction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.CorrectionFilter{
		Status:      query.Status,
		GameSlug:    strings.TrimSpace(query.GameSlug),
		SubmitterID: strings.TrimSpace(query.UserID),
		Limit:       query.Limit,
		Offset:      query.Offset,
	}
	if !privileged(actor.Role) {
		filter.SubmitterID = actor.UserID
	}
	if filter.Limit <= 0 || filter.Limit > s.listCap {
		filter.Limit = s.listCap
	}
	corrections, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list corrections")
	}
	return corrections, nil
}

// Review finalises a pending correction. An approval carrying a finalValue
// override lands as MODIFIED; both count as approvals. The status update, game
// mutation, audit entry and counter commit in one transaction.
func (s *CorrectionService) Review(ctx context.Context, id string, req dto.ReviewCorrectionRequest, actor *models.JWTClaims, ip, userAgent string) (*models.Correction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !privileged(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	if req.Status != models.CorrectionStatusApproved && req.Status != models.CorrectionStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}

	correction, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction")
	}
	if correction.SubmitterID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reviewers cannot review their own submissions")
	}

	effective := req.Status
	if effective == models.CorrectionStatusApproved && req.FinalValue != nil {
		effective = models.CorrectionStatusModified
	}
	if err := models.ValidateTransition(correction.Status, effective); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	params := repository.ReviewParams{
		ID:           correction.ID,
		Status:       effective,
		ReviewerID:   actor.UserID,
		ReviewerName: actor.DisplayName,
		ReviewedAt:   now,
		Notes:        optionalString(req.Notes),
		SubmitterID:  correction.SubmitterID,
	}
	if effective == models.CorrectionStatusModified {
		params.FinalValue = req.FinalValue
	}

	if effective != models.CorrectionStatusRejected {
		applied := correction.NewValue
		if params.FinalValue != nil {
			applied = params.FinalValue
		}
		auditValues := func(value *string) []byte {
			payload, _ := json.Marshal(map[string]interface{}{
				"field": correction.Field,
				"value": value,
			})
			return payload
		}
		reviewerID := actor.UserID
		params.Apply = true
		params.GameID = correction.GameID
		params.Field = correction.Field
		params.AppliedValue = applied
		params.Audit = &models.AuditLog{
			UserID:     &reviewerID,
			Action:     models.AuditActionCorrectionApply,
			Resource:   "corrections",
			ResourceID: &correction.ID,
			OldValues:  auditValues(correction.OldValue),
			NewValues:  auditValues(applied),
			IPAddress:  ip,
			UserAgent:  userAgent,
		}
	}

	if err := s.repo.Review(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "correction already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review correction")
	}

	correction.Status = effective
	correction.ReviewedBy = &params.ReviewerID
	correction.ReviewerName = &params.ReviewerName
	correction.ReviewedAt = &now
	correction.ReviewNotes = params.Notes
	correction.FinalValue = params.FinalValue
	return correction, nil
}

func validateCorrectionRequest(req dto.CreateCorrectionRequest) error {
	if !req.Field.Known() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown correction field: %s", req.Field))
	}
	if strings.TrimSpace(req.Reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	if req.NewValue == nil || strings.TrimSpace(*req.NewValue) == "" {
		if !req.Field.Clearable() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s cannot be cleared", req.Field))
		}
		return nil
	}

	value := strings.TrimSpace(*req.NewValue)
	switch req.Field {
	case models.FieldCoverURL, models.FieldDownloadURL:
		parsed, err := url.Parse(value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a valid http(s) URL", req.Field))
		}
		if req.Field == models.FieldDownloadURL {
			ext := strings.ToLower(path.Ext(parsed.Path))
			if _, direct := directDownloadExtensions[ext]; direct {
				return appErrors.Clone(appErrors.ErrValidation, "downloadUrl must link to a page, not directly to a file")
			}
		}
	}
	return nil
}

func valuesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func privileged(role models.UserRole) bool {
	return role == models.RoleReviewer || role == models.RoleAdmin
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
