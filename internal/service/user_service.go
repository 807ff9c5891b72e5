package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateModerationAction(ctx context.Context, action *models.ModerationAction) error
	ListModerationActions(ctx context.Context, userID string) ([]models.ModerationAction, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService manages accounts, moderation and contribution stats.
type UserService struct {
	repo   userStore
	logger *zap.Logger

	// developerEmails may change any ADMIN role assignment; see Update.
	developerEmails map[string]struct{}
}

// NewUserService constructs the service. developerEmails is the allowlist of
// operator addresses permitted to grant or revoke the ADMIN role.
func NewUserService(repo userStore, developerEmails []string, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowlist := make(map[string]struct{}, len(developerEmails))
	for _, email := range developerEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowlist[email] = struct{}{}
		}
	}
	return &UserService{repo: repo, developerEmails: allowlist, logger: logger}
}

// Get returns a profile with stats. Admins also get the moderation history.
func (s *UserService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.UserProfileResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.UserID != id && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserProfileResponse{User: user, Stats: statsFor(user)}
	if actor.Role == models.RoleAdmin {
		moderation, err := s.repo.ListModerationActions(ctx, id)
		if err != nil {
			s.logger.Warn("failed to load moderation history", zap.Error(err))
		} else {
			resp.Moderation = moderation
		}
	}
	return resp, nil
}

// Stats returns contribution counters and the approval rate.
func (s *UserService) Stats(ctx context.Context, id string, actor *models.JWTClaims) (*models.UserStats, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.UserID != id && !privileged(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := statsFor(user)
	return &stats, nil
}

// List returns accounts for the admin user management screen.
func (s *UserService) List(ctx context.Context, filter models.UserFilter, actor *models.JWTClaims) ([]models.User, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, 0, appErrors.ErrForbidden
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Update mutates a profile or, for admins, role and standing. Every role or
// status change appends a moderation action and an audit entry; suspending or
// blocking also revokes the target's sessions.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor *models.JWTClaims, ip, userAgent string) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	moderating := req.Role != nil || req.Status != nil
	if moderating && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if !moderating && actor.UserID != id && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil || req.AvatarURL != nil {
		displayName := user.DisplayName
		avatarURL := user.AvatarURL
		if req.DisplayName != nil {
			displayName = strings.TrimSpace(*req.DisplayName)
			if displayName == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "displayName cannot be empty")
			}
		}
		if req.AvatarURL != nil {
			avatarURL = strings.TrimSpace(*req.AvatarURL)
		}
		if err := s.repo.UpdateProfile(ctx, id, displayName, avatarURL); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
		user.DisplayName = displayName
		user.AvatarURL = avatarURL
	}

	if req.Role != nil && *req.Role != user.Role {
		if err := s.changeRole(ctx, user, *req.Role, req.Reason, actor, ip, userAgent); err != nil {
			return nil, err
		}
	}
	if req.Status != nil && *req.Status != user.Status {
		if err := s.changeStatus(ctx, user, *req.Status, req.Reason, actor, ip, userAgent); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *UserService) changeRole(ctx context.Context, user *models.User, role models.UserRole, reason string, actor *models.JWTClaims, ip, userAgent string) error {
	switch role {
	case models.RoleAdmin, models.RoleReviewer, models.RoleUser:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if strings.TrimSpace(reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required for role changes")
	}
	if role == models.RoleAdmin || user.Role == models.RoleAdmin {
		if _, ok := s.developerEmails[strings.ToLower(actor.Email)]; !ok {
			return appErrors.Clone(appErrors.ErrForbidden, "admin role changes are restricted to developers")
		}
	}

	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	s.recordModeration(ctx, user.ID, actor, models.ModerationRoleChange, string(user.Role), string(role), reason)
	s.recordAudit(ctx, actor, models.AuditActionUserRoleChange, user.ID, string(user.Role), string(role), ip, userAgent)
	user.Role = role
	return nil
}

func (s *UserService) changeStatus(ctx context.Context, user *models.User, status models.UserStatus, reason string, actor *models.JWTClaims, ip, userAgent string) error {
	switch status {
	case models.StatusActive, models.StatusSuspended, models.StatusRestricted, models.StatusBlocked:
	case models.StatusDeleted:
		return appErrors.Clone(appErrors.ErrValidation, "use the delete endpoint to remove accounts")
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}
	if strings.TrimSpace(reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required for status changes")
	}

	if err := s.repo.UpdateStatus(ctx, user.ID, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	if status == models.StatusSuspended || status == models.StatusBlocked {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke sessions of moderated user", zap.Error(err))
		}
	}
	s.recordModeration(ctx, user.ID, actor, models.ModerationStatusChange, string(user.Status), string(status), reason)
	s.recordAudit(ctx, actor, models.AuditActionUserStatusChange, user.ID, string(user.Status), string(status), ip, userAgent)
	user.Status = status
	return nil
}

// Delete soft-deletes the account and revokes its sessions. SELF or admin.
func (s *UserService) Delete(ctx context.Context, id string, actor *models.JWTClaims, ip, userAgent string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.UserID != id && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Status == models.StatusDeleted {
		return appErrors.Clone(appErrors.ErrConflict, "account already deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deleted user", zap.Error(err))
	}
	s.recordAudit(ctx, actor, models.AuditActionUserDelete, id, string(user.Status), string(models.StatusDeleted), ip, userAgent)
	return nil
}

func (s *UserService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *UserService) recordModeration(ctx context.Context, userID string, actor *models.JWTClaims, action, oldValue, newValue, reason string) {
	entry := &models.ModerationAction{
		UserID:    userID,
		ActorID:   actor.UserID,
		ActorName: actor.DisplayName,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		Reason:    optionalString(reason),
	}
	if err := s.repo.CreateModerationAction(ctx, entry); err != nil {
		s.logger.Warn("failed to record moderation action", zap.Error(err))
	}
}

func (s *UserService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID, oldValue, newValue, ip, userAgent string) {
	actorID := actor.UserID
	marshal := func(value string) []byte {
		payload, _ := json.Marshal(map[string]string{"value": value})
		return payload
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		OldValues:  marshal(oldValue),
		NewValues:  marshal(newValue),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.Error(err))
	}
}

func statsFor(user *models.User) models.UserStats {
	stats := models.UserStats{
		SubmissionsCount: user.SubmissionsCount,
		ApprovedCount:    user.ApprovedCount,
		RejectedCount:    user.RejectedCount,
	}
	stats.ApprovalRate = stats.Rate()
	return stats
}
