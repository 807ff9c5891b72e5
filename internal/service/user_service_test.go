package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gfwl-hub/gfwl-hub-api/internal/dto"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

type userStoreStub struct {
	users      map[string]*models.User
	moderation []models.ModerationAction
	audits     []models.AuditLog
	revoked    []string
	deleted    []string
}

func newUserStoreStub(users ...*models.User) *userStoreStub {
	stub := &userStoreStub{users: map[string]*models.User{}}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return stub
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userStoreStub) UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error {
	s.users[id].DisplayName = displayName
	s.users[id].AvatarURL = avatarURL
	return nil
}

func (s *userStoreStub) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	s.users[id].Role = role
	return nil
}

func (s *userStoreStub) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	s.users[id].Status = status
	return nil
}

func (s *userStoreStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	s.users[id].Status = models.StatusDeleted
	return nil
}

func (s *userStoreStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

func (s *userStoreStub) CreateModerationAction(ctx context.Context, action *models.ModerationAction) error {
	s.moderation = append(s.moderation, *action)
	return nil
}

func (s *userStoreStub) ListModerationActions(ctx context.Context, userID string) ([]models.ModerationAction, error) {
	return s.moderation, nil
}

func (s *userStoreStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, *log)
	return nil
}

func adminActor(email string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: email, DisplayName: "Root"}
}

func member() *models.User {
	return &models.User{ID: "user-1", Email: "ann@example.com", DisplayName: "Ann", Role: models.RoleUser, Status: models.StatusActive}
}

func TestUserUpdateRoleRequiresAdmin(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, nil, nil)

	role := models.RoleReviewer
	_, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Role: &role, Reason: "trusted"},
		&models.JWTClaims{UserID: "user-2", Role: models.RoleReviewer}, "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateRoleRecordsModeration(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, nil, nil)

	role := models.RoleReviewer
	updated, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Role: &role, Reason: "trusted contributor"},
		adminActor("ops@example.com"), "10.0.0.1", "agent")
	require.NoError(t, err)
	require.Equal(t, models.RoleReviewer, updated.Role)
	require.Len(t, store.moderation, 1)
	require.Equal(t, models.ModerationRoleChange, store.moderation[0].Action)
	require.Equal(t, "USER", store.moderation[0].OldValue)
	require.Equal(t, "REVIEWER", store.moderation[0].NewValue)
	require.Len(t, store.audits, 1)
	require.Equal(t, models.AuditActionUserRoleChange, store.audits[0].Action)
}

func TestUserUpdateAdminRoleNeedsAllowlist(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, []string{"dev@example.com"}, nil)

	role := models.RoleAdmin
	_, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Role: &role, Reason: "promote"},
		adminActor("ops@example.com"), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Role: &role, Reason: "promote"},
		adminActor("dev@example.com"), "", "")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, store.users["user-1"].Role)
}

func TestUserUpdateAdminDemotionNeedsAllowlist(t *testing.T) {
	target := member()
	target.Role = models.RoleAdmin
	store := newUserStoreStub(target)
	svc := NewUserService(store, []string{"dev@example.com"}, nil)

	role := models.RoleUser
	_, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Role: &role, Reason: "rotate"},
		adminActor("ops@example.com"), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserSuspendRevokesSessions(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, nil, nil)

	status := models.StatusSuspended
	_, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Status: &status, Reason: "spam"},
		adminActor("ops@example.com"), "", "")
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, store.revoked)
	require.Len(t, store.moderation, 1)
	require.Equal(t, models.ModerationStatusChange, store.moderation[0].Action)
}

func TestUserStatusChangeRequiresReason(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, nil, nil)

	status := models.StatusRestricted
	_, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{Status: &status},
		adminActor("ops@example.com"), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserSelfProfileUpdate(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, nil, nil)

	name := "Ann M."
	updated, err := svc.Update(context.Background(), "user-1", dto.UpdateUserRequest{DisplayName: &name},
		&models.JWTClaims{UserID: "user-1", Role: models.RoleUser}, "", "")
	require.NoError(t, err)
	require.Equal(t, "Ann M.", updated.DisplayName)
	require.Empty(t, store.moderation)
}

func TestUserDeleteSoftDeletesAndRevokes(t *testing.T) {
	store := newUserStoreStub(member())
	svc := NewUserService(store, nil, nil)

	err := svc.Delete(context.Background(), "user-1", &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}, "", "")
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, store.deleted)
	require.Equal(t, []string{"user-1"}, store.revoked)

	err = svc.Delete(context.Background(), "user-1", adminActor("ops@example.com"), "", "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserStatsApprovalRateExcludesPending(t *testing.T) {
	user := member()
	user.SubmissionsCount = 10
	user.ApprovedCount = 6
	user.RejectedCount = 2
	store := newUserStoreStub(user)
	svc := NewUserService(store, nil, nil)

	stats, err := svc.Stats(context.Background(), "user-1", &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)
	require.InDelta(t, 0.75, stats.ApprovalRate, 1e-9)
}
