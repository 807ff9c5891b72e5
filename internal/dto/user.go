package dto

import "github.com/gfwl-hub/gfwl-hub-api/internal/models"

// UpdateUserRequest mutates profile, role or status. Role/status changes are
// admin-only; profile fields are self-service.
type UpdateUserRequest struct {
	DisplayName *string            `json:"displayName"`
	AvatarURL   *string            `json:"avatarUrl"`
	Role        *models.UserRole   `json:"role"`
	Status      *models.UserStatus `json:"status"`
	Reason      string             `json:"reason"`
}

// UserProfileResponse is the self-service profile view with moderation history.
type UserProfileResponse struct {
	User       *models.User              `json:"user"`
	Stats      models.UserStats          `json:"stats"`
	Moderation []models.ModerationAction `json:"moderation,omitempty"`
}

// ExportResponse returns a signed download link for a generated export.
type ExportResponse struct {
	Format    string `json:"format"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
