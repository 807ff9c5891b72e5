package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleReviewer UserRole = "REVIEWER"
	RoleUser     UserRole = "USER"
)

// UserStatus captures the account standing of a hub member.
type UserStatus string

const (
	StatusActive     UserStatus = "ACTIVE"
	StatusSuspended  UserStatus = "SUSPENDED"
	StatusRestricted UserStatus = "RESTRICTED"
	StatusBlocked    UserStatus = "BLOCKED"
	StatusDeleted    UserStatus = "DELETED"
)

// CanSubmit reports whether the account standing permits new correction submissions.
func (s UserStatus) CanSubmit() bool {
	return s == StatusActive || s == StatusRestricted
}

// User represents a hub member stored in the users table. Accounts are created
// through OAuth sign-in; there is no local password.
type User struct {
	ID               string     `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	DisplayName      string     `db:"display_name" json:"display_name"`
	AvatarURL        string     `db:"avatar_url" json:"avatar_url,omitempty"`
	Provider         string     `db:"provider" json:"provider"`
	ProviderID       string     `db:"provider_id" json:"-"`
	Role             UserRole   `db:"role" json:"role"`
	Status           UserStatus `db:"status" json:"status"`
	SubmissionsCount int        `db:"submissions_count" json:"submissions_count"`
	ApprovedCount    int        `db:"approved_count" json:"approved_count"`
	RejectedCount    int        `db:"rejected_count" json:"rejected_count"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsPrivileged reports whether the user may see and review other users' corrections.
func (u *User) IsPrivileged() bool {
	return u.Role == RoleReviewer || u.Role == RoleAdmin
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UserStats summarises a member's contribution record. The approval rate
// excludes pending submissions from the denominator.
type UserStats struct {
	SubmissionsCount int     `json:"submissions_count"`
	ApprovedCount    int     `json:"approved_count"`
	RejectedCount    int     `json:"rejected_count"`
	ApprovalRate     float64 `json:"approval_rate"`
}

// Rate computes the approval ratio over fully reviewed submissions.
func (s UserStats) Rate() float64 {
	reviewed := s.ApprovedCount + s.RejectedCount
	if reviewed == 0 {
		return 0
	}
	return float64(s.ApprovedCount) / float64(reviewed)
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
