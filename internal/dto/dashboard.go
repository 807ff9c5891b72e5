package dto

import "github.com/gfwl-hub/gfwl-hub-api/internal/models"

// ReviewerDashboard summarises the review queue.
type ReviewerDashboard struct {
	PendingCount  int                 `json:"pending_count"`
	OldestPending *models.Correction  `json:"oldest_pending,omitempty"`
	Recent        []models.Correction `json:"recent"`
}

// UserDashboard summarises a member's own submissions.
type UserDashboard struct {
	Stats  models.UserStats    `json:"stats"`
	Recent []models.Correction `json:"recent"`
}

// AdminDashboard adds catalogue totals on top of the review queue.
type AdminDashboard struct {
	ReviewerDashboard
	TotalGames     int `json:"total_games"`
	PublishedGames int `json:"published_games"`
	TotalUsers     int `json:"total_users"`
}
