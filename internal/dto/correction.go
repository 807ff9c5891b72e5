package dto

import "github.com/gfwl-hub/gfwl-hub-api/internal/models"

// CreateCorrectionRequest is the payload for proposing a field edit.
// A nil NewValue clears the field (rejected for title/status/activationType).
type CreateCorrectionRequest struct {
	GameID   string                 `json:"gameId" binding:"required"`
	GameSlug string                 `json:"gameSlug" binding:"required"`
	Field    models.CorrectionField `json:"field" binding:"required"`
	NewValue *string                `json:"newValue"`
	Reason   string                 `json:"reason" binding:"required"`
}

// ReviewCorrectionRequest captures reviewer decision, optional notes and an
// optional final-value override applied instead of the proposed value.
type ReviewCorrectionRequest struct {
	Status     models.CorrectionStatus `json:"status" binding:"required"`
	Notes      string                  `json:"notes"`
	FinalValue *string                 `json:"finalValue"`
}

// CorrectionQuery mirrors supported listing filters.
type CorrectionQuery struct {
	Status   []models.CorrectionStatus
	GameSlug string
	UserID   string
	Limit    int
	Offset   int
}
