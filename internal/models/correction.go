package models

import (
	"time"

	"github.com/lib/pq"

	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
)

// CorrectionStatus captures workflow states for field corrections.
type CorrectionStatus string

const (
	CorrectionStatusPending    CorrectionStatus = "PENDING"
	CorrectionStatusApproved   CorrectionStatus = "APPROVED"
	CorrectionStatusRejected   CorrectionStatus = "REJECTED"
	CorrectionStatusSuperseded CorrectionStatus = "SUPERSEDED"
	// CorrectionStatusModified marks approvals where the reviewer adjusted
	// the proposed value before applying it.
	CorrectionStatusModified CorrectionStatus = "MODIFIED"
)

// Terminal reports whether the status permits no further transitions.
func (s CorrectionStatus) Terminal() bool {
	return s != CorrectionStatusPending
}

// ValidateTransition enforces the one-directional correction state machine:
// PENDING may move to any terminal state; terminal states never move again.
func ValidateTransition(from, to CorrectionStatus) error {
	if from != CorrectionStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "correction already reviewed")
	}
	switch to {
	case CorrectionStatusApproved, CorrectionStatusRejected, CorrectionStatusSuperseded, CorrectionStatusModified:
		return nil
	}
	return appErrors.Clone(appErrors.ErrValidation, "invalid correction status transition")
}

// CorrectionField enumerates the game fields open to community correction.
type CorrectionField string

const (
	FieldTitle          CorrectionField = "title"
	FieldReleaseDate    CorrectionField = "releaseDate"
	FieldDeveloper      CorrectionField = "developer"
	FieldPublisher      CorrectionField = "publisher"
	FieldGenre          CorrectionField = "genre"
	FieldStatus         CorrectionField = "status"
	FieldActivationType CorrectionField = "activationType"
	FieldServerStatus   CorrectionField = "serverStatus"
	FieldCoverURL       CorrectionField = "coverUrl"
	FieldDownloadURL    CorrectionField = "downloadUrl"
	FieldNotes          CorrectionField = "notes"
)

// EditableFields is the closed set of correction targets.
var EditableFields = map[CorrectionField]struct{}{
	FieldTitle:          {},
	FieldReleaseDate:    {},
	FieldDeveloper:      {},
	FieldPublisher:      {},
	FieldGenre:          {},
	FieldStatus:         {},
	FieldActivationType: {},
	FieldServerStatus:   {},
	FieldCoverURL:       {},
	FieldDownloadURL:    {},
	FieldNotes:          {},
}

// requiredFields may never be cleared with a null new value.
var requiredFields = map[CorrectionField]struct{}{
	FieldTitle:          {},
	FieldStatus:         {},
	FieldActivationType: {},
}

// Known reports whether the field belongs to the editable set.
func (f CorrectionField) Known() bool {
	_, ok := EditableFields[f]
	return ok
}

// Clearable reports whether a null new value is allowed for the field.
func (f CorrectionField) Clearable() bool {
	_, required := requiredFields[f]
	return !required
}

// Correction records one proposed change to one field of one game.
// Game title and submitter name are denormalized so notification payloads
// and listings survive later renames.
type Correction struct {
	ID            string           `db:"id" json:"id"`
	GameID        string           `db:"game_id" json:"gameId"`
	GameSlug      string           `db:"game_slug" json:"gameSlug"`
	GameTitle     string           `db:"game_title" json:"gameTitle"`
	SubmitterID   string           `db:"submitter_id" json:"submitterId"`
	SubmitterName string           `db:"submitter_name" json:"submitterName"`
	Field         CorrectionField  `db:"field" json:"field"`
	OldValue      *string          `db:"old_value" json:"oldValue,omitempty"`
	NewValue      *string          `db:"new_value" json:"newValue,omitempty"`
	Reason        string           `db:"reason" json:"reason"`
	Status        CorrectionStatus `db:"status" json:"status"`
	ReviewedBy    *string          `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewerName  *string          `db:"reviewer_name" json:"reviewerName,omitempty"`
	ReviewedAt    *time.Time       `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNotes   *string          `db:"review_notes" json:"reviewNotes,omitempty"`
	FinalValue    *string          `db:"final_value" json:"finalValue,omitempty"`
	MessageIDs    pq.StringArray   `db:"message_ids" json:"messageIds,omitempty"`
	SubmittedAt   time.Time        `db:"submitted_at" json:"submittedAt"`
}

// CorrectionFilter constrains listing queries.
type CorrectionFilter struct {
	Status      []CorrectionStatus
	GameSlug    string
	SubmitterID string
	Limit       int
	Offset      int
}
