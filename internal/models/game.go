package models

import "time"

// GameStatus tracks the playability of a title on modern systems.
type GameStatus string

const (
	GameStatusPlayable    GameStatus = "PLAYABLE"
	GameStatusIssues      GameStatus = "ISSUES"
	GameStatusBroken      GameStatus = "BROKEN"
	GameStatusUnconfirmed GameStatus = "UNCONFIRMED"
)

// ActivationType distinguishes how a title activates against the legacy service.
type ActivationType string

const (
	ActivationSSA    ActivationType = "SSA"
	ActivationPerKey ActivationType = "5x5"
	ActivationLegacy ActivationType = "LEGACY"
	ActivationNone   ActivationType = "NONE"
)

// Game represents one catalogued title.
type Game struct {
	ID             string     `db:"id" json:"id"`
	Slug           string     `db:"slug" json:"slug"`
	Title          string     `db:"title" json:"title"`
	ReleaseDate    *string    `db:"release_date" json:"releaseDate,omitempty"`
	Developer      *string    `db:"developer" json:"developer,omitempty"`
	Publisher      *string    `db:"publisher" json:"publisher,omitempty"`
	Genre          *string    `db:"genre" json:"genre,omitempty"`
	Status         *string    `db:"status" json:"status,omitempty"`
	ActivationType *string    `db:"activation_type" json:"activationType,omitempty"`
	ServerStatus   *string    `db:"server_status" json:"serverStatus,omitempty"`
	CoverURL       *string    `db:"cover_url" json:"coverUrl,omitempty"`
	DownloadURL    *string    `db:"download_url" json:"downloadUrl,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	Published      bool       `db:"published" json:"published"`
	PublishedAt    *time.Time `db:"published_at" json:"publishedAt,omitempty"`
	PublishedBy    *string    `db:"published_by" json:"publishedBy,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// FieldValue returns the current value of an editable field, nil when unset.
func (g *Game) FieldValue(field CorrectionField) *string {
	switch field {
	case FieldTitle:
		title := g.Title
		return &title
	case FieldReleaseDate:
		return g.ReleaseDate
	case FieldDeveloper:
		return g.Developer
	case FieldPublisher:
		return g.Publisher
	case FieldGenre:
		return g.Genre
	case FieldStatus:
		return g.Status
	case FieldActivationType:
		return g.ActivationType
	case FieldServerStatus:
		return g.ServerStatus
	case FieldCoverURL:
		return g.CoverURL
	case FieldDownloadURL:
		return g.DownloadURL
	case FieldNotes:
		return g.Notes
	}
	return nil
}

// MissingPublishFields lists required fields still empty, blocking publication.
func (g *Game) MissingPublishFields() []string {
	missing := make([]string, 0, 4)
	if g.Title == "" {
		missing = append(missing, "title")
	}
	if g.ReleaseDate == nil || *g.ReleaseDate == "" {
		missing = append(missing, "releaseDate")
	}
	if g.Developer == nil || *g.Developer == "" {
		missing = append(missing, "developer")
	}
	if g.Publisher == nil || *g.Publisher == "" {
		missing = append(missing, "publisher")
	}
	return missing
}

// GameFilter constrains game listing queries.
type GameFilter struct {
	Search    string
	Published *bool
	Page      int
	PageSize  int
}
