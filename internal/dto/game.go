package dto

// CreateGameRequest registers a new title in the catalogue.
type CreateGameRequest struct {
	Slug           string  `json:"slug" binding:"required"`
	Title          string  `json:"title" binding:"required"`
	ReleaseDate    *string `json:"releaseDate"`
	Developer      *string `json:"developer"`
	Publisher      *string `json:"publisher"`
	Genre          *string `json:"genre"`
	Status         *string `json:"status"`
	ActivationType *string `json:"activationType"`
	ServerStatus   *string `json:"serverStatus"`
	CoverURL       *string `json:"coverUrl"`
	DownloadURL    *string `json:"downloadUrl"`
	Notes          *string `json:"notes"`
}

// UpdateGameRequest patches catalogue fields directly (admin only; audited).
type UpdateGameRequest struct {
	Title          *string `json:"title"`
	ReleaseDate    *string `json:"releaseDate"`
	Developer      *string `json:"developer"`
	Publisher      *string `json:"publisher"`
	Genre          *string `json:"genre"`
	Status         *string `json:"status"`
	ActivationType *string `json:"activationType"`
	ServerStatus   *string `json:"serverStatus"`
	CoverURL       *string `json:"coverUrl"`
	DownloadURL    *string `json:"downloadUrl"`
	Notes          *string `json:"notes"`
}

// GameQuery mirrors supported listing filters.
type GameQuery struct {
	Search    string
	Published *bool
	Page      int
	PageSize  int
}
