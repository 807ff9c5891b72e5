package dto

// UpsertFAQRequest creates or updates a help entry.
type UpsertFAQRequest struct {
	Question  string `json:"question" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
	Category  string `json:"category"`
	Position  int    `json:"position"`
	Published bool   `json:"published"`
}
