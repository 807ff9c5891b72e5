package models

import "time"

// ModerationAction types.
const (
	ModerationRoleChange   = "ROLE_CHANGE"
	ModerationStatusChange = "STATUS_CHANGE"
)

// ModerationAction is an append-only record of a role or status change on a
// user account.
type ModerationAction struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	ActorName string    `db:"actor_name" json:"actor_name"`
	Action    string    `db:"action" json:"action"`
	OldValue  string    `db:"old_value" json:"old_value"`
	NewValue  string    `db:"new_value" json:"new_value"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
