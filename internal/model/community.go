package model

import "time"

// Community is a small group mirrored from a Planning Center group.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PCOGroupID  string    `json:"pco_group_id"`
	CreatedAt   time.Time `json:"created_at"`
}
