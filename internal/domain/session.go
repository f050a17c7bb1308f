package domain

import "github.com/google/uuid"

// Session is the resolved identity of one authenticated connection.
// The connection ID distinguishes a live connection from a superseded one
// belonging to the same user.
type Session struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	ConnID      uuid.UUID `json:"-"`
}
