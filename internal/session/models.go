// Package session owns edit sessions: persistence of edits and their decision
// lists, and the live playback session actor that wires the EDL, history,
// buffer, controller and streaming adapter together.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Edit is a persisted edit: a named decision list over one source video.
type Edit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SourceRef string    `json:"source_ref"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a fresh identifier for edits, decisions and sessions.
func NewID() string {
	return uuid.NewString()
}
