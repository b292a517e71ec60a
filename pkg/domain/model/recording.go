package model

import (
	"time"

	"github.com/google/uuid"
)

// RecordingID identifies an archived audio recording
type RecordingID string

// NewRecordingID generates a new time-ordered RecordingID
func NewRecordingID() RecordingID {
	return RecordingID(uuid.Must(uuid.NewV7()).String())
}

// Recording is metadata of archived audio captured for a note draft
type Recording struct {
	ID          RecordingID `json:"id"`
	SessionID   SessionID   `json:"session_id"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"content_type"`
	Size        int64       `json:"size"`
	CreatedAt   time.Time   `json:"created_at"`
}
