package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Input errors
	ErrEmptyText        = errors.New("note text is empty")
	ErrEmptyPatientName = errors.New("patient name is empty")
	ErrInvalidSummary   = errors.New("edited summary cannot be parsed")

	// Not found errors
	ErrNoteNotFound     = errors.New("note not found")
	ErrFollowUpNotFound = errors.New("no follow-up actions for note")

	// Confirmation errors
	ErrConfirmationRequired = errors.New("deletion requires confirmation")
)

// Context keys for error values
const (
	NoteIDKey    = "note_id"
	SessionIDKey = "session_id"
	FilenameKey  = "filename"
)
