package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrBooleanNoteID   = goerr.New("note ID is a boolean")
	ErrInvalidNoteID   = goerr.New("invalid note ID")
	ErrInvalidSummary  = goerr.New("invalid summary")
	ErrNoOpenNote      = goerr.New("no note is open")
	ErrNoteNotInView   = goerr.New("note is not in the session")
	ErrInvalidFollowUp = goerr.New("invalid follow-up action set")
	ErrSessionNotFound = goerr.New("session not found")
)

// Context keys for error values
const (
	NoteIDKey  = "note_id"
	RawIDKey   = "raw_id"
	SessionKey = "session_id"
)
