package notesapi

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrBackendRejected is returned when the backend answers with an error status
	ErrBackendRejected = goerr.New("notes backend rejected the request")

	// ErrInsufficientData is returned when the backend cannot analyze treatment efficacy
	ErrInsufficientData = goerr.New("insufficient data for analysis")

	// ErrNotAudio is returned when an upload is not recognizable audio
	ErrNotAudio = goerr.New("file is not an audio file")
)

// Keys for error values
const (
	RouteKey      = "route"
	StatusCodeKey = "status_code"
	MessageKey    = "message"
)
