package recording

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned when a recording does not exist
var ErrNotFound = goerr.New("recording not found")

// RecordingIDKey is the error value key of a recording ID
const RecordingIDKey = "recording_id"
