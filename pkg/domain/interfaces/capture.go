package interfaces

import (
	"context"
	"io"
)

// SpeechEvent is one recognition result. Final segments are appended to the transcript.
type SpeechEvent struct {
	Text  string
	Final bool
}

// SpeechRecognizer is a continuous, interim-enabled speech-to-text capability.
// The event channel is closed when recognition ends, either on Stop or by end
// of speech. The error channel reports recognition failures and is closed with it.
type SpeechRecognizer interface {
	Start(ctx context.Context) (<-chan SpeechEvent, <-chan error, error)
	Stop(ctx context.Context) error
}

// AudioRecorder captures audio from a microphone-like source
type AudioRecorder interface {
	Start(ctx context.Context) error
	// Stop ends capture and returns the recorded audio
	Stop(ctx context.Context) (io.Reader, error)
}
