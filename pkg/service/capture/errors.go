package capture

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
)

// Capture failures. None of them end the session: the user can always type notes instead.
var (
	ErrSpeechUnsupported = goerr.New("speech recognition is not supported")
	ErrPermissionDenied  = goerr.New("microphone permission denied")
	ErrNoSpeech          = goerr.New("no speech detected")
	ErrNoMicrophone      = goerr.New("no microphone found")
	ErrCaptureFailed     = goerr.New("audio capture failed")

	ErrAlreadyStarted = goerr.New("capture already started")
)

type failure struct {
	err     error
	level   types.NotificationLevel
	message string
}

var failures = []failure{
	{ErrSpeechUnsupported, types.NotificationWarning, "Speech recognition is not supported here. Please type your notes instead."},
	{ErrPermissionDenied, types.NotificationError, "Microphone access was denied. Allow microphone access to record audio."},
	{ErrNoSpeech, types.NotificationWarning, "No speech was detected. Please try again."},
	{ErrNoMicrophone, types.NotificationError, "No microphone was found. Connect a microphone and try again."},
	{ErrCaptureFailed, types.NotificationError, "Audio capture failed. You can still type your notes."},
}

// classify maps err onto the capture taxonomy. Unknown errors are capture failures.
func classify(err error) failure {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f
		}
	}
	return failure{
		err:     goerr.Wrap(ErrCaptureFailed, err.Error()),
		level:   types.NotificationError,
		message: failures[len(failures)-1].message,
	}
}
