package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
)

// MaxRecordingSize bounds audio read by FileRecorder
const MaxRecordingSize = 100 << 20

// FileRecorder stands in for a microphone with an audio file that was
// recorded elsewhere. Start checks the file is readable, Stop returns its content.
type FileRecorder struct {
	path string

	mu      sync.Mutex
	started bool
}

var _ interfaces.AudioRecorder = (*FileRecorder)(nil)

// NewFileRecorder creates a recorder reading path
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

// Start checks that the audio source is available
func (x *FileRecorder) Start(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := os.Open(x.path)
	if err != nil {
		return openError(err, x.path)
	}
	safe.Close(ctx, f)

	x.started = true
	return nil
}

// Stop returns the recorded audio
func (x *FileRecorder) Stop(ctx context.Context) (io.Reader, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.started {
		return nil, nil
	}
	x.started = false

	f, err := os.Open(x.path)
	if err != nil {
		return nil, openError(err, x.path)
	}
	defer safe.Close(ctx, f)

	data, err := safe.ReadAll(f, MaxRecordingSize)
	if err != nil {
		return nil, goerr.Wrap(ErrCaptureFailed, "failed to read recording", goerr.V("path", x.path), goerr.V("error", err.Error()))
	}
	return bytes.NewReader(data), nil
}

func openError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return goerr.Wrap(ErrNoMicrophone, "audio source not found", goerr.V("path", path))
	case errors.Is(err, fs.ErrPermission):
		return goerr.Wrap(ErrPermissionDenied, "audio source not readable", goerr.V("path", path))
	default:
		return goerr.Wrap(ErrCaptureFailed, "failed to open audio source", goerr.V("path", path), goerr.V("error", err.Error()))
	}
}
