package interfaces

import (
	"context"
	"io"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// RecordingStore archives captured audio
type RecordingStore interface {
	Save(ctx context.Context, rec *model.Recording, audio io.Reader) error
	Open(ctx context.Context, id model.RecordingID) (io.ReadCloser, error)
}
