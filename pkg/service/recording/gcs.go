package recording

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// GCS archives recordings as objects <prefix>recordings/<id> in a bucket.
// Recording metadata is kept as object metadata.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.RecordingStore = (*GCS)(nil)

// GCSOption is a functional option for GCS
type GCSOption func(*GCS)

// WithObjectPrefix prepends prefix to every object name
func WithObjectPrefix(prefix string) GCSOption {
	return func(g *GCS) {
		g.prefix = prefix
	}
}

// NewGCS creates a store writing to bucket with default credentials
func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	g := &GCS{
		client: client,
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) objectName(id model.RecordingID) string {
	return path.Join(strings.TrimSuffix(g.prefix, "/"), "recordings", string(id))
}

// Save uploads audio under rec.ID and records its size on rec
func (g *GCS) Save(ctx context.Context, rec *model.Recording, audio io.Reader) error {
	if rec == nil || rec.ID == "" {
		return goerr.New("recording ID is required")
	}

	w := g.client.Bucket(g.bucket).Object(g.objectName(rec.ID)).NewWriter(ctx)
	w.ContentType = rec.ContentType
	w.Metadata = map[string]string{
		"session_id": string(rec.SessionID),
		"filename":   rec.Filename,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	n, err := io.Copy(w, audio)
	if err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to upload recording", goerr.V(RecordingIDKey, rec.ID))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize recording upload", goerr.V(RecordingIDKey, rec.ID))
	}
	rec.Size = n
	return nil
}

// Open downloads the audio of a recording
func (g *GCS) Open(ctx context.Context, id model.RecordingID) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.objectName(id)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "recording not found", goerr.V(RecordingIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to open recording", goerr.V(RecordingIDKey, id))
	}
	return r, nil
}

// Get returns the metadata of a recording
func (g *GCS) Get(ctx context.Context, id model.RecordingID) (*model.Recording, error) {
	attrs, err := g.client.Bucket(g.bucket).Object(g.objectName(id)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "recording not found", goerr.V(RecordingIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get recording attributes", goerr.V(RecordingIDKey, id))
	}

	rec := &model.Recording{
		ID:          id,
		SessionID:   model.SessionID(attrs.Metadata["session_id"]),
		Filename:    attrs.Metadata["filename"],
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		CreatedAt:   attrs.Created,
	}
	if v, ok := attrs.Metadata["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			rec.CreatedAt = t
		}
	}
	return rec, nil
}
