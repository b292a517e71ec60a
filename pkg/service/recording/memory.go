package recording

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

type memoryEntry struct {
	meta model.Recording
	data []byte
}

// Memory keeps recordings in process memory
type Memory struct {
	mu      sync.RWMutex
	entries map[model.RecordingID]*memoryEntry
}

var _ interfaces.RecordingStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[model.RecordingID]*memoryEntry),
	}
}

// Save stores audio under rec.ID and records its size on rec
func (m *Memory) Save(ctx context.Context, rec *model.Recording, audio io.Reader) error {
	if rec == nil || rec.ID == "" {
		return goerr.New("recording ID is required")
	}

	data, err := io.ReadAll(audio)
	if err != nil {
		return goerr.Wrap(err, "failed to read audio", goerr.V(RecordingIDKey, rec.ID))
	}
	rec.Size = int64(len(data))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[rec.ID] = &memoryEntry{meta: *rec, data: data}
	return nil
}

// Open returns the audio of a recording
func (m *Memory) Open(ctx context.Context, id model.RecordingID) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "recording not found", goerr.V(RecordingIDKey, id))
	}
	return io.NopCloser(bytes.NewReader(entry.data)), nil
}

// Get returns the metadata of a recording
func (m *Memory) Get(ctx context.Context, id model.RecordingID) (*model.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "recording not found", goerr.V(RecordingIDKey, id))
	}
	meta := entry.meta
	return &meta, nil
}
