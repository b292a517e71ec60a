package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// Repository defines the interface for client-side persistence
type Repository interface {
	Session() SessionRepository
	Close() error
}

// SessionRepository stores view-model sessions
type SessionRepository interface {
	// Get retrieves a session by ID. A missing session is model.ErrSessionNotFound.
	Get(ctx context.Context, id model.SessionID) (*model.Session, error)

	// Put creates or replaces a session
	Put(ctx context.Context, session *model.Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id model.SessionID) error

	// DeleteIdle removes sessions not updated since before and returns how many were removed
	DeleteIdle(ctx context.Context, before time.Time) (int, error)
}
