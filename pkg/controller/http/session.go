package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

const sessionCookieName = "medinotes_session"

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// sessionStore loads and saves sessions around an operation. Operations on
// the same session are serialized so that load-mutate-save never interleaves.
type sessionStore struct {
	repo interfaces.SessionRepository
	now  func() time.Time

	mu    sync.Mutex
	locks map[model.SessionID]*sessionLock
}

func newSessionStore(repo interfaces.SessionRepository, now func() time.Time) *sessionStore {
	return &sessionStore{
		repo:  repo,
		now:   now,
		locks: make(map[model.SessionID]*sessionLock),
	}
}

func (x *sessionStore) lock(id model.SessionID) func() {
	x.mu.Lock()
	l, ok := x.locks[id]
	if !ok {
		l = &sessionLock{}
		x.locks[id] = l
	}
	l.refs++
	x.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		x.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(x.locks, id)
		}
		x.mu.Unlock()
	}
}

// with runs fn on the session id, or on a new session when id is empty or
// unknown, and saves the result. The session actually used is returned.
func (x *sessionStore) with(ctx context.Context, id model.SessionID, fn func(s *model.Session)) (*model.Session, error) {
	if id == "" {
		id = model.NewSessionID()
	}
	unlock := x.lock(id)
	defer unlock()

	s, err := x.repo.Get(ctx, id)
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		s = model.NewSession(x.now())
		s.ID = id
		logging.From(ctx).Debug("session started", "session_id", id)
	case err != nil:
		return nil, goerr.Wrap(err, "failed to load session", goerr.V(model.SessionKey, id))
	}

	fn(s)

	s.UpdatedAt = x.now()
	if err := x.repo.Put(ctx, s); err != nil {
		return nil, goerr.Wrap(err, "failed to save session", goerr.V(model.SessionKey, id))
	}
	return s, nil
}

// requestedSession returns the session named by the request cookie. A missing
// or malformed cookie yields an empty ID, which starts a new session.
func requestedSession(r *http.Request) model.SessionID {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return model.SessionID(c.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, id model.SessionID) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    string(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
