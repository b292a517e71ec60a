package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/usecase"
)

type Server struct {
	router       *chi.Mux
	uc           *usecase.UseCases
	sessions     *sessionStore
	secureCookie bool
	now          func() time.Time
}

type Options func(*Server)

// WithSecureCookie marks the session cookie Secure regardless of the request scheme
func WithSecureCookie(secure bool) Options {
	return func(s *Server) {
		s.secureCookie = secure
	}
}

// WithClock overrides the time source used for new sessions and UpdatedAt
func WithClock(now func() time.Time) Options {
	return func(s *Server) {
		s.now = now
	}
}

func New(uc *usecase.UseCases, repo interfaces.SessionRepository, opts ...Options) (*Server, error) {
	if uc == nil || repo == nil {
		return nil, goerr.New("use cases and session repository are required")
	}

	r := chi.NewRouter()
	s := &Server{
		router: r,
		uc:     uc,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newSessionStore(repo, s.now)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handle(s.getSession))

		r.Get("/notes", s.handleStaged(s.listNotes))
		r.Post("/notes", s.handleStaged(s.submitNote))
		r.Delete("/notes/open", s.handle(s.closeNote))
		r.Route("/notes/{id}", func(r chi.Router) {
			r.Put("/", s.handleStaged(s.saveEditedNote))
			r.Delete("/", s.handleStaged(s.deleteNote))
			r.Post("/edit", s.handle(s.startEditingNote))
			r.Post("/open", s.handleStaged(s.openNote))
			r.Post("/summary/edit", s.handle(s.beginSummaryEdit))
			r.Delete("/summary/edit", s.handle(s.cancelSummaryEdit))
			r.Put("/summary", s.handle(s.saveEditedSummary))
			r.Get("/follow-up", s.handleStaged(s.getFollowUp))
			r.Post("/follow-up", s.handleStaged(s.generateFollowUp))
		})

		r.Delete("/capture/edit", s.handle(s.cancelEditingNote))
		r.Post("/capture/transcript", s.endCapture)
		r.Post("/capture/audio", s.transcribe)
		r.Delete("/history", s.handle(s.clearHistory))
		r.Post("/efficacy", s.handleStaged(s.analyzeEfficacy))
	})

	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/summary", s.download(immediate(s.summaryDocument)))
		r.Get("/export", s.download(immediate(s.exportSummary)))
		r.Get("/follow-up/export", s.download(s.exportFollowUp))
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
