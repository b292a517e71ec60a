package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/extract"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
)

type UseCases struct {
	backend    interfaces.NotesBackend
	notifier   interfaces.Notifier
	extractor  interfaces.PatientExtractor
	recordings interfaces.RecordingStore
	now        func() time.Time

	Note     *NoteUseCase
	FollowUp *FollowUpUseCase
	History  *HistoryUseCase
	Capture  *CaptureUseCase
}

type Option func(*UseCases)

// WithNotifier presents notifications immediately in addition to queueing them on the session
func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

// WithExtractor replaces the pattern based patient extractor
func WithExtractor(extractor interfaces.PatientExtractor) Option {
	return func(uc *UseCases) {
		uc.extractor = extractor
	}
}

// WithRecordingStore archives uploaded and captured audio
func WithRecordingStore(store interfaces.RecordingStore) Option {
	return func(uc *UseCases) {
		uc.recordings = store
	}
}

// WithClock overrides the time source of notifications and exports
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(backend interfaces.NotesBackend, opts ...Option) *UseCases {
	uc := &UseCases{
		backend:   backend,
		extractor: extract.NewRegex(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	b := &base{backend: backend, notifier: uc.notifier, now: uc.now}
	uc.Note = NewNoteUseCase(b)
	uc.FollowUp = NewFollowUpUseCase(b)
	uc.History = NewHistoryUseCase(b, uc.extractor)
	uc.Capture = NewCaptureUseCase(b, uc.History, uc.recordings)

	return uc
}

// Wait blocks until background summary pushes have finished or ctx is done
func (uc *UseCases) Wait(ctx context.Context) error {
	return uc.Note.Wait(ctx)
}

// base holds what every use case shares: the backend and the way notifications reach the user
type base struct {
	backend  interfaces.NotesBackend
	notifier interfaces.Notifier
	now      func() time.Time
}

func (b *base) notify(ctx context.Context, s *model.Session, level types.NotificationLevel, msg string) {
	n := s.Notify(level, msg, b.now())
	if b.notifier != nil {
		b.notifier.Notify(ctx, n)
	}
}

// findNote returns the note from the session view, loading the list from the
// backend when the session does not show it yet.
func (b *base) findNote(ctx context.Context, s *model.Session, id model.NoteID) (*model.Note, error) {
	if note := s.FindNote(id); note != nil {
		return note, nil
	}

	notes, err := b.backend.ListNotes(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load notes", goerr.V(NoteIDKey, id))
	}
	s.SetNotes(model.FilterDisplayable(notes))

	if note := s.FindNote(id); note != nil {
		return note, nil
	}
	return nil, goerr.Wrap(ErrNoteNotFound, "note is not available", goerr.V(NoteIDKey, id))
}

// reason returns the backend's own explanation of a failure when it gave one
func reason(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		ge, ok := e.(*goerr.Error)
		if !ok {
			continue
		}
		if msg, ok := ge.Values()[notesapi.MessageKey].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return err.Error()
}
