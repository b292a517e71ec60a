package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/summarydoc"
	"github.com/secmon-lab/medinotes/pkg/utils/async"
	"github.com/secmon-lab/medinotes/pkg/utils/errutil"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// NoteUseCase manages note cards, the capture area edit marker and the detail view of a session
type NoteUseCase struct {
	*base
	pending sync.WaitGroup
}

// NewNoteUseCase creates a new NoteUseCase instance
func NewNoteUseCase(b *base) *NoteUseCase {
	return &NoteUseCase{base: b}
}

// LoadNotes replaces the session's cards with the displayable notes of the backend.
// A transport failure leaves the session empty, like an empty result, and is returned.
func (uc *NoteUseCase) LoadNotes(ctx context.Context, s *model.Session) ([]*model.Note, error) {
	return uc.StageLoadNotes(ctx, s).Run(ctx, s)
}

// StageLoadNotes is LoadNotes with the backend call separated from the session
func (uc *NoteUseCase) StageLoadNotes(_ context.Context, _ *model.Session) *Staged[[]*model.Note] {
	var (
		notes   []*model.Note
		listErr error
	)
	return &Staged[[]*model.Note]{
		call: func(ctx context.Context) {
			notes, listErr = uc.backend.ListNotes(ctx)
		},
		apply: func(ctx context.Context, s *model.Session) ([]*model.Note, error) {
			if listErr != nil {
				s.SetNotes(nil)
				return nil, errutil.Handle(ctx, goerr.Wrap(listErr, "failed to load notes", goerr.V(SessionIDKey, s.ID)), "failed to load notes")
			}

			displayable := model.FilterDisplayable(notes)
			if dropped := len(notes) - len(displayable); dropped > 0 {
				logging.From(ctx).Debug("skipped degenerate notes", "count", dropped)
			}
			s.SetNotes(displayable)
			return s.Notes, nil
		},
	}
}

// Submit saves the capture area text: as an edit when a note is being edited, else as a new note
func (uc *NoteUseCase) Submit(ctx context.Context, s *model.Session, text string) (*model.Note, error) {
	st, err := uc.StageSubmit(ctx, s, text)
	return run(ctx, s, st, err)
}

// StageSubmit is Submit with the backend call separated from the session
func (uc *NoteUseCase) StageSubmit(ctx context.Context, s *model.Session, text string) (*Staged[*model.Note], error) {
	if s.IsEditingNote() {
		return uc.StageSaveEditedNote(ctx, s, s.Capture.EditingNoteID, text)
	}
	return uc.StageSaveNote(ctx, s, text)
}

// SaveNote persists a new note with the session's imported history and puts its card on top
func (uc *NoteUseCase) SaveNote(ctx context.Context, s *model.Session, text string) (*model.Note, error) {
	st, err := uc.StageSaveNote(ctx, s, text)
	return run(ctx, s, st, err)
}

// StageSaveNote is SaveNote with the backend call separated from the session.
// The history imported when the save starts is the one sent.
func (uc *NoteUseCase) StageSaveNote(ctx context.Context, s *model.Session, text string) (*Staged[*model.Note], error) {
	if strings.TrimSpace(text) == "" {
		uc.notify(ctx, s, types.NotificationWarning, "Please record or type a note first")
		return nil, goerr.Wrap(ErrEmptyText, "cannot save an empty note")
	}
	s.Capture.Text = text
	history := s.ImportedHistory.Clone()

	var (
		note    *model.Note
		saveErr error
	)
	return &Staged[*model.Note]{
		call: func(ctx context.Context) {
			note, saveErr = uc.backend.SaveNote(ctx, text, history)
		},
		apply: func(ctx context.Context, s *model.Session) (*model.Note, error) {
			if saveErr != nil {
				uc.notify(ctx, s, types.NotificationError, "Failed to save note: "+reason(saveErr))
				return nil, goerr.Wrap(saveErr, "failed to save note", goerr.V(SessionIDKey, s.ID))
			}

			s.AddNote(note)
			s.ClearHistory()
			s.Capture = model.CaptureArea{}
			uc.notify(ctx, s, types.NotificationSuccess, "Note saved successfully")

			logging.From(ctx).Info("note saved", "note_id", note.ID, "temp_id", note.ID.IsTemp())
			return note, nil
		},
	}, nil
}

// StartEditingNote loads the original text of a displayed note into the capture area
func (uc *NoteUseCase) StartEditingNote(ctx context.Context, s *model.Session, id model.NoteID) (*model.Note, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	note, err := uc.findNote(ctx, s, id)
	if err != nil {
		return nil, err
	}

	s.StartEditingNote(note)
	uc.notify(ctx, s, types.NotificationInfo, "Editing note for "+note.PatientName()+". Make changes and click Save.")
	return note, nil
}

// CancelEditingNote returns the capture area to idle without saving
func (uc *NoteUseCase) CancelEditingNote(_ context.Context, s *model.Session) {
	s.FinishEditingNote()
}

// SaveEditedNote replaces the original text of a note. The edit marker and the
// in-progress text are cleared only when the backend accepted the edit.
func (uc *NoteUseCase) SaveEditedNote(ctx context.Context, s *model.Session, id model.NoteID, text string) (*model.Note, error) {
	st, err := uc.StageSaveEditedNote(ctx, s, id, text)
	return run(ctx, s, st, err)
}

// StageSaveEditedNote is SaveEditedNote with the backend calls separated from
// the session. An edit acknowledged without the re-summarized note is
// followed by a reload of the list.
func (uc *NoteUseCase) StageSaveEditedNote(ctx context.Context, s *model.Session, id model.NoteID, text string) (*Staged[*model.Note], error) {
	if err := id.Validate(); err != nil {
		uc.notify(ctx, s, types.NotificationError, "Error: Note ID not found")
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		uc.notify(ctx, s, types.NotificationWarning, "Please enter some text for the note")
		return nil, goerr.Wrap(ErrEmptyText, "cannot save an empty edit", goerr.V(NoteIDKey, id))
	}
	if s.Capture.EditingNoteID == id {
		s.Capture.Text = text
	}

	var (
		note      *model.Note
		saveErr   error
		reloaded  []*model.Note
		reloadErr error
	)
	return &Staged[*model.Note]{
		call: func(ctx context.Context) {
			if note, saveErr = uc.backend.SaveEditedNote(ctx, id, text); saveErr != nil || note == nil || note.Summary != nil {
				return
			}
			reloaded, reloadErr = uc.backend.ListNotes(ctx)
		},
		apply: func(ctx context.Context, s *model.Session) (*model.Note, error) {
			if saveErr != nil {
				uc.notify(ctx, s, types.NotificationError, "Failed to save edited note: "+reason(saveErr))
				return nil, goerr.Wrap(saveErr, "failed to save edited note", goerr.V(NoteIDKey, id))
			}

			edited := note
			if edited == nil {
				return nil, goerr.Wrap(ErrNoteNotFound, "backend accepted the edit without identifying the note", goerr.V(NoteIDKey, id))
			}
			if edited.Summary == nil {
				edited = resolveEdited(ctx, s, note, reloaded, reloadErr)
			}

			if !s.ReplaceNote(edited) {
				s.AddNote(edited)
			}
			if s.IsOpen(edited.ID) {
				s.Open.Summary = model.Prepare(edited.Summary)
			}
			if s.Capture.EditingNoteID == id {
				s.FinishEditingNote()
			}
			uc.notify(ctx, s, types.NotificationSuccess, "Note updated successfully")
			return edited, nil
		},
	}, nil
}

// resolveEdited completes an edit acknowledged without the re-summarized note
// from the reloaded list. When the reload failed the card keeps its previous summary.
func resolveEdited(ctx context.Context, s *model.Session, edited *model.Note, reloaded []*model.Note, reloadErr error) *model.Note {
	prev := s.FindNote(edited.ID).Clone()

	if reloadErr == nil {
		s.SetNotes(model.FilterDisplayable(reloaded))
		if note := s.FindNote(edited.ID); note != nil {
			return note.Clone()
		}
	} else {
		logging.From(ctx).Warn("failed to reload notes after edit", "note_id", edited.ID, "error", reloadErr)
	}

	if prev == nil {
		return edited
	}
	merged := edited.Clone()
	merged.Summary = prev.Summary
	merged.CreatedAt = prev.CreatedAt
	return merged
}

// DeleteNote removes a note. Nothing is sent to the backend unless confirmed.
func (uc *NoteUseCase) DeleteNote(ctx context.Context, s *model.Session, id model.NoteID, confirmed bool) error {
	st, err := uc.StageDeleteNote(ctx, s, id, confirmed)
	_, err = run(ctx, s, st, err)
	return err
}

// StageDeleteNote is DeleteNote with the backend call separated from the session
func (uc *NoteUseCase) StageDeleteNote(_ context.Context, _ *model.Session, id model.NoteID, confirmed bool) (*Staged[model.NoteID], error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, goerr.Wrap(ErrConfirmationRequired, "note deletion was not confirmed", goerr.V(NoteIDKey, id))
	}

	var deleteErr error
	return &Staged[model.NoteID]{
		call: func(ctx context.Context) {
			deleteErr = uc.backend.DeleteNote(ctx, id)
		},
		apply: func(ctx context.Context, s *model.Session) (model.NoteID, error) {
			if deleteErr != nil {
				uc.notify(ctx, s, types.NotificationError, "Error deleting note: "+reason(deleteErr)+". Please try again.")
				return "", goerr.Wrap(deleteErr, "failed to delete note", goerr.V(NoteIDKey, id))
			}

			s.RemoveNote(id)
			if s.Capture.EditingNoteID == id {
				s.FinishEditingNote()
			}
			uc.notify(ctx, s, types.NotificationSuccess, "Note deleted successfully")
			return id, nil
		},
	}, nil
}

// OpenNote expands a note in the detail view together with its existing
// follow-up actions. A missing follow-up set leaves the panel empty.
func (uc *NoteUseCase) OpenNote(ctx context.Context, s *model.Session, id model.NoteID) (*model.OpenNote, error) {
	st, err := uc.StageOpenNote(ctx, s, id)
	return run(ctx, s, st, err)
}

// StageOpenNote is OpenNote with the backend calls separated from the session.
// The list is fetched only when the session does not show the note.
func (uc *NoteUseCase) StageOpenNote(_ context.Context, s *model.Session, id model.NoteID) (*Staged[*model.OpenNote], error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	shown := s.FindNote(id) != nil

	var (
		listed   []*model.Note
		followUp *model.FollowUpActionSet
		fetchErr error
	)
	return &Staged[*model.OpenNote]{
		call: func(ctx context.Context) {
			eg, egCtx := errgroup.WithContext(ctx)
			if !shown {
				eg.Go(func() error {
					notes, err := uc.backend.ListNotes(egCtx)
					if err != nil {
						return goerr.Wrap(err, "failed to load notes", goerr.V(NoteIDKey, id))
					}
					listed = model.FilterDisplayable(notes)
					return nil
				})
			}
			eg.Go(func() error {
				set, err := uc.backend.GetFollowUp(egCtx, id)
				if err != nil {
					errutil.Handle(egCtx, goerr.Wrap(err, "failed to get follow-up actions", goerr.V(NoteIDKey, id)), "follow-up fetch failed")
					return nil
				}
				followUp = set
				return nil
			})
			fetchErr = eg.Wait()
		},
		apply: func(ctx context.Context, s *model.Session) (*model.OpenNote, error) {
			if fetchErr != nil {
				uc.notify(ctx, s, types.NotificationError, "Failed to open note: "+reason(fetchErr))
				return nil, fetchErr
			}

			note := s.FindNote(id)
			if note == nil && !shown {
				s.SetNotes(listed)
				note = s.FindNote(id)
			}
			if note == nil {
				return nil, goerr.Wrap(ErrNoteNotFound, "cannot open note", goerr.V(NoteIDKey, id))
			}

			s.OpenNote(note)
			s.SetFollowUp(id, followUp)
			return s.Open, nil
		},
	}, nil
}

// CloseNote collapses the detail view
func (uc *NoteUseCase) CloseNote(_ context.Context, s *model.Session) {
	s.CloseNote()
}

// BeginSummaryEdit switches the open note to summary editing and returns the editable document
func (uc *NoteUseCase) BeginSummaryEdit(_ context.Context, s *model.Session, id model.NoteID) (string, error) {
	if err := s.BeginSummaryEdit(id); err != nil {
		return "", err
	}
	return summarydoc.Render(s.Open.Summary)
}

// CancelSummaryEdit leaves summary editing without changes
func (uc *NoteUseCase) CancelSummaryEdit(_ context.Context, s *model.Session, id model.NoteID) {
	s.CancelSummaryEdit(id)
}

// RenderSummary returns the summary document of a note
func (uc *NoteUseCase) RenderSummary(ctx context.Context, s *model.Session, id model.NoteID) (string, error) {
	note, err := uc.findNote(ctx, s, id)
	if err != nil {
		return "", err
	}

	var opts []summarydoc.RenderOption
	if note.CreatedAt != nil {
		opts = append(opts, summarydoc.WithUpdatedAt(*note.CreatedAt))
	}
	return summarydoc.Render(note.Summary, opts...)
}

// SaveEditedSummary parses an edited summary document and applies it to the
// session at once. The backend push runs in the background; its failure is
// logged and the local edit is kept.
func (uc *NoteUseCase) SaveEditedSummary(ctx context.Context, s *model.Session, id model.NoteID, doc string) (*model.Summary, error) {
	if err := id.Validate(); err != nil {
		uc.notify(ctx, s, types.NotificationError, "Error: No active note to save")
		return nil, err
	}

	summary, err := summarydoc.ParseString(doc)
	if err != nil {
		uc.notify(ctx, s, types.NotificationError, "Failed to read the edited summary")
		return nil, goerr.Wrap(ErrInvalidSummary, "failed to parse edited summary", goerr.V(NoteIDKey, id), goerr.V("cause", err.Error()))
	}

	if err := s.ApplySummary(id, summary); err != nil {
		uc.notify(ctx, s, types.NotificationError, "Error: No active note to save")
		return nil, err
	}
	uc.notify(ctx, s, types.NotificationSuccess, "Summary updated successfully")

	pushed := summary.Clone()
	uc.pending.Add(1)
	async.Dispatch(ctx, func(ctx context.Context) error {
		defer uc.pending.Done()
		if err := uc.backend.SaveEditedSummary(ctx, id, pushed); err != nil {
			return goerr.Wrap(err, "failed to push edited summary", goerr.V(NoteIDKey, id))
		}
		logging.From(ctx).Debug("edited summary pushed", "note_id", id)
		return nil
	})

	return summary, nil
}

// Wait blocks until background summary pushes have finished or ctx is done
func (uc *NoteUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "gave up waiting for summary pushes")
	}
}

// ExportSummary builds the downloadable summary of a note
func (uc *NoteUseCase) ExportSummary(ctx context.Context, s *model.Session, id model.NoteID, format types.ExportFormat) (*summarydoc.Export, error) {
	note, err := uc.findNote(ctx, s, id)
	if err != nil {
		return nil, err
	}

	exp, err := summarydoc.ExportSummary(note, format, uc.now())
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, s, types.NotificationSuccess, "Summary downloaded as "+strings.ToUpper(string(format)))
	return exp, nil
}
