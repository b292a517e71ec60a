package http

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
	"github.com/secmon-lab/medinotes/pkg/service/summarydoc"
	"github.com/secmon-lab/medinotes/pkg/usecase"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
)

// sessionView is what the front end renders: cards, the open detail view and the capture area
type sessionView struct {
	ID              model.SessionID   `json:"id"`
	Notes           []*model.Note     `json:"notes"`
	Empty           bool              `json:"empty"`
	Open            *model.OpenNote   `json:"open,omitempty"`
	Capture         model.CaptureArea `json:"capture"`
	ImportedHistory *model.Summary    `json:"imported_history,omitempty"`
}

func viewOf(sess *model.Session) *sessionView {
	notes := sess.Notes
	if notes == nil {
		notes = []*model.Note{}
	}
	return &sessionView{
		ID:              sess.ID,
		Notes:           notes,
		Empty:           sess.IsEmpty(),
		Open:            sess.Open,
		Capture:         sess.Capture,
		ImportedHistory: sess.ImportedHistory,
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

type efficacyRequest struct {
	PatientName string `json:"patient_name"`
}

type summaryEditResponse struct {
	Document string          `json:"document"`
	Open     *model.OpenNote `json:"open"`
}

type transcriptionResponse struct {
	Transcription string       `json:"transcription"`
	Session       *sessionView `json:"session"`
}

func noteID(r *http.Request) model.NoteID {
	return model.NoteID(chi.URLParam(r, "id"))
}

func (s *Server) getSession(_ context.Context, _ *http.Request, sess *model.Session) (any, error) {
	return viewOf(sess), nil
}

// sessionAfter answers with the view of the session an operation was applied to
func sessionAfter[T any](sess *model.Session, _ T) any {
	return viewOf(sess)
}

// result answers with the operation's own result
func result[T any](_ *model.Session, v T) any {
	return v
}

func (s *Server) listNotes(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
	st := s.uc.Note.StageLoadNotes(ctx, sess)
	return &pending{
		call: st.Call,
		apply: func(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
			// A failed load renders the empty state like an empty list does
			_, _ = st.Apply(ctx, sess)
			return done(viewOf(sess)), nil
		},
	}, nil
}

func (s *Server) submitNote(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	st, err := s.uc.Note.StageSubmit(ctx, sess, req.Text)
	if err != nil {
		return nil, err
	}
	return staged(st, sessionAfter), nil
}

func (s *Server) saveEditedNote(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	st, err := s.uc.Note.StageSaveEditedNote(ctx, sess, noteID(r), req.Text)
	if err != nil {
		return nil, err
	}
	return staged(st, sessionAfter), nil
}

func (s *Server) deleteNote(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	st, err := s.uc.Note.StageDeleteNote(ctx, sess, noteID(r), confirmed)
	if err != nil {
		return nil, err
	}
	return staged(st, sessionAfter), nil
}

func (s *Server) startEditingNote(ctx context.Context, r *http.Request, sess *model.Session) (any, error) {
	if _, err := s.uc.Note.StartEditingNote(ctx, sess, noteID(r)); err != nil {
		return nil, err
	}
	return viewOf(sess), nil
}

func (s *Server) cancelEditingNote(ctx context.Context, _ *http.Request, sess *model.Session) (any, error) {
	s.uc.Note.CancelEditingNote(ctx, sess)
	return viewOf(sess), nil
}

func (s *Server) openNote(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	st, err := s.uc.Note.StageOpenNote(ctx, sess, noteID(r))
	if err != nil {
		return nil, err
	}
	return staged(st, sessionAfter), nil
}

func (s *Server) closeNote(ctx context.Context, _ *http.Request, sess *model.Session) (any, error) {
	s.uc.Note.CloseNote(ctx, sess)
	return viewOf(sess), nil
}

func (s *Server) beginSummaryEdit(ctx context.Context, r *http.Request, sess *model.Session) (any, error) {
	doc, err := s.uc.Note.BeginSummaryEdit(ctx, sess, noteID(r))
	if err != nil {
		return nil, err
	}
	return &summaryEditResponse{Document: doc, Open: sess.Open}, nil
}

func (s *Server) cancelSummaryEdit(ctx context.Context, r *http.Request, sess *model.Session) (any, error) {
	s.uc.Note.CancelSummaryEdit(ctx, sess, noteID(r))
	return viewOf(sess), nil
}

// saveEditedSummary takes the edited summary document as the raw request body
func (s *Server) saveEditedSummary(ctx context.Context, r *http.Request, sess *model.Session) (any, error) {
	doc, err := safe.ReadAll(r.Body, maxJSONBody)
	if err != nil {
		return nil, goerr.Wrap(errBadRequest, "failed to read summary document", goerr.V("cause", err.Error()))
	}
	if _, err := s.uc.Note.SaveEditedSummary(ctx, sess, noteID(r), string(doc)); err != nil {
		return nil, err
	}
	return viewOf(sess), nil
}

func (s *Server) getFollowUp(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	st, err := s.uc.FollowUp.StageGetFollowUp(ctx, sess, noteID(r))
	if err != nil {
		return nil, err
	}
	return staged(st, result), nil
}

func (s *Server) generateFollowUp(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	st, err := s.uc.FollowUp.StageGenerateFollowUp(ctx, sess, noteID(r))
	if err != nil {
		return nil, err
	}
	return staged(st, result), nil
}

// transcribe parses the upload before the session is touched; the audio is
// read and transcribed with the session released
func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, notesapi.MaxAudioSize+(1<<20))
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(ctx, w, goerr.Wrap(errBadRequest, "audio_file is required", goerr.V("cause", err.Error())), nil)
		return
	}
	defer safe.Close(ctx, file)
	filename := filepath.Base(header.Filename)

	s.respond(w, r, func(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
		st := s.uc.Capture.StageTranscribe(ctx, sess, filename, file)
		return &pending{
			call: st.Call,
			apply: func(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
				tr, err := st.Apply(ctx, sess)
				if err != nil {
					return nil, err
				}
				return s.completeLookup(tr.Lookup, func(sess *model.Session) any {
					return &transcriptionResponse{Transcription: tr.Text, Session: viewOf(sess)}
				}, sess), nil
			},
		}, nil
	})
}

func (s *Server) clearHistory(ctx context.Context, _ *http.Request, sess *model.Session) (any, error) {
	s.uc.History.ClearImportedHistory(ctx, sess)
	return viewOf(sess), nil
}

func (s *Server) analyzeEfficacy(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	var req efficacyRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	st, err := s.uc.History.StageAnalyzeTreatmentEfficacy(ctx, sess, req.PatientName)
	if err != nil {
		return nil, err
	}
	return staged(st, result), nil
}

// endCapture stores a finished capture transcript and looks up the patient's
// previous history. A dismissal or a newer capture while the backend is
// searched supersedes this lookup.
func (s *Server) endCapture(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err, nil)
		return
	}

	s.respond(w, r, func(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
		lookup := s.uc.Capture.FinishTranscript(ctx, sess, req.Transcript)
		return s.completeLookup(lookup, func(sess *model.Session) any { return viewOf(sess) }, sess), nil
	})
}

// completeLookup fetches the history of lookup with the session released and
// imports it if lookup is still current. A failed fetch only leaves the
// history empty. A nil lookup answers at once.
func (s *Server) completeLookup(lookup *usecase.HistoryLookup, view func(sess *model.Session) any, sess *model.Session) *pending {
	if lookup == nil {
		return done(view(sess))
	}

	var (
		history  *model.Summary
		fetchErr error
	)
	return &pending{
		call: func(ctx context.Context) {
			history, fetchErr = s.uc.History.FetchHistory(ctx, lookup)
		},
		apply: func(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
			if fetchErr == nil {
				s.uc.History.ApplyHistory(ctx, sess, lookup, history)
			}
			return done(view(sess)), nil
		},
	}
}

func (s *Server) summaryDocument(ctx context.Context, r *http.Request, sess *model.Session) (any, error) {
	doc, err := s.uc.Note.RenderSummary(ctx, sess, noteID(r))
	if err != nil {
		return nil, err
	}
	return &summarydoc.Export{ContentType: "text/html; charset=utf-8", Body: []byte(doc)}, nil
}

func (s *Server) exportSummary(ctx context.Context, r *http.Request, sess *model.Session) (any, error) {
	format, err := types.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		return nil, goerr.Wrap(errBadRequest, "unsupported export format", goerr.V("cause", err.Error()))
	}
	return s.uc.Note.ExportSummary(ctx, sess, noteID(r), format)
}

func (s *Server) exportFollowUp(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
	st, err := s.uc.FollowUp.StageExportFollowUp(ctx, sess, noteID(r))
	if err != nil {
		return nil, err
	}
	return staged(st, result), nil
}
