package notesapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the status wrapper around most backend responses
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type wireNote struct {
	ID        json.RawMessage `json:"id"`
	Original  string          `json:"original"`
	Summary   json.RawMessage `json:"summary"`
	CreatedAt json.RawMessage `json:"created_at"`
}

type saveNoteRequest struct {
	Note            string         `json:"note"`
	ImportedHistory *model.Summary `json:"imported_history"`
}

type saveNoteResponse struct {
	envelope
	wireNote
}

type saveEditedNoteRequest struct {
	NoteID     model.NoteID `json:"noteId"`
	EditedText string       `json:"editedText"`
}

type saveEditedNoteResponse struct {
	envelope
	Note *wireNote `json:"note"`
}

type saveEditedSummaryRequest struct {
	NoteID        model.NoteID   `json:"noteId"`
	EditedSummary *model.Summary `json:"editedSummary"`
}

type noteIDRequest struct {
	NoteID model.NoteID `json:"noteId"`
}

type followUpResponse struct {
	envelope
	Actions *wireFollowUp `json:"actions"`
}

type wireFollowUp struct {
	FollowUpDate   string             `json:"follow_up_date"`
	UrgencyLevel   string             `json:"urgency_level"`
	PatientActions []model.ActionItem `json:"patient_actions"`
	DoctorActions  []model.ActionItem `json:"doctor_actions"`
	GeneratedAt    string             `json:"generated_at"`
}

type historyRequest struct {
	PatientName string `json:"patient_name"`
	PatientAge  string `json:"patient_age,omitempty"`
}

type historyResponse struct {
	envelope
	History json.RawMessage `json:"history"`
	Date    string          `json:"date"`
}

type efficacyRequest struct {
	PatientName string `json:"patient_name"`
}

type efficacyResponse struct {
	envelope
	Analysis *model.TreatmentEfficacyAnalysis `json:"analysis"`
}

type transcribeResponse struct {
	envelope
	Transcription string `json:"transcription"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseCreatedAt(raw json.RawMessage) *time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// noteID decodes a backend identifier. A boolean, or a missing identifier when
// fallback is empty, is replaced by a temporary ID unless strict mode is on.
func (c *Client) noteID(ctx context.Context, raw json.RawMessage, fallback model.NoteID) (model.NoteID, error) {
	id, err := model.ParseNoteID(raw)
	switch {
	case errors.Is(err, model.ErrBooleanNoteID):
		if c.strictIDs {
			return "", err
		}
		replacement := fallback
		if replacement == "" {
			replacement = model.NewTempNoteID()
		}
		logging.From(ctx).Warn("backend returned a boolean note ID, replaced",
			slog.String("raw_id", strings.TrimSpace(string(raw))),
			slog.String("note_id", replacement.String()),
		)
		return replacement, nil

	case err != nil:
		return "", err
	}

	if id == "" {
		if fallback != "" {
			return fallback, nil
		}
		return model.NewTempNoteID(), nil
	}
	return id, nil
}

func (c *Client) toNote(ctx context.Context, w *wireNote, fallback model.NoteID) (*model.Note, error) {
	id, err := c.noteID(ctx, w.ID, fallback)
	if err != nil {
		return nil, err
	}

	summary, err := model.ParseSummary(w.Summary)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode note summary", goerr.V(model.NoteIDKey, id))
	}

	return &model.Note{
		ID:        id,
		Original:  w.Original,
		Summary:   summary,
		CreatedAt: parseCreatedAt(w.CreatedAt),
	}, nil
}

func (w *wireFollowUp) toModel(id model.NoteID) *model.FollowUpActionSet {
	set := &model.FollowUpActionSet{
		NoteID:         id,
		FollowUpDate:   w.FollowUpDate,
		UrgencyLevel:   types.UrgencyLevel(strings.ToLower(strings.TrimSpace(w.UrgencyLevel))),
		PatientActions: w.PatientActions,
		DoctorActions:  w.DoctorActions,
		GeneratedAt:    w.GeneratedAt,
	}
	return set.Normalize()
}
