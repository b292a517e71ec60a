package notesapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

// ListNotes returns every stored note in backend order. Entries that cannot be
// decoded are skipped and logged.
func (c *Client) ListNotes(ctx context.Context) ([]*model.Note, error) {
	resp, err := c.get(ctx, c.routes.GetNotes, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var wires []*wireNote
	if err := decode(resp, &wires); err != nil {
		return nil, err
	}

	notes := make([]*model.Note, 0, len(wires))
	for _, w := range wires {
		if w == nil {
			continue
		}
		note, err := c.toNote(ctx, w, "")
		if err != nil {
			if errors.Is(err, model.ErrBooleanNoteID) {
				return nil, err
			}
			logging.From(ctx).Warn("skipping undecodable note", slog.Any("error", err))
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// SaveNote stores a new note and returns it with its backend-assigned ID and summary
func (c *Client) SaveNote(ctx context.Context, original string, importedHistory *model.Summary) (*model.Note, error) {
	if strings.TrimSpace(original) == "" {
		return nil, goerr.New("note text is required")
	}

	resp, err := c.postJSON(ctx, c.routes.SaveNote, &saveNoteRequest{
		Note:            original,
		ImportedHistory: importedHistory,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var out saveNoteResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Status == statusError {
		return nil, resp.rejected()
	}

	note, err := c.toNote(ctx, &out.wireNote, "")
	if err != nil {
		return nil, err
	}
	if note.Original == "" {
		note.Original = original
	}
	return note, nil
}

// SaveEditedNote replaces the original text of a note. The backend summarizes it again.
func (c *Client) SaveEditedNote(ctx context.Context, id model.NoteID, original string) (*model.Note, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.postJSON(ctx, c.routes.SaveEditedNote, &saveEditedNoteRequest{
		NoteID:     id,
		EditedText: original,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var out saveEditedNoteResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Status == statusError {
		return nil, resp.rejected()
	}
	if out.Note == nil {
		return &model.Note{ID: id, Original: original}, nil
	}

	note, err := c.toNote(ctx, out.Note, id)
	if err != nil {
		return nil, err
	}
	if note.Original == "" {
		note.Original = original
	}
	return note, nil
}

// DeleteNote removes a note
func (c *Client) DeleteNote(ctx context.Context, id model.NoteID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	return c.postForStatus(ctx, c.routes.DeleteNote, &noteIDRequest{NoteID: id})
}

// SaveEditedSummary stores a summary edited by the user
func (c *Client) SaveEditedSummary(ctx context.Context, id model.NoteID, summary *model.Summary) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if summary == nil {
		return goerr.Wrap(model.ErrInvalidSummary, "summary is required", goerr.V(model.NoteIDKey, id))
	}
	return c.postForStatus(ctx, c.routes.SaveEditedSummary, &saveEditedSummaryRequest{
		NoteID:        id,
		EditedSummary: model.Prepare(summary),
	})
}

func (c *Client) postForStatus(ctx context.Context, route string, payload any) error {
	resp, err := c.postJSON(ctx, route, payload)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.rejected()
	}

	var out envelope
	if err := decode(resp, &out); err != nil {
		return err
	}
	if out.Status == statusError {
		return resp.rejected()
	}
	return nil
}

// GetFollowUp returns the stored follow-up actions of a note, or nil when none exist
func (c *Client) GetFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, c.routes.GetFollowUp, url.Values{"noteId": {id.String()}})
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var out followUpResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Status == statusError || out.Actions == nil {
		return nil, nil
	}
	return out.Actions.toModel(id), nil
}

// GenerateFollowUp asks the backend to generate and store follow-up actions
func (c *Client) GenerateFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.postJSON(ctx, c.routes.GenerateFollowUp, &noteIDRequest{NoteID: id})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var out followUpResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Status == statusError {
		return nil, resp.rejected()
	}
	if out.Actions == nil {
		return nil, goerr.Wrap(model.ErrInvalidFollowUp, "backend returned no actions", goerr.V(model.NoteIDKey, id))
	}
	return out.Actions.toModel(id), nil
}

// FindPreviousHistory returns the most recent summary of a matching patient, or nil
func (c *Client) FindPreviousHistory(ctx context.Context, name, age string) (*model.Summary, error) {
	if strings.TrimSpace(name) == "" {
		return nil, goerr.New("patient name is required")
	}

	resp, err := c.postJSON(ctx, c.routes.FindPreviousHistory, &historyRequest{
		PatientName: name,
		PatientAge:  age,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var out historyResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Status != statusSuccess {
		return nil, nil
	}

	history, err := model.ParseSummary(out.History)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode previous history", goerr.V(RouteKey, resp.route))
	}
	if history.IsEmpty() {
		return nil, nil
	}
	return history, nil
}

// AnalyzeTreatmentEfficacy correlates treatments with symptom changes across a
// patient's visits. The backend's explanation is carried in ErrInsufficientData.
func (c *Client) AnalyzeTreatmentEfficacy(ctx context.Context, patientName string) (*model.TreatmentEfficacyAnalysis, error) {
	if strings.TrimSpace(patientName) == "" {
		return nil, goerr.New("patient name is required")
	}

	resp, err := c.postJSON(ctx, c.routes.AnalyzeEfficacy, &efficacyRequest{PatientName: patientName})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejected()
	}

	var out efficacyResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Status == statusError || out.Analysis == nil {
		msg := out.Message
		if msg == "" {
			msg = "no analysis returned"
		}
		return nil, goerr.Wrap(ErrInsufficientData, msg, goerr.V(MessageKey, msg))
	}
	return out.Analysis, nil
}
