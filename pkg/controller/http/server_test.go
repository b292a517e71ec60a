package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	httpctrl "github.com/secmon-lab/medinotes/pkg/controller/http"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/repository/memory"
	"github.com/secmon-lab/medinotes/pkg/usecase"
)

// stubBackend is a minimal in-memory NotesBackend
type stubBackend struct {
	mu      sync.Mutex
	notes   []*model.Note
	history *model.Summary
	nextID  int
	saved   []string
	deleted []model.NoteID

	generate func(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error)
}

var _ interfaces.NotesBackend = (*stubBackend)(nil)

func summaryOf(name string, symptoms ...string) *model.Summary {
	return model.Prepare(&model.Summary{
		PatientDetails: model.PatientDetails{Name: name},
		Symptoms:       symptoms,
	})
}

func (b *stubBackend) ListNotes(ctx context.Context) ([]*model.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]*model.Note, len(b.notes))
	for i, n := range b.notes {
		result[i] = n.Clone()
	}
	return result, nil
}

func (b *stubBackend) SaveNote(ctx context.Context, original string, importedHistory *model.Summary) (*model.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.saved = append(b.saved, original)
	note := &model.Note{
		ID:       model.NoteID("saved-" + strconv.Itoa(b.nextID)),
		Original: original,
		Summary:  summaryOf("Saved Patient", "cough"),
	}
	b.notes = append([]*model.Note{note}, b.notes...)
	return note.Clone(), nil
}

func (b *stubBackend) SaveEditedNote(ctx context.Context, id model.NoteID, original string) (*model.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notes {
		if n.ID == id {
			n.Original = original
			return n.Clone(), nil
		}
	}
	return nil, goerr.New("note not found")
}

func (b *stubBackend) DeleteNote(ctx context.Context, id model.NoteID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	for i, n := range b.notes {
		if n.ID == id {
			b.notes = append(b.notes[:i:i], b.notes[i+1:]...)
			return nil
		}
	}
	return goerr.New("note not found")
}

func (b *stubBackend) SaveEditedSummary(ctx context.Context, id model.NoteID, summary *model.Summary) error {
	return nil
}

func (b *stubBackend) GetFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
	return nil, nil
}

func (b *stubBackend) GenerateFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
	if b.generate != nil {
		return b.generate(ctx, id)
	}
	return nil, goerr.New("generation unavailable")
}

func (b *stubBackend) FindPreviousHistory(ctx context.Context, name, age string) (*model.Summary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Clone(), nil
}

func (b *stubBackend) AnalyzeTreatmentEfficacy(ctx context.Context, patientName string) (*model.TreatmentEfficacyAnalysis, error) {
	return nil, goerr.New("analysis unavailable")
}

func (b *stubBackend) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return "", goerr.New("transcription unavailable")
}

type envelope struct {
	Data          json.RawMessage      `json:"data"`
	Error         string               `json:"error"`
	Notifications []model.Notification `json:"notifications"`
}

type view struct {
	ID              model.SessionID   `json:"id"`
	Notes           []*model.Note     `json:"notes"`
	Empty           bool              `json:"empty"`
	Open            *model.OpenNote   `json:"open"`
	Capture         model.CaptureArea `json:"capture"`
	ImportedHistory *model.Summary    `json:"imported_history"`
}

// browser replays the session cookie like a web client does
type browser struct {
	t      *testing.T
	server http.Handler
	cookie *http.Cookie
}

func newBrowser(t *testing.T, backend *stubBackend) *browser {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC) }
	uc := usecase.New(backend, usecase.WithClock(now))
	srv, err := httpctrl.New(uc, memory.New().Session(), httpctrl.WithClock(now))
	gt.NoError(t, err).Required()
	return &browser{t: t, server: srv}
}

func (b *browser) do(method, path string, body []byte) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.server.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "medinotes_session" {
			b.cookie = c
		}
	}
	return w
}

// send issues a request with the current cookie without adopting a new one.
// It is safe for concurrent use once the session exists.
func (b *browser) send(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(b.cookie)
	w := httptest.NewRecorder()
	b.server.ServeHTTP(w, req)
	return w
}

func (b *browser) call(method, path string, payload any) (int, *envelope) {
	b.t.Helper()
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		gt.NoError(b.t, err).Required()
		body = data
	}
	w := b.do(method, path, body)

	var env envelope
	gt.NoError(b.t, json.Unmarshal(w.Body.Bytes(), &env)).Required()
	return w.Code, &env
}

func viewFrom(t *testing.T, env *envelope) *view {
	t.Helper()
	var v view
	gt.NoError(t, json.Unmarshal(env.Data, &v)).Required()
	return &v
}

func messages(env *envelope) []string {
	result := make([]string, len(env.Notifications))
	for i, n := range env.Notifications {
		result[i] = n.Message
	}
	return result
}

func seeded() *stubBackend {
	return &stubBackend{
		notes: []*model.Note{
			{ID: "n-1", Original: "visit of John Smith", Summary: summaryOf("John Smith", "fever")},
			{ID: "n-2", Original: "visit of Jane Doe", Summary: summaryOf("Jane Doe", "cough")},
		},
	}
}

func TestNew(t *testing.T) {
	_, err := httpctrl.New(nil, memory.New().Session())
	gt.Error(t, err)
}

func TestSessionCookie(t *testing.T) {
	t.Run("issues a session and keeps it across requests", func(t *testing.T) {
		b := newBrowser(t, seeded())

		code, env := b.call(http.MethodGet, "/api/session", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Value(t, b.cookie).NotNil().Required()
		gt.Bool(t, b.cookie.HttpOnly).True()

		first := viewFrom(t, env)
		gt.Value(t, string(first.ID)).Equal(b.cookie.Value)
		gt.Bool(t, first.Empty).True()

		_, env = b.call(http.MethodGet, "/api/notes", nil)
		second := viewFrom(t, env)
		gt.Value(t, second.ID).Equal(first.ID)
		gt.Array(t, second.Notes).Length(2)

		_, env = b.call(http.MethodGet, "/api/session", nil)
		gt.Array(t, viewFrom(t, env).Notes).Length(2)
	})

	t.Run("malformed cookie starts a new session", func(t *testing.T) {
		b := newBrowser(t, seeded())
		b.cookie = &http.Cookie{Name: "medinotes_session", Value: "not-a-uuid"}

		_, env := b.call(http.MethodGet, "/api/session", nil)
		gt.Value(t, b.cookie.Value).NotEqual("not-a-uuid")
		gt.Value(t, string(viewFrom(t, env).ID)).Equal(b.cookie.Value)
	})
}

func TestSubmitNote(t *testing.T) {
	t.Run("saved note becomes the first card", func(t *testing.T) {
		backend := seeded()
		b := newBrowser(t, backend)
		b.call(http.MethodGet, "/api/notes", nil)

		code, env := b.call(http.MethodPost, "/api/notes", map[string]string{"text": "new visit"})
		gt.Number(t, code).Equal(http.StatusOK)
		v := viewFrom(t, env)
		gt.Array(t, v.Notes).Length(3).Required()
		gt.Value(t, v.Notes[0].ID).Equal(model.NoteID("saved-1"))
		gt.Value(t, v.Capture.Text).Equal("")
		gt.Array(t, messages(env)).Has("Note saved successfully")
		gt.Array(t, backend.saved).Length(1)
	})

	t.Run("empty text is refused with a warning", func(t *testing.T) {
		backend := seeded()
		b := newBrowser(t, backend)

		code, env := b.call(http.MethodPost, "/api/notes", map[string]string{"text": "   "})
		gt.Number(t, code).Equal(http.StatusBadRequest)
		gt.Array(t, messages(env)).Has("Please record or type a note first")
		gt.Array(t, backend.saved).Length(0)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		b := newBrowser(t, seeded())
		w := b.do(http.MethodPost, "/api/notes", []byte("{"))
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestDeleteNote(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		backend := seeded()
		b := newBrowser(t, backend)
		b.call(http.MethodGet, "/api/notes", nil)

		code, _ := b.call(http.MethodDelete, "/api/notes/n-1", nil)
		gt.Number(t, code).Equal(http.StatusPreconditionRequired)
		gt.Array(t, backend.deleted).Length(0)
	})

	t.Run("confirmed deletion removes only that card", func(t *testing.T) {
		backend := seeded()
		b := newBrowser(t, backend)
		b.call(http.MethodGet, "/api/notes", nil)

		code, env := b.call(http.MethodDelete, "/api/notes/n-1?confirm=true", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		v := viewFrom(t, env)
		gt.Array(t, v.Notes).Length(1).Required()
		gt.Value(t, v.Notes[0].ID).Equal(model.NoteID("n-2"))
		gt.Array(t, messages(env)).Has("Note deleted successfully")
	})

	t.Run("boolean identifier is refused", func(t *testing.T) {
		backend := seeded()
		b := newBrowser(t, backend)

		code, _ := b.call(http.MethodDelete, "/api/notes/true?confirm=true", nil)
		gt.Number(t, code).Equal(http.StatusBadRequest)
		gt.Array(t, backend.deleted).Length(0)
	})
}

func TestOpenNote(t *testing.T) {
	t.Run("opens the detail view", func(t *testing.T) {
		b := newBrowser(t, seeded())

		code, env := b.call(http.MethodPost, "/api/notes/n-2/open", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		v := viewFrom(t, env)
		gt.Value(t, v.Open).NotNil().Required()
		gt.Value(t, v.Open.NoteID).Equal(model.NoteID("n-2"))

		_, env = b.call(http.MethodDelete, "/api/notes/open", nil)
		gt.Value(t, viewFrom(t, env).Open).Nil()
	})

	t.Run("unknown note is not found", func(t *testing.T) {
		b := newBrowser(t, seeded())
		code, _ := b.call(http.MethodPost, "/api/notes/missing/open", nil)
		gt.Number(t, code).Equal(http.StatusNotFound)
	})

	t.Run("summary edit without the note open conflicts", func(t *testing.T) {
		b := newBrowser(t, seeded())
		code, _ := b.call(http.MethodPost, "/api/notes/n-1/summary/edit", nil)
		gt.Number(t, code).Equal(http.StatusConflict)
	})

	t.Run("summary edit returns the editable document", func(t *testing.T) {
		b := newBrowser(t, seeded())
		b.call(http.MethodPost, "/api/notes/n-1/open", nil)

		code, env := b.call(http.MethodPost, "/api/notes/n-1/summary/edit", nil)
		gt.Number(t, code).Equal(http.StatusOK)

		var resp struct {
			Document string `json:"document"`
		}
		gt.NoError(t, json.Unmarshal(env.Data, &resp)).Required()
		gt.String(t, resp.Document).Contains("John Smith")
	})
}

func TestFailuresKeepNotifications(t *testing.T) {
	b := newBrowser(t, seeded())
	code, env := b.call(http.MethodPost, "/api/notes/n-1/follow-up", nil)
	gt.Number(t, code).Equal(http.StatusBadGateway)
	gt.Array(t, env.Notifications).Length(1).Required()
	gt.String(t, env.Notifications[0].Message).Contains("Failed to generate follow-up actions")
}

func TestSlowCardRequestDoesNotHoldSession(t *testing.T) {
	backend := seeded()
	started := make(chan struct{})
	release := make(chan struct{})
	backend.generate = func(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
		close(started)
		<-release
		return &model.FollowUpActionSet{
			NoteID:         id,
			PatientActions: []model.ActionItem{{Action: "Rest for two days"}},
		}, nil
	}
	b := newBrowser(t, backend)
	b.call(http.MethodGet, "/api/notes", nil)
	b.call(http.MethodPost, "/api/notes/n-1/open", nil)

	generated := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		generated <- b.send(http.MethodPost, "/api/notes/n-1/follow-up")
	}()
	<-started

	opened := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		opened <- b.send(http.MethodPost, "/api/notes/n-2/open")
	}()

	select {
	case w := <-opened:
		gt.Number(t, w.Code).Equal(http.StatusOK)
		var env envelope
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &env)).Required()
		v := viewFrom(t, &env)
		gt.Value(t, v.Open).NotNil().Required()
		gt.Value(t, v.Open.NoteID).Equal(model.NoteID("n-2"))
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("opening another note waited for the follow-up generation")
	}
	close(release)

	select {
	case w := <-generated:
		gt.Number(t, w.Code).Equal(http.StatusOK)
		var env envelope
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &env)).Required()
		gt.Array(t, messages(&env)).Has("Follow-up actions generated")
	case <-time.After(5 * time.Second):
		t.Fatal("follow-up generation did not finish")
	}

	// n-2 is open now, so the set generated for n-1 stays off the detail view
	_, env := b.call(http.MethodGet, "/api/session", nil)
	v := viewFrom(t, env)
	gt.Value(t, v.Open).NotNil().Required()
	gt.Value(t, v.Open.NoteID).Equal(model.NoteID("n-2"))
	gt.Value(t, v.Open.FollowUp).Nil()
}

func TestEndCapture(t *testing.T) {
	t.Run("imports the previous history of the named patient", func(t *testing.T) {
		backend := seeded()
		backend.history = summaryOf("John Smith", "headache")
		b := newBrowser(t, backend)

		code, env := b.call(http.MethodPost, "/api/capture/transcript", map[string]string{
			"transcript": "Patient's name is John Smith, age 45 years old, complains of cough.",
		})
		gt.Number(t, code).Equal(http.StatusOK)
		v := viewFrom(t, env)
		gt.String(t, v.Capture.Text).Contains("John Smith")
		gt.Value(t, v.ImportedHistory).NotNil()
		gt.Array(t, messages(env)).Has("Found previous medical history for John Smith. Personal details have been pre-filled.")

		_, env = b.call(http.MethodDelete, "/api/history", nil)
		gt.Value(t, viewFrom(t, env).ImportedHistory).Nil()
		gt.Array(t, messages(env)).Has("Imported patient history cleared")
	})

	t.Run("transcript without a patient only fills the capture area", func(t *testing.T) {
		backend := seeded()
		backend.history = summaryOf("John Smith", "headache")
		b := newBrowser(t, backend)

		code, env := b.call(http.MethodPost, "/api/capture/transcript", map[string]string{"transcript": "mild cough since Monday"})
		gt.Number(t, code).Equal(http.StatusOK)
		v := viewFrom(t, env)
		gt.Value(t, v.Capture.Text).Equal("mild cough since Monday")
		gt.Value(t, v.ImportedHistory).Nil()
	})
}

func TestDownloads(t *testing.T) {
	t.Run("summary export is an attachment", func(t *testing.T) {
		b := newBrowser(t, seeded())

		w := b.do(http.MethodGet, "/notes/n-1/export?format=md", nil)
		gt.Number(t, w.Code).Equal(http.StatusOK)
		gt.String(t, w.Header().Get("Content-Disposition")).Contains("Medical_Summary_John_Smith_2026-10-18.md")
		gt.String(t, w.Body.String()).Contains("John Smith")
	})

	t.Run("summary document renders inline", func(t *testing.T) {
		b := newBrowser(t, seeded())

		w := b.do(http.MethodGet, "/notes/n-2/summary", nil)
		gt.Number(t, w.Code).Equal(http.StatusOK)
		gt.Value(t, w.Header().Get("Content-Disposition")).Equal("")
		gt.Bool(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html")).True()
		gt.String(t, w.Body.String()).Contains("Jane Doe")
	})

	t.Run("unsupported format is a bad request", func(t *testing.T) {
		b := newBrowser(t, seeded())
		w := b.do(http.MethodGet, "/notes/n-1/export?format=docx", nil)
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("missing follow-up set is not found", func(t *testing.T) {
		b := newBrowser(t, seeded())
		w := b.do(http.MethodGet, "/notes/n-1/follow-up/export", nil)
		gt.Number(t, w.Code).Equal(http.StatusNotFound)

		_, env := b.call(http.MethodGet, "/api/session", nil)
		gt.Array(t, messages(env)).Has("No follow-up actions to download")
	})
}
