package notesapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
)

func newBackend(t *testing.T, handler http.HandlerFunc, opts ...notesapi.Option) *notesapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := notesapi.New(srv.URL, opts...)
	gt.NoError(t, err).Required()
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	gt.NoError(t, err)
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	gt.NoError(t, json.NewDecoder(r.Body).Decode(&body)).Required()
	return body
}

func TestNew(t *testing.T) {
	_, err := notesapi.New("")
	gt.Error(t, err)

	_, err = notesapi.New("ftp://example.com")
	gt.Error(t, err)

	_, err = notesapi.New("http://localhost:5000")
	gt.NoError(t, err)
}

const notesList = `[
  {"id": 12, "original": "note a", "created_at": "2026-10-01 09:15:00",
   "summary": {"patient_details": {"name": "John Smith", "age": 45}, "symptoms": ["cough"]}},
  {"id": "n-7", "original": "note b",
   "summary": "{\"patient_details\": {\"name\": \"Jane Doe\"}, \"chief_complaints\": \"fever\"}"},
  {"id": true, "original": "note c", "summary": {"patient_details": {"name": "Ann Lee"}, "symptoms": ["rash"]}},
  {"original": "note d", "summary": null}
]`

func TestListNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes numeric, string, boolean and missing ids", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.Method).Equal(http.MethodGet)
			gt.Value(t, r.URL.Path).Equal("/get_notes")
			writeJSON(t, w, http.StatusOK, notesList)
		})

		notes, err := client.ListNotes(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, notes).Length(4).Required()

		gt.Value(t, notes[0].ID).Equal(model.NoteID("12"))
		gt.Value(t, notes[0].Summary.PatientDetails.Age).Equal("45")
		gt.Value(t, notes[0].CreatedAt).NotNil()
		gt.Value(t, notes[0].CreatedAt.Day()).Equal(1)

		gt.Value(t, notes[1].ID).Equal(model.NoteID("n-7"))
		gt.Value(t, notes[1].Summary.ChiefComplaints).Equal([]string{"fever"})

		gt.Bool(t, notes[2].ID.IsTemp()).True()
		gt.Bool(t, notes[3].ID.IsTemp()).True()
		gt.Value(t, notes[3].Summary).Nil()
		gt.Value(t, notes[2].ID).NotEqual(notes[3].ID)
	})

	t.Run("strict mode rejects boolean ids", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, notesList)
		}, notesapi.WithStrictIDs(true))

		_, err := client.ListNotes(ctx)
		gt.Bool(t, errors.Is(err, model.ErrBooleanNoteID)).True()
	})

	t.Run("server error", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusInternalServerError, `{"status":"error","message":"database locked"}`)
		})

		_, err := client.ListNotes(ctx)
		gt.Bool(t, errors.Is(err, notesapi.ErrBackendRejected)).True()
		gt.String(t, err.Error()).Contains("database locked")

		var gErr *goerr.Error
		gt.Bool(t, errors.As(err, &gErr)).True()
		gt.Value(t, gErr.Values()[notesapi.StatusCodeKey]).Equal(http.StatusInternalServerError)
	})
}

func TestSaveNote(t *testing.T) {
	ctx := context.Background()

	t.Run("sends text and imported history", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.URL.Path).Equal("/save_note")
			body := readJSON(t, r)
			gt.Value(t, body["note"]).Equal("Patient John Smith, 45 years old")
			history, ok := body["imported_history"].(map[string]any)
			gt.Bool(t, ok).True()
			gt.Value(t, history["allergies"]).Equal([]any{"Penicillin"})

			writeJSON(t, w, http.StatusOK, `{"status":"success","id":31,"original":"Patient John Smith, 45 years old",
"summary":{"patient_details":{"name":"John Smith","age":"45"}}}`)
		})

		note, err := client.SaveNote(ctx, "Patient John Smith, 45 years old", &model.Summary{Allergies: []string{"Penicillin"}})
		gt.NoError(t, err).Required()
		gt.Value(t, note.ID).Equal(model.NoteID("31"))
		gt.Value(t, note.PatientName()).Equal("John Smith")
	})

	t.Run("boolean id is replaced by a temporary id", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, `{"status":"success","id":true,"summary":{"patient_details":{"name":"A B"}}}`)
		})

		note, err := client.SaveNote(ctx, "text", nil)
		gt.NoError(t, err).Required()
		gt.Bool(t, note.ID.IsTemp()).True()
		gt.Value(t, note.Original).Equal("text")
	})

	t.Run("boolean id fails in strict mode", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, `{"status":"success","id":false}`)
		}, notesapi.WithStrictIDs(true))

		_, err := client.SaveNote(ctx, "text", nil)
		gt.Bool(t, errors.Is(err, model.ErrBooleanNoteID)).True()
	})

	t.Run("empty text is rejected locally", func(t *testing.T) {
		var calls atomic.Int32
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		_, err := client.SaveNote(ctx, "  ", nil)
		gt.Error(t, err)
		gt.Number(t, calls.Load()).Equal(0)
	})
}

func TestSaveEditedNote(t *testing.T) {
	ctx := context.Background()

	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/save_edited_note")
		body := readJSON(t, r)
		gt.Value(t, body["noteId"]).Equal("12")
		gt.Value(t, body["editedText"]).Equal("revised")
		writeJSON(t, w, http.StatusOK, `{"status":"success","note":{"id":12,"original":"revised",
"summary":{"patient_details":{"name":"John Smith"},"symptoms":["cough","fever"]}}}`)
	})

	note, err := client.SaveEditedNote(ctx, "12", "revised")
	gt.NoError(t, err).Required()
	gt.Value(t, note.ID).Equal(model.NoteID("12"))
	gt.Value(t, note.Summary.Symptoms).Equal([]string{"cough", "fever"})

	_, err = client.SaveEditedNote(ctx, "true", "revised")
	gt.Bool(t, errors.Is(err, model.ErrBooleanNoteID)).True()
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()

	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body := readJSON(t, r)
		if body["noteId"] == "404" {
			writeJSON(t, w, http.StatusNotFound, `{"status":"error","message":"Note with ID 404 not found in database"}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"status":"success","message":"Note deleted successfully"}`)
	})

	gt.NoError(t, client.DeleteNote(ctx, "7"))

	err := client.DeleteNote(ctx, "404")
	gt.Bool(t, errors.Is(err, notesapi.ErrBackendRejected)).True()
	gt.String(t, err.Error()).Contains("not found in database")
}

func TestSaveEditedSummary(t *testing.T) {
	ctx := context.Background()

	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body := readJSON(t, r)
		summary, ok := body["editedSummary"].(map[string]any)
		gt.Bool(t, ok).True()
		gt.Value(t, summary["symptoms"]).Equal([]any{"cough"})
		gt.Value(t, summary["allergies"]).Equal([]any{})
		writeJSON(t, w, http.StatusOK, `{"status":"success"}`)
	})

	gt.NoError(t, client.SaveEditedSummary(ctx, "7", &model.Summary{Symptoms: []string{"cough"}}))
	gt.Error(t, client.SaveEditedSummary(ctx, "7", nil))
}

func TestFollowUp(t *testing.T) {
	ctx := context.Background()

	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_follow_up":
			if r.URL.Query().Get("noteId") == "missing" {
				writeJSON(t, w, http.StatusNotFound, `{"status":"error","message":"No follow-up actions found for this note"}`)
				return
			}
			writeJSON(t, w, http.StatusOK, `{"status":"success","actions":{"follow_up_date":"2026-11-01","urgency_level":"Soon",
"patient_actions":[{"action":"Rest","priority":"HIGH"},{"action":"  "}],
"doctor_actions":[{"action":"Order MRI","priority":"critical","category":"imaging"}]}}`)
		case "/generate_follow_up":
			writeJSON(t, w, http.StatusOK, `{"status":"success","actions":{"urgency_level":"whenever","patient_actions":[],"doctor_actions":[]}}`)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})

	t.Run("not found yields nothing", func(t *testing.T) {
		set, err := client.GetFollowUp(ctx, "missing")
		gt.NoError(t, err)
		gt.Value(t, set).Nil()
	})

	t.Run("normalizes stored actions", func(t *testing.T) {
		set, err := client.GetFollowUp(ctx, "7")
		gt.NoError(t, err).Required()
		gt.Value(t, set.NoteID).Equal(model.NoteID("7"))
		gt.Value(t, set.UrgencyLevel).Equal(types.UrgencyLevelSoon)
		gt.Array(t, set.PatientActions).Length(1).Required()
		gt.Value(t, set.PatientActions[0].Priority).Equal(types.PriorityHigh)
		gt.Value(t, set.DoctorActions[0].Priority).Equal(types.PriorityMedium)
	})

	t.Run("generate", func(t *testing.T) {
		set, err := client.GenerateFollowUp(ctx, "7")
		gt.NoError(t, err).Required()
		gt.Value(t, set.UrgencyLevel).Equal(types.UrgencyLevelRoutine)
		gt.Bool(t, set.IsEmpty()).True()
	})
}

func TestFindPreviousHistory(t *testing.T) {
	ctx := context.Background()

	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body := readJSON(t, r)
		gt.Value(t, body["patient_age"]).Equal("45")
		if body["patient_name"] == "John Smith" {
			writeJSON(t, w, http.StatusOK, `{"status":"success","history":{"patient_details":{"name":"John Smith"},"allergies":["Penicillin"]},"date":"2026-09-01"}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"status":"info","message":"No previous history found"}`)
	})

	history, err := client.FindPreviousHistory(ctx, "John Smith", "45")
	gt.NoError(t, err).Required()
	gt.Value(t, history.Allergies).Equal([]string{"Penicillin"})

	history, err = client.FindPreviousHistory(ctx, "Nobody Known", "45")
	gt.NoError(t, err)
	gt.Value(t, history).Nil()
}

func TestAnalyzeTreatmentEfficacy(t *testing.T) {
	ctx := context.Background()

	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		body := readJSON(t, r)
		if body["patient_name"] == "John Smith" {
			writeJSON(t, w, http.StatusOK, `{"status":"success","analysis":{"patient_name":"John Smith",
"treatment_effectiveness":{"ibuprofen":{"positive":2,"negative":0,"symptoms_improved":["headache"],"effectiveness_score":1.0}}}}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"status":"error","message":"Need at least 2 visits"}`)
	})

	analysis, err := client.AnalyzeTreatmentEfficacy(ctx, "John Smith")
	gt.NoError(t, err).Required()
	gt.Number(t, analysis.TreatmentEffectiveness["ibuprofen"].Positive).Equal(2)

	_, err = client.AnalyzeTreatmentEfficacy(ctx, "Ann Lee")
	gt.Bool(t, errors.Is(err, notesapi.ErrInsufficientData)).True()
	gt.String(t, err.Error()).Contains("Need at least 2 visits")
}

var wavHeader = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00"), make([]byte, 64)...)

func TestTranscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads audio as multipart field", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.URL.Path).Equal("/upload_audio")
			file, header, err := r.FormFile("audio_file")
			gt.NoError(t, err).Required()
			defer file.Close()
			gt.Value(t, header.Filename).Equal("visit.wav")

			data, err := io.ReadAll(file)
			gt.NoError(t, err).Required()
			gt.Number(t, len(data)).Equal(len(wavHeader))

			writeJSON(t, w, http.StatusOK, `{"status":"success","transcription":" patient reports cough "}`)
		})

		text, err := client.Transcribe(ctx, "/tmp/visit.wav", wavHeader)
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("patient reports cough")
	})

	t.Run("rejects non-audio without a request", func(t *testing.T) {
		var calls atomic.Int32
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		_, err := client.Transcribe(ctx, "notes.txt", []byte("just some text"))
		gt.Bool(t, errors.Is(err, notesapi.ErrNotAudio)).True()
		gt.Number(t, calls.Load()).Equal(0)
	})

	t.Run("backend error message is surfaced", func(t *testing.T) {
		client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusInternalServerError, `{"status":"error","message":"Failed to convert audio file to WAV format"}`)
		})

		_, err := client.Transcribe(ctx, "visit.wav", wavHeader)
		gt.Bool(t, errors.Is(err, notesapi.ErrBackendRejected)).True()
		gt.String(t, err.Error()).Contains("Failed to convert audio")
	})
}

func TestWithRoutes(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/api/v2/notes")
		writeJSON(t, w, http.StatusOK, `[]`)
	}, notesapi.WithRoutes(notesapi.Routes{GetNotes: "/api/v2/notes"}))

	notes, err := client.ListNotes(context.Background())
	gt.NoError(t, err)
	gt.Array(t, notes).Length(0)
}
