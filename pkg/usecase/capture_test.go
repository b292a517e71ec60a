package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
	"github.com/secmon-lab/medinotes/pkg/service/recording"
	"github.com/secmon-lab/medinotes/pkg/usecase"
)

var wavAudio = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00"), make([]byte, 64)...)

func TestTranscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("appends the transcription and looks up history", func(t *testing.T) {
		backend := newFakeBackend()
		backend.transcript = namedTranscript
		backend.history = summaryOf("John Smith", "old cough")
		uc := newUseCases(backend)
		s := model.NewSession(fixedNow)
		s.Capture.Text = "Typed intro."

		text, err := uc.Capture.Transcribe(ctx, s, "visit.wav", bytes.NewReader(wavAudio))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal(namedTranscript)
		gt.Value(t, s.Capture.Text).Equal("Typed intro. " + namedTranscript)
		gt.Value(t, backend.transcribed).Equal([]string{"visit.wav"})
		gt.Value(t, s.ImportedHistory).NotNil()
		gt.Value(t, levels(s.Notifications)).Equal([]types.NotificationLevel{
			types.NotificationSuccess,
			types.NotificationInfo,
		})
	})

	t.Run("warns about a brief transcription", func(t *testing.T) {
		backend := newFakeBackend()
		backend.transcript = "cough for two days"
		uc := newUseCases(backend)
		s := model.NewSession(fixedNow)

		_, err := uc.Capture.Transcribe(ctx, s, "visit.wav", bytes.NewReader(wavAudio))
		gt.NoError(t, err).Required()
		gt.Value(t, levels(s.Notifications)).Equal([]types.NotificationLevel{
			types.NotificationSuccess,
			types.NotificationWarning,
		})
	})

	t.Run("non-audio is refused without upload", func(t *testing.T) {
		backend := newFakeBackend()
		uc := newUseCases(backend)
		s := model.NewSession(fixedNow)

		_, err := uc.Capture.Transcribe(ctx, s, "notes.txt", strings.NewReader("plain text, not audio"))
		gt.Bool(t, errors.Is(err, notesapi.ErrNotAudio)).True()
		gt.Array(t, backend.transcribed).Length(0)
		gt.Value(t, levels(s.Notifications)).Equal([]types.NotificationLevel{types.NotificationError})
	})

	t.Run("transport failure leaves the capture area unchanged", func(t *testing.T) {
		backend := newFakeBackend()
		backend.failTranscribe = errBackendDown
		uc := newUseCases(backend)
		s := model.NewSession(fixedNow)

		_, err := uc.Capture.Transcribe(ctx, s, "visit.wav", bytes.NewReader(wavAudio))
		gt.Error(t, err)
		gt.Value(t, s.Capture.Text).Equal("")
		gt.Value(t, levels(s.Notifications)).Equal([]types.NotificationLevel{types.NotificationError})
	})

	t.Run("archives the upload when a store is configured", func(t *testing.T) {
		store := recording.NewMemory()
		uc := newUseCases(newFakeBackend(), usecase.WithRecordingStore(store))
		s := model.NewSession(fixedNow)

		rec := uc.Capture.Archive(ctx, s, "visit.wav", wavAudio)
		gt.Value(t, rec).NotNil().Required()
		gt.Value(t, rec.SessionID).Equal(s.ID)
		gt.Number(t, rec.Size).Equal(int64(len(wavAudio)))
		gt.Value(t, rec.CreatedAt).Equal(fixedNow)

		r, err := store.Open(ctx, rec.ID)
		gt.NoError(t, err).Required()
		defer r.Close()
		data, err := io.ReadAll(r)
		gt.NoError(t, err).Required()
		gt.Value(t, data).Equal(wavAudio)
	})

	t.Run("archive is skipped without a store", func(t *testing.T) {
		uc := newUseCases(newFakeBackend())
		s := model.NewSession(fixedNow)
		gt.Value(t, uc.Capture.Archive(ctx, s, "visit.wav", wavAudio)).Nil()
	})
}

func TestEndCapture(t *testing.T) {
	ctx := context.Background()

	t.Run("spontaneous end still looks up history", func(t *testing.T) {
		backend := newFakeBackend()
		backend.history = summaryOf("John Smith", "old cough")
		uc := newUseCases(backend)
		s := model.NewSession(fixedNow)

		history, err := uc.Capture.EndCapture(ctx, s, namedTranscript)
		gt.NoError(t, err).Required()
		gt.Value(t, history).NotNil()
		gt.Value(t, s.Capture.Text).Equal(namedTranscript)
	})

	t.Run("empty transcript does nothing", func(t *testing.T) {
		backend := newFakeBackend()
		uc := newUseCases(backend)
		s := model.NewSession(fixedNow)

		history, err := uc.Capture.EndCapture(ctx, s, "  ")
		gt.NoError(t, err).Required()
		gt.Value(t, history).Nil()
		gt.Array(t, backend.historyQueries).Length(0)
	})
}

func TestAppendCapture(t *testing.T) {
	s := &model.Session{}
	usecase.AppendCapture(s, "  first  ")
	gt.Value(t, s.Capture.Text).Equal("first")
	usecase.AppendCapture(s, "")
	gt.Value(t, s.Capture.Text).Equal("first")
	usecase.AppendCapture(s, "second")
	gt.Value(t, s.Capture.Text).Equal("first second")
}
