package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
	"github.com/secmon-lab/medinotes/pkg/utils/errutil"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
)

// briefTranscriptWords is the word count below which a transcription is considered suspiciously short
const briefTranscriptWords = 10

// CaptureUseCase turns captured speech and uploaded audio into capture area text
type CaptureUseCase struct {
	*base
	history    *HistoryUseCase
	recordings interfaces.RecordingStore
}

// NewCaptureUseCase creates a new CaptureUseCase instance. recordings may be nil.
func NewCaptureUseCase(b *base, history *HistoryUseCase, recordings interfaces.RecordingStore) *CaptureUseCase {
	return &CaptureUseCase{base: b, history: history, recordings: recordings}
}

// FinishTranscript appends a finished capture transcript to the capture area
// and starts a history lookup for the patient it names. Nil means no lookup is warranted.
func (uc *CaptureUseCase) FinishTranscript(ctx context.Context, s *model.Session, transcript string) *HistoryLookup {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}
	appendCapture(s, transcript)

	return uc.history.BeginLookup(ctx, s, s.Capture.Text)
}

// EndCapture is FinishTranscript followed by the lookup itself. It fires on
// any end of recognition, including a spontaneous end of speech.
func (uc *CaptureUseCase) EndCapture(ctx context.Context, s *model.Session, transcript string) (*model.Summary, error) {
	lookup := uc.FinishTranscript(ctx, s, transcript)
	if lookup == nil {
		return nil, nil
	}
	return uc.history.complete(ctx, s, lookup)
}

// Archive stores captured audio when a recording store is configured. Failures are logged only.
func (uc *CaptureUseCase) Archive(ctx context.Context, s *model.Session, filename string, audio []byte) *model.Recording {
	return uc.archive(ctx, s.ID, filename, audio)
}

func (uc *CaptureUseCase) archive(ctx context.Context, sessionID model.SessionID, filename string, audio []byte) *model.Recording {
	if uc.recordings == nil || len(audio) == 0 {
		return nil
	}

	contentType, err := notesapi.DetectAudio(audio)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "refused to archive recording", goerr.V(FilenameKey, filename)), "recording is not audio")
		return nil
	}

	rec := &model.Recording{
		ID:          model.NewRecordingID(),
		SessionID:   sessionID,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   uc.now(),
	}
	if err := uc.recordings.Save(ctx, rec, bytes.NewReader(audio)); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to archive recording",
			goerr.V(SessionIDKey, sessionID),
			goerr.V(FilenameKey, filename),
		), "recording archive failed")
		return nil
	}

	logging.From(ctx).Info("recording archived", "recording_id", rec.ID, "size", rec.Size)
	return rec
}

// Transcription is an applied audio transcription. Lookup is the history
// search its text warrants, nil when there is none.
type Transcription struct {
	Text   string
	Lookup *HistoryLookup
}

// Transcribe uploads audio for transcription, appends the text to the capture
// area and looks up the patient's previous history from it.
func (uc *CaptureUseCase) Transcribe(ctx context.Context, s *model.Session, filename string, r io.Reader) (string, error) {
	result, err := uc.StageTranscribe(ctx, s, filename, r).Run(ctx, s)
	if err != nil {
		return "", err
	}
	if result.Lookup != nil {
		if _, err := uc.history.complete(ctx, s, result.Lookup); err != nil {
			logging.From(ctx).Warn("history lookup after transcription failed", "error", err)
		}
	}
	return result.Text, nil
}

// StageTranscribe is Transcribe up to the start of the history lookup, with
// reading, archiving and transcribing the audio separated from the session.
func (uc *CaptureUseCase) StageTranscribe(_ context.Context, s *model.Session, filename string, r io.Reader) *Staged[*Transcription] {
	sessionID := s.ID

	var (
		text    string
		failure string
		callErr error
	)
	return &Staged[*Transcription]{
		call: func(ctx context.Context) {
			audio, err := safe.ReadAll(r, notesapi.MaxAudioSize)
			if err != nil {
				failure, callErr = "Audio file is too large or unreadable", goerr.Wrap(err, "failed to read audio", goerr.V(FilenameKey, filename))
				return
			}
			if _, err := notesapi.DetectAudio(audio); err != nil {
				failure, callErr = "Please upload an audio file", goerr.Wrap(err, "rejected upload", goerr.V(FilenameKey, filename))
				return
			}

			uc.archive(ctx, sessionID, filename, audio)

			if text, err = uc.backend.Transcribe(ctx, filename, audio); err != nil {
				failure, callErr = transcribeFailure(err), goerr.Wrap(err, "failed to transcribe audio", goerr.V(FilenameKey, filename))
			}
		},
		apply: func(ctx context.Context, s *model.Session) (*Transcription, error) {
			if callErr != nil {
				uc.notify(ctx, s, types.NotificationError, failure)
				return nil, callErr
			}

			appendCapture(s, text)
			uc.notify(ctx, s, types.NotificationSuccess, "Audio transcription complete")
			if len(strings.Fields(text)) < briefTranscriptWords {
				uc.notify(ctx, s, types.NotificationWarning, "Transcription seems brief. The audio might not be clear enough.")
			}

			return &Transcription{
				Text:   text,
				Lookup: uc.history.BeginLookup(ctx, s, s.Capture.Text),
			}, nil
		},
	}
}

func transcribeFailure(err error) string {
	if errors.Is(err, notesapi.ErrBackendRejected) {
		return reason(err)
	}
	return "Error processing audio file. Please try again or type notes manually."
}

func appendCapture(s *model.Session, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if strings.TrimSpace(s.Capture.Text) == "" {
		s.Capture.Text = text
		return
	}
	s.Capture.Text = strings.TrimRight(s.Capture.Text, " \n") + " " + text
}
