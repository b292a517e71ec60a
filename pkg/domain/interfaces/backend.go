package interfaces

import (
	"context"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// NotesBackend is the authoritative store and summarizer of notes.
// Optional derived data (follow-up actions, previous history) is returned as
// nil without error when the backend has none.
type NotesBackend interface {
	ListNotes(ctx context.Context) ([]*model.Note, error)
	SaveNote(ctx context.Context, original string, importedHistory *model.Summary) (*model.Note, error)
	SaveEditedNote(ctx context.Context, id model.NoteID, original string) (*model.Note, error)
	DeleteNote(ctx context.Context, id model.NoteID) error
	SaveEditedSummary(ctx context.Context, id model.NoteID, summary *model.Summary) error

	GetFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error)
	GenerateFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error)

	FindPreviousHistory(ctx context.Context, name, age string) (*model.Summary, error)
	AnalyzeTreatmentEfficacy(ctx context.Context, patientName string) (*model.TreatmentEfficacyAnalysis, error)

	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}
