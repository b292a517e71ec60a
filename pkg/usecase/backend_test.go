package usecase_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/usecase"
)

var errBackendDown = goerr.New("backend is down")

type historyQuery struct {
	name, age string
}

// fakeBackend is an in-memory NotesBackend. A non-nil fail* field makes that call fail.
type fakeBackend struct {
	mu sync.Mutex

	notes      []*model.Note
	followUps  map[model.NoteID]*model.FollowUpActionSet
	history    *model.Summary
	analysis   *model.TreatmentEfficacyAnalysis
	transcript string

	failList, failSave, failEdit, failDelete, failSummary error
	failFollowUp, failGenerate, failHistory, failAnalysis error
	failTranscribe                                        error

	nextID          int
	saved           []string
	savedHistory    []*model.Summary
	deleted         []model.NoteID
	pushedSummaries map[model.NoteID]*model.Summary
	historyQueries  []historyQuery
	transcribed     []string
	listCalls       int
}

var _ interfaces.NotesBackend = (*fakeBackend)(nil)

func newFakeBackend(notes ...*model.Note) *fakeBackend {
	return &fakeBackend{
		notes:           notes,
		followUps:       map[model.NoteID]*model.FollowUpActionSet{},
		pushedSummaries: map[model.NoteID]*model.Summary{},
	}
}

func (f *fakeBackend) ListNotes(ctx context.Context) ([]*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	result := make([]*model.Note, len(f.notes))
	for i, n := range f.notes {
		result[i] = n.Clone()
	}
	return result, nil
}

func (f *fakeBackend) SaveNote(ctx context.Context, original string, importedHistory *model.Summary) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, original)
	f.savedHistory = append(f.savedHistory, importedHistory.Clone())
	if f.failSave != nil {
		return nil, f.failSave
	}
	f.nextID++
	note := &model.Note{
		ID:       model.NoteID("saved-" + strconv.Itoa(f.nextID)),
		Original: original,
		Summary:  summaryOf("Saved Patient", "cough"),
	}
	f.notes = append([]*model.Note{note}, f.notes...)
	return note.Clone(), nil
}

func (f *fakeBackend) SaveEditedNote(ctx context.Context, id model.NoteID, original string) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit != nil {
		return nil, f.failEdit
	}
	for _, n := range f.notes {
		if n.ID == id {
			n.Original = original
			n.Summary = summaryOf(n.PatientName(), "edited")
			return n.Clone(), nil
		}
	}
	return nil, goerr.New("note not found")
}

func (f *fakeBackend) DeleteNote(ctx context.Context, id model.NoteID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.failDelete != nil {
		return f.failDelete
	}
	for i, n := range f.notes {
		if n.ID == id {
			f.notes = append(f.notes[:i:i], f.notes[i+1:]...)
			return nil
		}
	}
	return goerr.New("note not found")
}

func (f *fakeBackend) SaveEditedSummary(ctx context.Context, id model.NoteID, summary *model.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushedSummaries[id] = summary.Clone()
	return f.failSummary
}

func (f *fakeBackend) GetFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFollowUp != nil {
		return nil, f.failFollowUp
	}
	return f.followUps[id].Clone(), nil
}

func (f *fakeBackend) GenerateFollowUp(ctx context.Context, id model.NoteID) (*model.FollowUpActionSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGenerate != nil {
		return nil, f.failGenerate
	}
	set := &model.FollowUpActionSet{
		NoteID:         id,
		UrgencyLevel:   types.UrgencyLevelRoutine,
		PatientActions: []model.ActionItem{{Action: "Rest", Priority: types.PriorityLow}},
		DoctorActions:  []model.ActionItem{},
	}
	f.followUps[id] = set
	return set.Clone(), nil
}

func (f *fakeBackend) FindPreviousHistory(ctx context.Context, name, age string) (*model.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyQueries = append(f.historyQueries, historyQuery{name: name, age: age})
	if f.failHistory != nil {
		return nil, f.failHistory
	}
	return f.history.Clone(), nil
}

func (f *fakeBackend) AnalyzeTreatmentEfficacy(ctx context.Context, patientName string) (*model.TreatmentEfficacyAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAnalysis != nil {
		return nil, f.failAnalysis
	}
	return f.analysis, nil
}

func (f *fakeBackend) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribed = append(f.transcribed, filename)
	if f.failTranscribe != nil {
		return "", f.failTranscribe
	}
	return f.transcript, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []model.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, notification model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notification)
}

func summaryOf(name string, symptoms ...string) *model.Summary {
	return model.Prepare(&model.Summary{
		PatientDetails: model.PatientDetails{Name: name},
		Symptoms:       symptoms,
	})
}

func noteOf(id, name string, symptoms ...string) *model.Note {
	return &model.Note{
		ID:       model.NoteID(id),
		Original: "visit of " + name,
		Summary:  summaryOf(name, symptoms...),
	}
}

var fixedNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func newUseCases(backend *fakeBackend, opts ...usecase.Option) *usecase.UseCases {
	opts = append([]usecase.Option{usecase.WithClock(func() time.Time { return fixedNow })}, opts...)
	return usecase.New(backend, opts...)
}

func levels(notifications []model.Notification) []types.NotificationLevel {
	result := make([]types.NotificationLevel, len(notifications))
	for i, n := range notifications {
		result[i] = n.Level
	}
	return result
}
