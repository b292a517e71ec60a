package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
	"github.com/secmon-lab/medinotes/pkg/utils/errutil"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

// HistoryLookup is an in-flight previous history search. Its Generation must
// still be the session's current one when the result is applied.
type HistoryLookup struct {
	Generation uint64                 `json:"generation"`
	Patient    *model.PatientIdentity `json:"patient"`
}

// HistoryUseCase looks up the previous visit of a patient being documented and
// analyzes treatment efficacy across visits
type HistoryUseCase struct {
	*base
	extractor interfaces.PatientExtractor
}

// NewHistoryUseCase creates a new HistoryUseCase instance
func NewHistoryUseCase(b *base, extractor interfaces.PatientExtractor) *HistoryUseCase {
	return &HistoryUseCase{base: b, extractor: extractor}
}

// LookupHistory runs BeginLookup, FetchHistory and ApplyHistory in sequence.
// It returns the imported history, or nil when the transcript does not name a
// patient with an age, nothing matched, or the lookup was superseded.
func (uc *HistoryUseCase) LookupHistory(ctx context.Context, s *model.Session, transcript string) (*model.Summary, error) {
	lookup := uc.BeginLookup(ctx, s, transcript)
	if lookup == nil {
		return nil, nil
	}
	return uc.complete(ctx, s, lookup)
}

func (uc *HistoryUseCase) complete(ctx context.Context, s *model.Session, lookup *HistoryLookup) (*model.Summary, error) {
	history, err := uc.FetchHistory(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if !uc.ApplyHistory(ctx, s, lookup, history) {
		return nil, nil
	}
	return s.ImportedHistory, nil
}

// BeginLookup extracts the patient from transcript and starts a new lookup
// generation. Nil means no lookup is warranted.
func (uc *HistoryUseCase) BeginLookup(ctx context.Context, s *model.Session, transcript string) *HistoryLookup {
	patient, err := uc.extractor.Extract(ctx, transcript)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to extract patient details", goerr.V(SessionIDKey, s.ID)), "patient extraction failed")
		return nil
	}
	if !patient.IsComplete() {
		logging.From(ctx).Debug("no patient name and age in transcript", "session_id", s.ID)
		return nil
	}

	return &HistoryLookup{
		Generation: s.BeginHistoryLookup(),
		Patient:    patient,
	}
}

// FetchHistory asks the backend for the previous visit of the looked up patient.
// It does not touch the session.
func (uc *HistoryUseCase) FetchHistory(ctx context.Context, lookup *HistoryLookup) (*model.Summary, error) {
	history, err := uc.backend.FindPreviousHistory(ctx, lookup.Patient.Name, lookup.Patient.Age)
	if err != nil {
		return nil, errutil.Handle(ctx, goerr.Wrap(err, "failed to find previous history",
			goerr.V("generation", lookup.Generation),
		), "history lookup failed")
	}
	return history, nil
}

// ApplyHistory imports history into the session when lookup is still the
// current generation. A superseded result is discarded.
func (uc *HistoryUseCase) ApplyHistory(ctx context.Context, s *model.Session, lookup *HistoryLookup, history *model.Summary) bool {
	if history == nil {
		return false
	}
	if !s.ApplyHistory(lookup.Generation, history) {
		logging.From(ctx).Debug("discarded stale history lookup",
			"session_id", s.ID,
			"generation", lookup.Generation,
			"current", s.HistoryGeneration,
		)
		return false
	}

	uc.notify(ctx, s, types.NotificationInfo,
		"Found previous medical history for "+lookup.Patient.Name+". Personal details have been pre-filled.")
	return true
}

// ClearImportedHistory dismisses imported history. A lookup still in flight can no longer import.
func (uc *HistoryUseCase) ClearImportedHistory(ctx context.Context, s *model.Session) {
	had := s.ImportedHistory != nil
	s.ClearHistory()
	if had {
		uc.notify(ctx, s, types.NotificationInfo, "Imported patient history cleared")
	}
}

// AnalyzeTreatmentEfficacy correlates a patient's treatments with symptom
// changes across visits. Too little data is a warning, not a failure of the call site.
func (uc *HistoryUseCase) AnalyzeTreatmentEfficacy(ctx context.Context, s *model.Session, patientName string) (*model.TreatmentEfficacyAnalysis, error) {
	st, err := uc.StageAnalyzeTreatmentEfficacy(ctx, s, patientName)
	return run(ctx, s, st, err)
}

// StageAnalyzeTreatmentEfficacy is AnalyzeTreatmentEfficacy with the backend
// call separated from the session
func (uc *HistoryUseCase) StageAnalyzeTreatmentEfficacy(ctx context.Context, s *model.Session, patientName string) (*Staged[*model.TreatmentEfficacyAnalysis], error) {
	name := strings.TrimSpace(patientName)
	if name == "" {
		uc.notify(ctx, s, types.NotificationWarning, "Please enter a patient name")
		return nil, goerr.Wrap(ErrEmptyPatientName, "cannot analyze treatment efficacy")
	}

	var (
		analysis *model.TreatmentEfficacyAnalysis
		callErr  error
	)
	return &Staged[*model.TreatmentEfficacyAnalysis]{
		call: func(ctx context.Context) {
			analysis, callErr = uc.backend.AnalyzeTreatmentEfficacy(ctx, name)
		},
		apply: func(ctx context.Context, s *model.Session) (*model.TreatmentEfficacyAnalysis, error) {
			if callErr != nil {
				if errors.Is(callErr, notesapi.ErrInsufficientData) {
					uc.notify(ctx, s, types.NotificationWarning, reason(callErr))
				} else {
					uc.notify(ctx, s, types.NotificationError, "Failed to analyze treatment efficacy: "+reason(callErr))
				}
				return nil, goerr.Wrap(callErr, "failed to analyze treatment efficacy")
			}
			return analysis, nil
		},
	}, nil
}
