package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
	"github.com/secmon-lab/medinotes/pkg/service/summarydoc"
)

// FollowUpUseCase fetches, generates and exports follow-up actions of notes
type FollowUpUseCase struct {
	*base
}

// NewFollowUpUseCase creates a new FollowUpUseCase instance
func NewFollowUpUseCase(b *base) *FollowUpUseCase {
	return &FollowUpUseCase{base: b}
}

// GetFollowUp returns the existing follow-up actions of a note. A note without
// actions yields nil and no notification.
func (uc *FollowUpUseCase) GetFollowUp(ctx context.Context, s *model.Session, id model.NoteID) (*model.FollowUpActionSet, error) {
	st, err := uc.StageGetFollowUp(ctx, s, id)
	return run(ctx, s, st, err)
}

// StageGetFollowUp is GetFollowUp with the backend call separated from the session
func (uc *FollowUpUseCase) StageGetFollowUp(_ context.Context, _ *model.Session, id model.NoteID) (*Staged[*model.FollowUpActionSet], error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var (
		set    *model.FollowUpActionSet
		getErr error
	)
	return &Staged[*model.FollowUpActionSet]{
		call: func(ctx context.Context) {
			set, getErr = uc.backend.GetFollowUp(ctx, id)
		},
		apply: func(ctx context.Context, s *model.Session) (*model.FollowUpActionSet, error) {
			if getErr != nil {
				uc.notify(ctx, s, types.NotificationError, "Failed to load follow-up actions: "+reason(getErr))
				return nil, goerr.Wrap(getErr, "failed to get follow-up actions", goerr.V(NoteIDKey, id))
			}
			if set == nil {
				return nil, nil
			}
			s.SetFollowUp(id, set)
			return set, nil
		},
	}, nil
}

// GenerateFollowUp asks the backend for a new set of follow-up actions
func (uc *FollowUpUseCase) GenerateFollowUp(ctx context.Context, s *model.Session, id model.NoteID) (*model.FollowUpActionSet, error) {
	st, err := uc.StageGenerateFollowUp(ctx, s, id)
	return run(ctx, s, st, err)
}

// StageGenerateFollowUp is GenerateFollowUp with the backend call separated
// from the session. The result lands on the detail view only if the note is
// still open when it is applied.
func (uc *FollowUpUseCase) StageGenerateFollowUp(_ context.Context, _ *model.Session, id model.NoteID) (*Staged[*model.FollowUpActionSet], error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var (
		set    *model.FollowUpActionSet
		genErr error
	)
	return &Staged[*model.FollowUpActionSet]{
		call: func(ctx context.Context) {
			set, genErr = uc.backend.GenerateFollowUp(ctx, id)
		},
		apply: func(ctx context.Context, s *model.Session) (*model.FollowUpActionSet, error) {
			if genErr != nil {
				uc.notify(ctx, s, types.NotificationError, "Failed to generate follow-up actions: "+reason(genErr))
				return nil, goerr.Wrap(genErr, "failed to generate follow-up actions", goerr.V(NoteIDKey, id))
			}
			s.SetFollowUp(id, set)
			uc.notify(ctx, s, types.NotificationSuccess, "Follow-up actions generated")
			return set, nil
		},
	}, nil
}

// ExportFollowUp builds the downloadable follow-up document of a note, using
// the set cached on the open view when there is one.
func (uc *FollowUpUseCase) ExportFollowUp(ctx context.Context, s *model.Session, id model.NoteID) (*summarydoc.Export, error) {
	st, err := uc.StageExportFollowUp(ctx, s, id)
	return run(ctx, s, st, err)
}

// StageExportFollowUp is ExportFollowUp with the fetch of an uncached set
// separated from the session
func (uc *FollowUpUseCase) StageExportFollowUp(ctx context.Context, s *model.Session, id model.NoteID) (*Staged[*summarydoc.Export], error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	found, err := uc.findNote(ctx, s, id)
	if err != nil {
		return nil, err
	}
	note := found.Clone()

	var (
		cached *model.FollowUpActionSet
		get    *Staged[*model.FollowUpActionSet]
	)
	if s.IsOpen(id) && s.Open.FollowUp != nil {
		cached = s.Open.FollowUp.Clone()
	} else if get, err = uc.StageGetFollowUp(ctx, s, id); err != nil {
		return nil, err
	}

	return &Staged[*summarydoc.Export]{
		call: func(ctx context.Context) {
			if get != nil {
				get.Call(ctx)
			}
		},
		apply: func(ctx context.Context, s *model.Session) (*summarydoc.Export, error) {
			set := cached
			if get != nil {
				fetched, err := get.Apply(ctx, s)
				if err != nil {
					return nil, err
				}
				set = fetched
			}
			if set == nil {
				uc.notify(ctx, s, types.NotificationWarning, "No follow-up actions to download")
				return nil, goerr.Wrap(ErrFollowUpNotFound, "cannot export follow-up actions", goerr.V(NoteIDKey, id))
			}
			return summarydoc.ExportFollowUp(note, set, uc.now())
		},
	}, nil
}
