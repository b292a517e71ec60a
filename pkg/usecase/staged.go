package usecase

import (
	"context"

	"github.com/secmon-lab/medinotes/pkg/domain/model"
)

// Staged is an operation split around its backend call. Call must not touch
// any session. Apply records the outcome on the session, which may have been
// changed by other operations while the call was running.
type Staged[T any] struct {
	call  func(ctx context.Context)
	apply func(ctx context.Context, s *model.Session) (T, error)
}

// Call runs the backend part of the operation
func (x *Staged[T]) Call(ctx context.Context) {
	if x.call != nil {
		x.call(ctx)
	}
}

// Apply records the outcome of Call on s
func (x *Staged[T]) Apply(ctx context.Context, s *model.Session) (T, error) {
	return x.apply(ctx, s)
}

// Run is Call followed by Apply on the same session
func (x *Staged[T]) Run(ctx context.Context, s *model.Session) (T, error) {
	x.Call(ctx)
	return x.Apply(ctx, s)
}

func run[T any](ctx context.Context, s *model.Session, st *Staged[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return st.Run(ctx, s)
}
