package http

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
	"github.com/secmon-lab/medinotes/pkg/service/summarydoc"
	"github.com/secmon-lab/medinotes/pkg/usecase"
	"github.com/secmon-lab/medinotes/pkg/utils/errutil"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
)

// operation runs one use case call against the request's session
type operation func(ctx context.Context, r *http.Request, sess *model.Session) (any, error)

// stagedOperation prepares a use case call against the request's session
type stagedOperation func(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error)

// pending is a prepared backend call and the operation that records its
// outcome. The session is released while call runs; apply gets it back and
// may stage a further call. A pending without call is finished with data.
type pending struct {
	call  func(ctx context.Context)
	apply stagedOperation
	data  any
}

func done(data any) *pending {
	return &pending{data: data}
}

// staged runs st's backend call with the session released and answers with
// view of the session st was applied to
func staged[T any](st *usecase.Staged[T], view func(sess *model.Session, v T) any) *pending {
	return &pending{
		call: st.Call,
		apply: func(ctx context.Context, _ *http.Request, sess *model.Session) (*pending, error) {
			v, err := st.Apply(ctx, sess)
			if err != nil {
				return nil, err
			}
			return done(view(sess, v)), nil
		},
	}
}

// immediate adapts an operation that completes while the session is held
func immediate(op operation) stagedOperation {
	return func(ctx context.Context, r *http.Request, sess *model.Session) (*pending, error) {
		data, err := op(ctx, r, sess)
		if err != nil {
			return nil, err
		}
		return done(data), nil
	}
}

type apiResponse struct {
	Data          any                  `json:"data,omitempty"`
	Error         string               `json:"error,omitempty"`
	Notifications []model.Notification `json:"notifications"`
}

type outcome struct {
	sess          *model.Session
	data          any
	err           error
	notifications []model.Notification
}

// run drives op against the request's session. Every step is a separate
// load-mutate-save of the session, and backend calls between the steps run
// with the session released so that other requests of the same session
// proceed meanwhile. Notifications are collected only when drain is set.
func (s *Server) run(ctx context.Context, r *http.Request, op stagedOperation, drain bool) (*outcome, error) {
	out := &outcome{}
	id := requestedSession(r)
	step := op

	for {
		var p *pending
		sess, err := s.sessions.with(ctx, id, func(sess *model.Session) {
			ctx := logging.With(ctx, logging.From(ctx).With("session_id", sess.ID))
			p, out.err = step(ctx, r, sess)
			if drain {
				out.notifications = append(out.notifications, sess.DrainNotifications()...)
			}
		})
		if err != nil {
			return nil, err
		}
		out.sess, id = sess, sess.ID

		if out.err != nil {
			return out, nil
		}
		if p.call == nil {
			out.data = p.data
			return out, nil
		}

		p.call(logging.With(ctx, logging.From(ctx).With("session_id", id)))
		step = p.apply
	}
}

// handle runs op on the request's session and answers with the result and
// every notification raised so far.
func (s *Server) handle(op operation) http.HandlerFunc {
	return s.handleStaged(immediate(op))
}

// handleStaged is handle for operations that call the backend
func (s *Server) handleStaged(op stagedOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, op)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, op stagedOperation) {
	ctx := r.Context()

	out, err := s.run(ctx, r, op, true)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, r, out.sess.ID)

	if out.err != nil {
		writeError(ctx, w, out.err, out.notifications)
		return
	}
	writeJSON(ctx, w, http.StatusOK, &apiResponse{Data: out.data, Notifications: out.notifications})
}

// download serves the *summarydoc.Export produced by op. Notifications stay
// queued on the session for the next JSON call.
func (s *Server) download(op stagedOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		out, err := s.run(ctx, r, op, false)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
			return
		}
		s.setSessionCookie(w, r, out.sess.ID)

		if out.err != nil {
			errutil.HandleHTTP(ctx, w, out.err, statusOf(out.err))
			return
		}
		exp, ok := out.data.(*summarydoc.Export)
		if !ok || exp == nil {
			errutil.HandleHTTP(ctx, w, goerr.New("no document produced"), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", exp.ContentType)
		if exp.Filename != "" {
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
		}
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, exp.Body)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, resp *apiResponse) {
	if resp.Notifications == nil {
		resp.Notifications = []model.Notification{}
	}
	data, err := json.Marshal(resp)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error, notifications []model.Notification) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, err, "request failed")
	} else {
		logging.From(ctx).Info("request refused", "status", status, "error", err.Error())
	}
	writeJSON(ctx, w, status, &apiResponse{Error: err.Error(), Notifications: notifications})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmptyText),
		errors.Is(err, usecase.ErrEmptyPatientName),
		errors.Is(err, usecase.ErrInvalidSummary),
		errors.Is(err, model.ErrInvalidNoteID),
		errors.Is(err, model.ErrBooleanNoteID),
		errors.Is(err, notesapi.ErrNotAudio),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	case errors.Is(err, usecase.ErrNoteNotFound),
		errors.Is(err, usecase.ErrFollowUpNotFound),
		errors.Is(err, model.ErrNoteNotInView):
		return http.StatusNotFound

	case errors.Is(err, model.ErrNoOpenNote):
		return http.StatusConflict

	case errors.Is(err, usecase.ErrConfirmationRequired):
		return http.StatusPreconditionRequired

	case errors.Is(err, notesapi.ErrInsufficientData):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusBadGateway
	}
}

// errBadRequest marks malformed request bodies
var errBadRequest = goerr.New("malformed request")

func decodeJSON(r *http.Request, v any) error {
	data, err := safe.ReadAll(r.Body, maxJSONBody)
	if err != nil {
		return goerr.Wrap(errBadRequest, "failed to read request body", goerr.V("cause", err.Error()))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return goerr.Wrap(errBadRequest, "invalid JSON body", goerr.V("cause", err.Error()))
	}
	return nil
}

const maxJSONBody = 4 << 20
