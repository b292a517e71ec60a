package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/cli/config"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/usecase"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// maxInputText bounds note text and documents read from stdin or files
const maxInputText = 4 << 20

var now = time.Now

// clientConfig holds the flags shared by commands that talk to the backend
type clientConfig struct {
	backend   config.Backend
	repo      config.Repository
	gemini    config.Gemini
	recording config.Recording
	sessionID string
}

func (x *clientConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Usage:       "Keep view state (edit in progress, imported history) in the session store under this ID across invocations",
			Sources:     cli.EnvVars("MEDINOTES_SESSION_ID"),
			Destination: &x.sessionID,
		},
	}
	flags = append(flags, x.backend.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.gemini.Flags()...)
	flags = append(flags, x.recording.Flags()...)
	return flags
}

// useCases builds the use cases from the configured backend, extractor and
// recording archive. The returned function releases them.
func (x *clientConfig) useCases(ctx context.Context, opts ...usecase.Option) (*usecase.UseCases, func(), error) {
	backend, err := x.backend.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure backend")
	}
	extractor, err := x.gemini.Extractor(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure patient extractor")
	}
	recordings, closeRecordings, err := x.recording.Configure(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts = append(opts, usecase.WithExtractor(extractor))
	if recordings != nil {
		opts = append(opts, usecase.WithRecordingStore(recordings))
	}
	return usecase.New(backend, opts...), closeRecordings, nil
}

// client runs one command against a session
type client struct {
	uc        *usecase.UseCases
	repo      interfaces.Repository
	sessionID model.SessionID
	stdout    io.Writer
	closers   []func()
}

func (x *clientConfig) open(ctx context.Context, c *cli.Command) (*client, error) {
	stdout := c.Root().Writer
	uc, closeUC, err := x.useCases(ctx, usecase.WithNotifier(newTerminalNotifier(c.Root().ErrWriter)))
	if err != nil {
		return nil, err
	}

	cl := &client{
		uc:        uc,
		sessionID: model.SessionID(x.sessionID),
		stdout:    stdout,
		closers:   []func(){closeUC},
	}

	if cl.sessionID != "" {
		repo, err := x.repo.Configure(ctx)
		if err != nil {
			cl.Close()
			return nil, goerr.Wrap(err, "failed to initialize session store")
		}
		cl.repo = repo
		cl.closers = append(cl.closers, func() {
			if err := repo.Close(); err != nil {
				logging.Default().Error("failed to close repository", "error", err.Error())
			}
		})
	}
	return cl, nil
}

func (cl *client) Close() {
	for i := len(cl.closers) - 1; i >= 0; i-- {
		cl.closers[i]()
	}
}

// run loads the session, runs fn on it and saves it back when a session ID
// was given. Background pushes are awaited before returning.
func (cl *client) run(ctx context.Context, fn func(ctx context.Context, s *model.Session) error) error {
	s, err := cl.load(ctx)
	if err != nil {
		return err
	}

	opErr := fn(ctx, s)
	// Notifications were already printed by the terminal notifier
	s.DrainNotifications()

	if cl.repo != nil {
		if err := cl.repo.Session().Put(ctx, s); err != nil {
			return goerr.Wrap(err, "failed to save session", goerr.V(model.SessionKey, s.ID))
		}
	}
	if err := cl.uc.Wait(ctx); err != nil {
		return goerr.Wrap(err, "background backend update did not finish")
	}
	return opErr
}

func (cl *client) load(ctx context.Context) (*model.Session, error) {
	s := model.NewSession(now())
	if cl.repo == nil {
		return s, nil
	}

	stored, err := cl.repo.Session().Get(ctx, cl.sessionID)
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		s.ID = cl.sessionID
		return s, nil
	case err != nil:
		return nil, goerr.Wrap(err, "failed to load session", goerr.V(model.SessionKey, cl.sessionID))
	}
	return stored, nil
}

func (cl *client) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal output")
	}
	safe.Write(context.Background(), cl.stdout, append(data, '\n'))
	return nil
}

func (cl *client) println(s string) {
	safe.Write(context.Background(), cl.stdout, []byte(s+"\n"))
}

// textArg joins the command arguments, or reads stdin when there are none or the only one is "-"
func textArg(c *cli.Command) (string, error) {
	args := c.Args().Slice()
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := safe.ReadAll(c.Root().Reader, maxInputText)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read stdin")
	}
	return string(data), nil
}

func noteIDArg(c *cli.Command) (model.NoteID, error) {
	if c.Args().Len() < 1 {
		return "", goerr.New("note ID is required")
	}
	return model.NoteID(c.Args().First()), nil
}
