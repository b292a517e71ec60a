package cli

import (
	"context"
	"io"
	"os"

	"github.com/secmon-lab/medinotes/pkg/cli/config"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	app := newApp(version, os.Stdin, os.Stdout, os.Stderr)

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}

func newApp(version string, stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	flags := append(loggerCfg.Flags(), sentryCfg.Flags()...)

	return &cli.Command{
		Name:      "medinotes",
		Usage:     "Capture, summarize and review clinical notes",
		Version:   version,
		Flags:     flags,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Debug("Starting medinotes", "logger", loggerCfg, "version", version)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdNotes(),
			cmdFollowUp(),
			cmdHistory(),
			cmdEfficacy(),
			cmdTranscribe(),
			cmdRecord(),
		},
	}
}
