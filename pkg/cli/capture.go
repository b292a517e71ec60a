package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/service/capture"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdTranscribe() *cli.Command {
	var (
		cfg  clientConfig
		save bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "save",
			Usage:       "Save the transcribed text as a note",
			Destination: &save,
		},
	}

	return &cli.Command{
		Name:      "transcribe",
		Usage:     "Transcribe an audio file into the capture area",
		ArgsUsage: "<audio file>",
		Flags:     append(flags, cfg.Flags()...),
		Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			if c.Args().Len() < 1 {
				return goerr.New("audio file is required")
			}
			path := c.Args().First()

			f, err := os.Open(filepath.Clean(path))
			if err != nil {
				return goerr.Wrap(err, "failed to open audio file", goerr.V("path", path))
			}
			defer safe.Close(ctx, f)

			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				text, err := cl.uc.Capture.Transcribe(ctx, s, filepath.Base(path), f)
				if err != nil {
					return err
				}
				cl.println(text)

				if save {
					return cl.submitCapture(ctx, s)
				}
				return nil
			})
		}),
	}
}

func cmdRecord() *cli.Command {
	var (
		cfg   clientConfig
		audio string
		save  bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "audio",
			Usage:       "Audio device or file to record alongside recognition and archive when capture ends",
			Destination: &audio,
		},
		&cli.BoolFlag{
			Name:        "save",
			Usage:       "Save the captured text as a note when capture ends",
			Destination: &save,
		},
	}

	return &cli.Command{
		Name:  "record",
		Usage: "Capture dictation from recognizer output on stdin. A line starting with '~' is interim text. Ends at EOF or on interrupt",
		Flags: append(flags, cfg.Flags()...),
		Action: withClient(&cfg, func(ctx context.Context, c *cli.Command, cl *client) error {
			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cl.run(ctx, func(ctx context.Context, s *model.Session) error {
				opts := []capture.Option{
					capture.WithRecognizer(capture.NewLineRecognizer(c.Root().Reader)),
					capture.WithNotifier(newTerminalNotifier(c.Root().ErrWriter)),
					capture.WithOnEnd(func(ctx context.Context, transcript string, rec io.Reader) {
						if _, err := cl.uc.Capture.EndCapture(ctx, s, transcript); err != nil {
							logging.From(ctx).Warn("history lookup after capture failed", "error", err)
						}
						if rec == nil {
							return
						}
						data, err := safe.ReadAll(rec, capture.MaxRecordingSize)
						if err != nil {
							logging.From(ctx).Warn("failed to read recording", "error", err)
							return
						}
						cl.uc.Capture.Archive(ctx, s, filepath.Base(audio), data)
					}),
				}
				if audio != "" {
					opts = append(opts, capture.WithRecorder(capture.NewFileRecorder(audio)))
				}

				ctrl := capture.New(opts...)
				if err := ctrl.Start(sigCtx); err != nil {
					return err
				}
				<-ctrl.Done()

				if s.Capture.Text == "" {
					cl.println("Nothing was captured.")
					return nil
				}
				cl.println(s.Capture.Text)

				if save {
					return cl.submitCapture(ctx, s)
				}
				return nil
			})
		}),
	}
}

// submitCapture saves the capture area text as a note
func (cl *client) submitCapture(ctx context.Context, s *model.Session) error {
	note, err := cl.uc.Note.Submit(ctx, s, s.Capture.Text)
	if err != nil {
		return err
	}
	cl.println(string(note.ID))
	return nil
}
