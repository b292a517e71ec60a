package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/service/recording"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Recording holds configuration of the recording archive
type Recording struct {
	bucket string
	prefix string
}

// Flags returns CLI flags for recording archive configuration
func (r *Recording) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "recording-bucket",
			Usage:       "Cloud Storage bucket archiving captured audio. Audio is not archived when empty",
			Category:    "Recording",
			Sources:     cli.EnvVars("MEDINOTES_RECORDING_BUCKET"),
			Destination: &r.bucket,
		},
		&cli.StringFlag{
			Name:        "recording-prefix",
			Usage:       "Object name prefix of archived audio",
			Category:    "Recording",
			Value:       "recordings/",
			Sources:     cli.EnvVars("MEDINOTES_RECORDING_PREFIX"),
			Destination: &r.prefix,
		},
	}
}

// LogAttrs returns log attributes for the recording configuration
func (r *Recording) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("bucket", r.bucket),
		slog.String("prefix", r.prefix),
	}
}

// Configure creates the recording store. It returns nil without error when
// no bucket is configured. The returned function releases the store.
func (r *Recording) Configure(ctx context.Context) (interfaces.RecordingStore, func(), error) {
	if r.bucket == "" {
		return nil, func() {}, nil
	}

	store, err := recording.NewGCS(ctx, r.bucket, recording.WithObjectPrefix(r.prefix))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize recording archive", goerr.V("bucket", r.bucket))
	}
	logging.Default().Info("Archiving recordings to Cloud Storage", "bucket", r.bucket)

	return store, func() {
		if err := store.Close(); err != nil {
			logging.Default().Warn("failed to close recording archive", "error", err)
		}
	}, nil
}
