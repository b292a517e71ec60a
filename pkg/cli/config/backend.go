package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
	"github.com/urfave/cli/v3"
)

// DefaultBackendURL is where the reference backend listens
const DefaultBackendURL = "http://localhost:5000"

// Backend holds configuration for the notes backend client
type Backend struct {
	url        string
	timeout    time.Duration
	strictIDs  bool
	configPath string
}

// Flags returns CLI flags for backend configuration
func (b *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend-url",
			Usage:       "Base URL of the notes backend (default " + DefaultBackendURL + ")",
			Category:    "Backend",
			Sources:     cli.EnvVars("MEDINOTES_BACKEND_URL"),
			Destination: &b.url,
		},
		&cli.DurationFlag{
			Name:        "backend-timeout",
			Usage:       "Timeout of each backend request",
			Category:    "Backend",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("MEDINOTES_BACKEND_TIMEOUT"),
			Destination: &b.timeout,
		},
		&cli.BoolFlag{
			Name:        "strict-ids",
			Usage:       "Fail on a boolean note ID from the backend instead of substituting a temporary one",
			Category:    "Backend",
			Sources:     cli.EnvVars("MEDINOTES_STRICT_IDS"),
			Destination: &b.strictIDs,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML file overriding backend routes, timeout and strict-id mode",
			Category:    "Backend",
			Sources:     cli.EnvVars("MEDINOTES_CONFIG"),
			Destination: &b.configPath,
		},
	}
}

// LogAttrs returns log attributes for the backend configuration
func (b *Backend) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("url", b.url),
		slog.Duration("timeout", b.timeout),
		slog.Bool("strict_ids", b.strictIDs),
		slog.String("config", b.configPath),
	}
}

// Configure creates the backend client. Values of the TOML file win over flags.
func (b *Backend) Configure() (*notesapi.Client, error) {
	url := b.url
	timeout := b.timeout
	strict := b.strictIDs
	var opts []notesapi.Option

	if b.configPath != "" {
		appCfg, err := LoadAppConfiguration(b.configPath)
		if err != nil {
			return nil, err
		}
		file := appCfg.Backend

		if url == "" {
			url = file.URL
		}
		d, err := file.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		if d > 0 {
			timeout = d
		}
		if file.StrictIDs != nil {
			strict = *file.StrictIDs
		}
		opts = append(opts, notesapi.WithRoutes(file.Routes))
	}

	if url == "" {
		url = DefaultBackendURL
	}
	if timeout > 0 {
		opts = append(opts, notesapi.WithTimeout(timeout))
	}
	opts = append(opts, notesapi.WithStrictIDs(strict))

	client, err := notesapi.New(url, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create backend client")
	}
	return client, nil
}
