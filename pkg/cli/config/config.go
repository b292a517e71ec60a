package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/medinotes/pkg/service/notesapi"
)

// AppConfig represents the optional TOML configuration file
type AppConfig struct {
	Backend BackendFile `toml:"backend"`
}

// BackendFile overrides how the notes backend is reached. Empty values keep
// the flag or default value.
type BackendFile struct {
	URL       string          `toml:"url"`
	Timeout   string          `toml:"timeout"`
	StrictIDs *bool           `toml:"strict_ids"`
	Routes    notesapi.Routes `toml:"routes"`
}

// TimeoutDuration returns the parsed timeout, or zero when none is set
func (b *BackendFile) TimeoutDuration() (time.Duration, error) {
	if b.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidTimeout, "cannot parse timeout", goerr.V(TimeoutKey, b.Timeout))
	}
	if d <= 0 {
		return 0, goerr.Wrap(ErrInvalidTimeout, "timeout must be positive", goerr.V(TimeoutKey, b.Timeout))
	}
	return d, nil
}

// Validate checks if the BackendFile is valid
func (b *BackendFile) Validate() error {
	if _, err := b.TimeoutDuration(); err != nil {
		return err
	}

	v := reflect.ValueOf(b.Routes)
	for i := 0; i < v.NumField(); i++ {
		route := v.Field(i).String()
		if route != "" && !strings.HasPrefix(route, "/") {
			return goerr.Wrap(ErrInvalidRoute, "invalid backend route",
				goerr.V(RouteKey, route),
				goerr.V("field", v.Type().Field(i).Name),
			)
		}
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Backend.Validate(); err != nil {
		return goerr.Wrap(err, "invalid backend section")
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()),
		)
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}
