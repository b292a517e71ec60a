package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound  = goerr.New("configuration file not found")
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrInvalidRoute    = goerr.New("backend route must be an absolute path")
	ErrInvalidTimeout  = goerr.New("invalid backend timeout")
	ErrInvalidLogLevel = goerr.New("invalid log level")
	ErrInvalidFormat   = goerr.New("invalid log format")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	RouteKey      = "route"
	TimeoutKey    = "timeout"
	LogLevelKey   = "log_level"
	LogFormatKey  = "log_format"
)
