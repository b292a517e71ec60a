package config

import "time"

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewBackendForTest creates a Backend config for testing purposes
func NewBackendForTest(url string, timeout time.Duration, strictIDs bool, configPath string) *Backend {
	return &Backend{
		url:        url,
		timeout:    timeout,
		strictIDs:  strictIDs,
		configPath: configPath,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewRecordingForTest creates a Recording config for testing purposes
func NewRecordingForTest(bucket string) *Recording {
	return &Recording{bucket: bucket}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}
