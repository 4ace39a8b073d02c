package config

import (
	"errors"
	"fmt"
	"io/fs"
)

// PermissionError is returned when the settings file or its directory
// cannot be read or written.
type PermissionError struct {
	Path    string
	Op      string // "read" or "write"
	Fix     string // shell command that restores access
	Details string
	Err     error
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("cannot %s ifs-cloud-mcp settings: %s\n", e.Op, e.Path)
	if e.Details != "" {
		msg += e.Details + "\n"
	}
	msg += "💡 Fix: " + e.Fix
	return msg
}

func (e *PermissionError) Unwrap() error { return e.Err }

// ConfigNotFoundError means ~/.ifs-cloud-mcp.json does not exist.
type ConfigNotFoundError struct {
	Path string
	Hint string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("settings file not found: %s\n\n💡 %s", e.Path, e.Hint)
}

func (e *ConfigNotFoundError) Unwrap() error { return fs.ErrNotExist }

// InvalidConfigError wraps a parse or validation failure of the settings file.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
	Err     error
}

func (e *InvalidConfigError) Error() string {
	msg := fmt.Sprintf("invalid settings in %s\n", e.Path)
	if e.Message != "" {
		msg += e.Message + "\n"
	}
	if e.Hint != "" {
		msg += "💡 " + e.Hint
	}
	return msg
}

func (e *InvalidConfigError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the config file does not exist.
func IsNotFound(err error) bool {
	var notFound *ConfigNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// IsInvalid reports whether err comes from a malformed or out-of-range setting.
func IsInvalid(err error) bool {
	var invalid *InvalidConfigError
	return errors.As(err, &invalid)
}
