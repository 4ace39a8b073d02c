package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyVersion   = "version"
	KeyTransport = "transport"
	KeyTool      = "tool"
	KeyPath      = "path"
	KeyCount     = "count"
	KeyDuration  = "duration"
	KeyError     = "error"
)

// ParseLevel converts a textual level to a slog.Level.
// Accepted values are DEBUG, INFO, WARNING (or WARN) and ERROR, case-insensitive.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected DEBUG, INFO, WARNING or ERROR)", level)
	}
}

// Setup builds a text logger at the given level writing to w and installs it
// as the process default.
func Setup(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithVersion returns a logger with the IFS Cloud version attribute set.
func WithVersion(logger *slog.Logger, version string) *slog.Logger {
	return logger.With(slog.String(KeyVersion, version))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Transport returns a slog attribute for the MCP transport name.
func Transport(name string) slog.Attr {
	return slog.String(KeyTransport, name)
}

// Path returns a slog attribute for a file path.
func Path(path string) slog.Attr {
	return slog.String(KeyPath, path)
}

// Count returns a slog attribute for a count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Duration returns a slog attribute for an elapsed duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that slog omits from output,
// so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}
