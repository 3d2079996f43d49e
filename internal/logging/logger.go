// Package logging builds the charmbracelet/log loggers used by objdis.
// Level, prefix and destination come from environment variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser wraps a logger and closes its writer when it owns one.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Level maps OBJDIS_LOG_LEVEL to a log level. debug forces DebugLevel.
func Level(debug bool) log.Level {
	if debug {
		return log.DebugLevel
	}
	switch os.Getenv("OBJDIS_LOG_LEVEL") {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(w io.Writer, debug bool) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		ReportCaller:    debug || IsDebug(),
	})
	lg.SetLevel(Level(debug))

	prefix := os.Getenv("OBJDIS_LOG_PREFIX")
	if prefix == "" {
		prefix = "objdis"
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a logger configured from the environment:
// OBJDIS_LOG_LEVEL: debug, info, warn, error (default: info)
// OBJDIS_LOG_PREFIX: prefix for log messages (default: "objdis")
// OBJDIS_LOG_TO_FILE: when set to "1", logs to a timestamped file instead of stderr
func NewLogger(debug bool) *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv("OBJDIS_LOG_TO_FILE") == "1" {
		logFile := fmt.Sprintf("objdis-%s.log", time.Now().Format("20060102-150405"))
		// Fall back to stderr when the file cannot be created.
		if f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			output = f
		}
	}

	return NewLoggerWithWriter(output, debug)
}

// IsDebug reports whether debug logging was requested through the environment.
func IsDebug() bool {
	return os.Getenv("OBJDIS_LOG_LEVEL") == "debug"
}
