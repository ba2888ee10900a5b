package fmf

import (
	"io"

	"github.com/teemtee/fmf/internal/logger"
)

// Logger defines the logging interface for fmf.
// All output is written to the configured io.Writer (typically os.Stderr).
type Logger interface {
	// Debugf logs detailed debugging information (shown at LevelDebug)
	Debugf(format string, args ...interface{})
	// Infof logs progress information (shown at LevelInfo and above)
	Infof(format string, args ...interface{})
	// Warnf logs warnings (always shown)
	Warnf(format string, args ...interface{})
}

// Log levels accepted by NewLogger.
const (
	LevelWarn  = logger.LevelWarn
	LevelInfo  = logger.LevelInfo
	LevelDebug = logger.LevelDebug
)

// NewLogger creates a logger that writes to w, showing messages up to
// the given level.
func NewLogger(w io.Writer, level logger.Level) Logger {
	return logger.New(w, level)
}

// NopLogger returns a no-op logger that discards all output.
func NopLogger() Logger {
	return logger.Nop()
}
