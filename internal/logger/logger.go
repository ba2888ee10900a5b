// Package logger provides a simple leveled logging interface for fmf.
package logger

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Level selects how much output is shown.
type Level int

const (
	// LevelWarn shows warnings only.
	LevelWarn Level = iota
	// LevelInfo adds progress information.
	LevelInfo
	// LevelDebug adds detailed debugging output.
	LevelDebug
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

// NoOpLogger discards all log output (zero allocation).
type NoOpLogger struct{}

// Debugf is a no-op.
func (NoOpLogger) Debugf(string, ...interface{}) {}

// Infof is a no-op.
func (NoOpLogger) Infof(string, ...interface{}) {}

// Warnf is a no-op.
func (NoOpLogger) Warnf(string, ...interface{}) {}

// StdLogger writes leveled, colored messages to an io.Writer.
type StdLogger struct {
	w     io.Writer
	level Level
}

var (
	debugPrefix = color.New(color.FgCyan).Sprint("debug")
	infoPrefix  = color.New(color.FgGreen).Sprint("info")
	warnPrefix  = color.New(color.FgYellow).Sprint("warn")
)

// New creates a logger that writes to w, showing messages up to the
// given level. Warnings are always shown.
func New(w io.Writer, level Level) Logger {
	return &StdLogger{w: w, level: level}
}

// Nop returns a no-op logger that discards all output.
func Nop() Logger {
	return NoOpLogger{}
}

// Debugf logs a debug message if the level allows it.
func (l *StdLogger) Debugf(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		fmt.Fprintf(l.w, "["+debugPrefix+"] "+format+"\n", args...)
	}
}

// Infof logs a progress message if the level allows it.
func (l *StdLogger) Infof(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		fmt.Fprintf(l.w, "["+infoPrefix+"] "+format+"\n", args...)
	}
}

// Warnf logs a warning message (always shown).
func (l *StdLogger) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, "["+warnPrefix+"] "+format+"\n", args...)
}
