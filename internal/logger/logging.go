// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
// Every logger writes to stderr: stdout carries the msgpack stream in serve mode.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a new default charm log.
func New(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, true, log.TextFormatter)
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// Setup replaces the package level logger. debug wins over level.
func Setup(level string, debug bool) error {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		lvl = parsed
	}
	if debug {
		lvl = log.DebugLevel
	}
	l := NewWithConfig(os.Stderr, "symptoserve", lvl, debug, debug, log.TextFormatter)
	log.SetDefault(l)
	log.SetLevel(lvl)
	return nil
}
