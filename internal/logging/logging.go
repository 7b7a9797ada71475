// Package logging builds the zerolog logger. Output goes to a file because
// the terminal belongs to the UI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the log destination and verbosity.
type Options struct {
	Path  string
	Level string
	// Console writes human-readable lines to Writer instead of JSON to Path.
	Console bool
	Writer  io.Writer
}

// New opens the destination and returns a logger plus a close func.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var (
		w       io.Writer
		closeFn = func() error { return nil }
	)
	switch {
	case opts.Console:
		out := opts.Writer
		if out == nil {
			out = os.Stderr
		}
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	case opts.Writer != nil:
		w = opts.Writer
	case strings.TrimSpace(opts.Path) == "":
		return zerolog.Nop(), closeFn, nil
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, f.Close
	}

	log := zerolog.New(w).Level(level).With().Timestamp().Str("app", "realcheck").Logger()
	return log, closeFn, nil
}

// ParseLevel maps a config value to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
