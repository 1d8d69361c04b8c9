// Package logger builds the zerolog loggers used across the binaries and
// carries them through contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// Options controls how a logger is built.
type Options struct {
	// Service is stamped on every event, e.g. "api" or "worker".
	Service string
	// Level is one of zerolog's level strings; empty means "info".
	Level string
	// JSON switches off the console writer for machine-readable output.
	JSON bool
}

// New builds a logger writing to stdout. Human-readable console output by
// default; structured JSON when opts.JSON is set.
func New(opts Options) zerolog.Logger {
	return NewWithWriter(os.Stdout, opts)
}

// NewWithWriter builds a logger writing to w. Tests pass a buffer here.
func NewWithWriter(w io.Writer, opts Options) zerolog.Logger {
	if !opts.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level := parseLevel(opts.Level)
	lc := zerolog.New(w).Level(level).With().Timestamp()
	if opts.Service != "" {
		lc = lc.Str("service", opts.Service)
	}
	return lc.Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// WithContext returns a context carrying the logger.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext retrieves the logger from the context. Contexts without one
// get a plain info-level logger rather than a nop, so stray code paths stay
// visible.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(contextKey{}).(zerolog.Logger); ok {
		return log
	}
	return New(Options{})
}

// WithRun stamps a run identifier on the logger so all events of one
// analysis run can be correlated.
func WithRun(log zerolog.Logger, runID string) zerolog.Logger {
	return log.With().Str("run_id", runID).Logger()
}
