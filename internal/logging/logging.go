// Package logging builds the process slog logger: a text or JSON handler on
// stderr, optionally fanned out to a size-rotated log file.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "DOCPREP_LOG_LEVEL"

// Options selects level, format and the optional rotating file.
type Options struct {
	Level  slog.Level
	JSON   bool
	Stderr io.Writer

	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel maps debug/info/warn/error (case-insensitive) to a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LevelFromEnv returns the level in DOCPREP_LOG_LEVEL, or fallback.
func LevelFromEnv(fallback slog.Level) slog.Level {
	if v, ok := os.LookupEnv(EnvLevel); ok {
		if lvl, ok := ParseLevel(v); ok {
			return lvl
		}
	}
	return fallback
}

// New builds a logger. The returned closer releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	var console slog.Handler
	if opts.JSON {
		console = slog.NewJSONHandler(stderr, hopts)
	} else {
		console = slog.NewTextHandler(stderr, hopts)
	}
	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, err
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   true,
	}
	// Files always get JSON so they can be shipped as-is.
	fileHandler := slog.NewJSONHandler(file, hopts)
	return slog.New(fanout{console, fileHandler}), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
