// Package logging configures the process-wide slog logger: a console handler on
// stderr plus an optional rotating JSON file.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. Defaults: info level, text format,
// no file.
type Options struct {
	Level     string // debug, info, warn, error
	Format    string // text or json
	File      string // enables rotated JSON file logging when set
	AddSource bool
}

// Init builds the logger described by opts and installs it as slog.Default.
// The returned function closes the log file, if any.
func Init(opts Options) (*slog.Logger, func() error) {
	if strings.TrimSpace(opts.File) == "" {
		logger := New(os.Stderr, nil, opts)
		slog.SetDefault(logger)
		return logger, func() error { return nil }
	}

	file := &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
	logger := New(os.Stderr, file, opts)
	slog.SetDefault(logger)

	return logger, file.Close
}

// New builds a logger writing to console and, when file is not nil, also to
// file as JSON.
func New(console io.Writer, file io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level), AddSource: opts.AddSource}

	var consoleHandler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		consoleHandler = slog.NewJSONHandler(console, handlerOpts)
	} else {
		consoleHandler = slog.NewTextHandler(console, handlerOpts)
	}

	if file == nil {
		return slog.New(consoleHandler)
	}
	return slog.New(&multi{hs: []slog.Handler{consoleHandler, slog.NewJSONHandler(file, handlerOpts)}})
}

// ParseLevel converts a level name to slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multi fans out log records to several handlers.
type multi struct{ hs []slog.Handler }

func (m *multi) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multi) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multi) WithAttrs(attrs []slog.Attr) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithAttrs(attrs)
	}
	return &multi{hs: res}
}

func (m *multi) WithGroup(name string) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithGroup(name)
	}
	return &multi{hs: res}
}
