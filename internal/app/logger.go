package app

import (
	"context"
	"io"
	"log/slog"
)

// newLogger creates the App's slog.Logger. It does not touch the global
// default, so instances stay isolated.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	return slog.New(newHandler(levelStr, formatStr, outW))
}

func newHandler(levelStr, formatStr string, outW io.Writer) slog.Handler {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.NewJSONHandler(outW, opts)
	}
	return slog.NewTextHandler(outW, opts)
}

// teeHandler fans records out to the console handler and, once a run has
// started, the debug-level log file in the output directory.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: out}
}

// withFileLogger returns a logger that also writes everything at debug
// level to the given writer, regardless of the console level.
func (a *App) withFileLogger(file io.Writer) *slog.Logger {
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	console := newHandler(a.cfg.LogLevel, a.cfg.LogFormat, a.errW)
	return slog.New(&teeHandler{handlers: []slog.Handler{console, fileHandler}})
}
