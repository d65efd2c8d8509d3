// Package logger builds the application's slog.Logger: a tinted console
// handler, an optional rotated JSON file handler, and redaction of
// credential-looking attributes on both.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options defines parameters for logger creation.
type Options struct {
	Env          string
	ConsoleLevel string // console output level (default info)
	FileLevel    string // file output level (default debug)
	File         string // file path; empty disables the file handler
	App          string
}

// sensitiveKeys are always redacted regardless of value.
var sensitiveKeys = []string{"token", "secret", "api_key", "dsn", "password"}

// New creates a configured slog.Logger and a close function releasing the
// file writer. The close function is non-nil even without a file handler.
func New(o Options) (*slog.Logger, func() error) {
	consoleLvl := levelFromString(o.ConsoleLevel, slog.LevelInfo)
	fileLvl := levelFromString(o.FileLevel, slog.LevelDebug)

	timeFormat := time.RFC3339
	if o.Env == "dev" {
		timeFormat = time.Kitchen
	}
	var handlers []slog.Handler
	handlers = append(handlers, newRedactingHandler(
		tint.NewHandler(os.Stdout, &tint.Options{Level: consoleLvl, TimeFormat: timeFormat}),
		sensitiveKeys))

	closer := func() error { return nil }
	if o.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		closer = fileWriter.Close
		handlers = append(handlers, newRedactingHandler(
			slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: fileLvl}),
			sensitiveKeys))
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = multiHandler{handlers: handlers}
	}

	l := slog.New(h).With(
		slog.String("app", o.App),
		slog.String("env", o.Env),
	)
	return l, closer
}

func levelFromString(s string, def slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

// redactingHandler masks sensitive log attributes.
type redactingHandler struct {
	inner slog.Handler
	keys  map[string]struct{}
}

func newRedactingHandler(inner slog.Handler, sensitive []string) redactingHandler {
	m := make(map[string]struct{}, len(sensitive))
	for _, k := range sensitive {
		m[strings.ToLower(k)] = struct{}{}
	}
	return redactingHandler{inner: inner, keys: m}
}

// Enabled implements slog.Handler.
func (h redactingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

// Handle implements slog.Handler.
func (h redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	var attrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool { attrs = append(attrs, a); return true })
	nr.AddAttrs(h.sanitize(attrs)...)
	return h.inner.Handle(ctx, nr)
}

// WithAttrs implements slog.Handler.
func (h redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return redactingHandler{inner: h.inner.WithAttrs(h.sanitize(attrs)), keys: h.keys}
}

// WithGroup implements slog.Handler.
func (h redactingHandler) WithGroup(name string) slog.Handler {
	return redactingHandler{inner: h.inner.WithGroup(name), keys: h.keys}
}

func (h redactingHandler) sanitize(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if _, ok := h.keys[strings.ToLower(a.Key)]; ok {
			out = append(out, slog.String(a.Key, "[REDACTED]"))
			continue
		}
		out = append(out, a)
	}
	return out
}

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled implements slog.Handler.
func (h multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (h multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return multiHandler{handlers: handlers}
}

// WithGroup implements slog.Handler.
func (h multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return multiHandler{handlers: handlers}
}
