package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger writes one JSON object per line with the service, the action and
// any extra fields. Field maps are flattened into top-level attributes.
type Logger struct {
	service string
	h       *slog.Logger
}

func New(service string) *Logger { return NewWithWriter(service, os.Stdout) }

func NewWithWriter(service string, w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	h := slog.New(handler).With(
		slog.String("service", service),
		slog.String("hostname", hostname()),
	)
	return &Logger{service: service, h: h}
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *Logger { return NewWithWriter("discard", io.Discard) }

// With returns a child logger that always carries the given fields,
// e.g. request_id or order_id.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{service: l.service, h: l.h.With(attrs(fields)...)}
}

func (l *Logger) log(level slog.Level, action string, fields map[string]any, err error) {
	args := append([]any{slog.String("action", action)}, attrs(fields)...)
	if err != nil {
		args = append(args, slog.Group("error", slog.String("msg", err.Error()), slog.String("type", typeName(err))))
	}
	l.h.Log(context.Background(), level, action, args...)
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.log(slog.LevelInfo, action, fields, nil)
}
func (l *Logger) Debug(action string, fields map[string]any) {
	l.log(slog.LevelDebug, action, fields, nil)
}
func (l *Logger) Warn(action string, fields map[string]any) {
	l.log(slog.LevelWarn, action, fields, nil)
}
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, fields, err)
}

func attrs(fields map[string]any) []any {
	out := make([]any, 0, len(fields))
	for k, v := range fields {
		out = append(out, slog.Any(k, v))
	}
	return out
}

func typeName(err error) string { return fmt.Sprintf("%T", err) }

func hostname() string { h, _ := os.Hostname(); return h }
