package logger

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// Attribute keys whose string values are always masked with Redact
var secretKeys = map[string]struct{}{
	"access":        {},
	"refresh":       {},
	"token":         {},
	"code":          {},
	"client_secret": {},
	"secret_key":    {},
}

// slogLogger writes records straight to slog handler so source points to the caller of Logger methods
type slogLogger struct {
	handler slog.Handler
}

func newSlogLogger(handler slog.Handler) *slogLogger {
	return &slogLogger{handler: handler}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *slogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *slogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

// With returns a logger that adds args to every record
func (l *slogLogger) With(args ...any) Logger {
	if len(args) == 0 {
		return l
	}
	return newSlogLogger(l.handler.WithAttrs(toAttrs(args)))
}

func (l *slogLogger) log(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}

	// skip runtime.Callers, log and the level method
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = l.handler.Handle(ctx, record)
}

// toAttrs converts loosely typed key-value args the same way slog.Logger does
func toAttrs(args []any) []slog.Attr {
	record := slog.NewRecord(time.Time{}, slog.LevelInfo, "", 0)
	record.Add(args...)

	attrs := make([]slog.Attr, 0, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

// replaceAttr trims source to the file name and masks secrets
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case a.Key == slog.SourceKey:
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	case a.Value.Kind() == slog.KindString:
		if _, secret := secretKeys[a.Key]; secret {
			return slog.String(a.Key, Redact(a.Value.String()))
		}
	}
	return a
}
