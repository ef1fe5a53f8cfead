// Package logger provides structured, leveled logging for magictunnel.
//
// It wraps log/slog behind a package-level singleton so every subsystem
// logs through the same sink without threading a logger through every
// constructor. Output is either human-readable (default, for a TTY-attached
// stdio transport) or JSON, selected by MAGICTUNNEL_UNSTRUCTURED_LOGS.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

var singleton atomic.Value // *slog.Logger

// EnvReader abstracts environment lookups so tests can stub them.
type EnvReader interface {
	Getenv(key string) string
}

type osEnvReader struct{}

func (osEnvReader) Getenv(key string) string { return os.Getenv(key) }

func init() {
	singleton.Store(newDefault())
}

func newDefault() *slog.Logger {
	return build(osEnvReader{})
}

func build(env EnvReader) *slog.Logger {
	level := slog.LevelInfo
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if unstructuredLogsWithEnv(env) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// unstructuredLogsWithEnv reports whether human-readable (text) logging
// should be used. Unset or unparsable values default to true.
func unstructuredLogsWithEnv(env EnvReader) bool {
	v := env.Getenv("MAGICTUNNEL_UNSTRUCTURED_LOGS")
	if v == "" {
		return true
	}
	switch v {
	case "false", "0":
		return false
	case "true", "1":
		return true
	default:
		return true
	}
}

// Initialize rebuilds the singleton logger from the current environment.
// Call once at process startup, after flags/env are parsed.
func Initialize() {
	singleton.Store(newDefault())
}

// SetLevel adjusts the minimum level of the singleton logger.
func SetLevel(level slog.Level) {
	l := current()
	handler := l.Handler()
	// slog has no mutable level on a built handler; rebuild with the new
	// level applied through a LevelVar so SetLevel can be called repeatedly.
	lv := new(slog.LevelVar)
	lv.Set(level)
	var h slog.Handler
	if _, ok := handler.(*slog.TextHandler); ok {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	} else {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	}
	singleton.Store(slog.New(h))
}

func current() *slog.Logger {
	l, _ := singleton.Load().(*slog.Logger)
	if l == nil {
		l = newDefault()
	}
	return l
}

// Debug logs at debug level.
func Debug(msg string) { current().Debug(msg) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { current().Debug(fmt.Sprintf(format, args...)) }

// Debugw logs a message with structured key/value pairs at debug level.
func Debugw(msg string, kv ...any) { current().Debug(msg, kv...) }

// Info logs at info level.
func Info(msg string) { current().Info(msg) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { current().Info(fmt.Sprintf(format, args...)) }

// Infow logs a message with structured key/value pairs at info level.
func Infow(msg string, kv ...any) { current().Info(msg, kv...) }

// Warn logs at warn level.
func Warn(msg string) { current().Warn(msg) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { current().Warn(fmt.Sprintf(format, args...)) }

// Warnw logs a message with structured key/value pairs at warn level.
func Warnw(msg string, kv ...any) { current().Warn(msg, kv...) }

// Error logs at error level.
func Error(msg string) { current().Error(msg) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { current().Error(fmt.Sprintf(format, args...)) }

// Errorw logs a message with structured key/value pairs at error level.
func Errorw(msg string, kv ...any) { current().Error(msg, kv...) }

// WithContext returns a logger enriched with any slog attributes stashed in ctx.
// Currently a passthrough hook point for request-scoped fields (e.g. request id).
func WithContext(ctx context.Context) *slog.Logger {
	_ = ctx
	return current()
}
