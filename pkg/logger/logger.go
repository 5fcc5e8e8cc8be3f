package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = newLogger(os.Stderr, true)
)

func newLogger(w *os.File, console bool) zerolog.Logger {
	if console {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the global log level: debug, info, warn, error.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// SetJSON switches between console and JSON output.
func SetJSON(json bool) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(os.Stderr, !json)
}

func emit(ev *zerolog.Event, component, msg string, fields map[string]any) {
	ev = ev.Str("component", component)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// DebugCF logs a debug message for a component with fields.
func DebugCF(component, msg string, fields map[string]any) {
	l := logger()
	emit(l.Debug(), component, msg, fields)
}

// InfoCF logs an info message for a component with fields.
func InfoCF(component, msg string, fields map[string]any) {
	l := logger()
	emit(l.Info(), component, msg, fields)
}

// WarnCF logs a warning for a component with fields.
func WarnCF(component, msg string, fields map[string]any) {
	l := logger()
	emit(l.Warn(), component, msg, fields)
}

// ErrorCF logs an error for a component with fields.
func ErrorCF(component, msg string, fields map[string]any) {
	l := logger()
	emit(l.Error(), component, msg, fields)
}

// InfoC logs an info message for a component without fields.
func InfoC(component, msg string) {
	InfoCF(component, msg, nil)
}

// WarnC logs a warning for a component without fields.
func WarnC(component, msg string) {
	WarnCF(component, msg, nil)
}

// ErrorC logs an error for a component without fields.
func ErrorC(component, msg string) {
	ErrorCF(component, msg, nil)
}
