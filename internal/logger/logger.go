// Package logger provides structured logging utilities for the video-dubber application.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Canonical field names.
const (
	FieldJobID     = "job_id"
	FieldChunk     = "chunk"
	FieldStage     = "stage"
	FieldPath      = "path"
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldProvider  = "provider"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"
	Output  io.Writer // defaults to os.Stdout
	Service string
	Pretty  bool // human readable console output
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stdout).With().Timestamp().Str("service", "video-dubber").Logger()
)

// Configure replaces the global logger.
func Configure(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	service := cfg.Service
	if service == "" {
		service = "video-dubber"
	}

	l := zerolog.New(writer).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}

type ctxKey struct{}

// ContextWithJobID stores the job ID in the context.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// JobIDFromContext extracts the job ID from context if present.
func JobIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches the logger with the job ID carried by ctx.
func WithContext(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	if id := JobIDFromContext(ctx); id != "" {
		return l.With().Str(FieldJobID, id).Logger()
	}
	return l
}

// Package-level printf helpers kept for call sites that don't carry a component logger.

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	l := Base()
	l.Debug().Msgf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	l := Base()
	l.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	l := Base()
	l.Warn().Msgf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	l := Base()
	l.Error().Msgf(format, args...)
}
