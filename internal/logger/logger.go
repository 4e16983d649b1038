// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// # Quick Start
//
//	cfg := &logger.LoggingConfig{
//	    DefaultLevel: "info",
//	    Console:      &logger.ConsoleOutput{Enabled: true, Level: "info"},
//	}
//
//	centralLogger, err := logger.NewCentralLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer centralLogger.Close()
//
//	log := centralLogger.Module("converter")
//	log.Info("conversion finished",
//	    logger.Int("images", 120),
//	    logger.Duration("elapsed", time.Since(start)))
//
// # Module Scoping
//
// Module loggers nest with a dot separator:
//
//	writerLog := centralLogger.Module("converter").Module("writer")
//	writerLog.Debug("label file written") // module="converter.writer"
//
// # Context-Aware Logging
//
// Trace IDs stored with WithTraceID are attached by WithContext:
//
//	ctx = logger.WithTraceID(ctx, runID)
//	log.WithContext(ctx).Info("starting run") // includes trace_id
//
// # Testing
//
// Use a buffer or discard logger for tests:
//
//	buf := &bytes.Buffer{}
//	testLogger := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)
//
//	silent := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
//
// # Output Format
//
// Console output is human-readable text without timestamps. File output is
// JSON with RFC3339 timestamps:
//
//	{"time":"2026-01-12T10:30:00Z","level":"INFO","msg":"label files written","module":"converter","files":42}
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned using unique.Make() so repeated keys share one allocation.
type Field struct {
	Key   string
	Value any
}

func internKey(key string) string {
	return unique.Make(key).Value()
}

// Pre-interned common keys
var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field for structured logging.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for structured logging.
//
// Use this for counts, sizes, indices, etc.
//
//	log.Info("Processing batch",
//	    logger.Int("annotations", 100),
//	    logger.Int("skipped", 5))
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field for structured logging.
//
// COCO identifiers are logged with this constructor.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field for structured logging.
//
// The field key is always "error". If err is nil, the value will be nil.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field for structured logging.
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any value for structured logging.
//
// Prefer the type-specific constructors for simple types.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
