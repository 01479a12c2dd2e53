// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerKey struct{}

var globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config controls process-wide logger initialization.
type Config struct {
	// Level is a zerolog level name. Empty or invalid values fall back to info.
	Level string

	// Console switches to the human-readable console writer.
	Console bool

	// Output defaults to stderr.
	Output io.Writer
}

// Init builds the process logger. It is called once from the command layer
// before any handler runs; packages only ever read the result.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if hostname, err := os.Hostname(); err == nil {
		ctx = ctx.Str("hostname", hostname)
	}
	if pname, err := os.Executable(); err == nil {
		ctx = ctx.Str("executable", filepath.Base(pname))
	}

	globalLogger = ctx.Caller().Logger().Level(level)
	log.Logger = globalLogger

	if err != nil && cfg.Level != "" {
		globalLogger.Warn().Str("level", cfg.Level).Msg("invalid log level, defaulting to INFO")
	}
}

// Ctx returns the logger stored in ctx, or the process logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return &globalLogger
}

func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With returns a child of the process logger carrying a single string field,
// stored in ctx.
func With(ctx context.Context, key, value string) context.Context {
	l := Ctx(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &l)
}

// SetLevel updates the global log level
func SetLevel(level zerolog.Level) {
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return globalLogger.Fatal()
}

// Error logs an error message
func Error() *zerolog.Event {
	return globalLogger.Error()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return globalLogger.Warn()
}

// Info logs an info message
func Info() *zerolog.Event {
	return globalLogger.Info()
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return globalLogger.Debug()
}
