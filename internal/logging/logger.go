// Package logging is a thin leveled wrapper over log/slog that carries a
// component name and takes the triggering error as its own argument.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is the minimum severity a logger emits.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var slogLevels = [...]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// anything past LevelError silences the logger entirely
func (l LogLevel) slogLevel() slog.Level {
	switch {
	case l < LevelDebug:
		return slog.LevelDebug
	case int(l) >= len(slogLevels):
		return slog.LevelError + 4
	}
	return slogLevels[l]
}

// ParseLevel converts a configuration string into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the structured logger threaded through the builder, watcher
// and server. Fields are alternating key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json", anything else is text
	Output    io.Writer
	Component string
}

// SlogLogger implements Logger.
type SlogLogger struct {
	base      *slog.Logger
	component string
}

// NewLogger builds a logger writing to config.Output, or stderr when unset.
func NewLogger(config *LoggerConfig) *SlogLogger {
	if config == nil {
		config = &LoggerConfig{Level: LevelInfo}
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}
	var h slog.Handler
	if config.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return &SlogLogger{base: slog.New(h), component: config.Component}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *SlogLogger {
	return NewLogger(&LoggerConfig{Level: LevelError + 1, Output: io.Discard})
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields)
}

func (l *SlogLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelWarn, err, msg, fields)
}

func (l *SlogLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelError, err, msg, fields)
}

// With returns a child logger that attaches fields to every record.
func (l *SlogLogger) With(fields ...any) Logger {
	return &SlogLogger{base: l.base.With(fields...), component: l.component}
}

// WithComponent returns a child logger tagged with component, replacing
// any component set on l.
func (l *SlogLogger) WithComponent(component string) Logger {
	return &SlogLogger{base: l.base, component: component}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields []any) {
	if !l.base.Enabled(ctx, level) {
		return
	}
	args := make([]any, 0, len(fields)+4)
	if l.component != "" {
		args = append(args, "component", l.component)
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.base.Log(ctx, level, msg, append(args, fields...)...)
}

// PerfLogger logs the duration of one operation when it ends.
type PerfLogger struct {
	Logger
	start time.Time
}

func StartOperation(logger Logger, operation string) *PerfLogger {
	return &PerfLogger{Logger: logger.With("operation", operation), start: time.Now()}
}

func (p *PerfLogger) End(ctx context.Context, fields ...any) {
	p.Info(ctx, "Operation completed", append(fields, p.timing()...)...)
}

func (p *PerfLogger) EndWithError(ctx context.Context, err error) {
	p.Error(ctx, err, "Operation failed", p.timing()...)
}

func (p *PerfLogger) timing() []any {
	d := time.Since(p.start)
	return []any{"duration_ms", d.Milliseconds(), "duration", d.String()}
}
