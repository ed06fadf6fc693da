// Package logging provides the structured logger shared by the CLI, the HTTP
// server and the artifact stores.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Logger wraps slog.Logger with run-scoped helpers and secret redaction.
type Logger struct {
	*slog.Logger
	sanitizer *Sanitizer
}

// Config configures the logger.
type Config struct {
	Level     string
	Format    string // auto, text, json
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns the default logger configuration. Output is stderr
// so command results on stdout stay machine-readable.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "auto",
		Output: os.Stderr,
	}
}

// New creates a new logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	sanitizer := NewSanitizer()

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(cfg.Output, opts)
	case "text":
		handler = slog.NewTextHandler(cfg.Output, opts)
	default: // auto
		if isTerminal(cfg.Output) {
			handler = NewPrettyHandler(cfg.Output, opts.Level.Level())
		} else {
			handler = slog.NewJSONHandler(cfg.Output, opts)
		}
	}

	return &Logger{
		Logger:    slog.New(NewSanitizingHandler(handler, sanitizer)),
		sanitizer: sanitizer,
	}
}

// NewNop creates a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sanitizer: NewSanitizer(),
	}
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a level ParseLevel understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// WithRun returns a logger tagged with a run id.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With("run_id", runID)
}

// WithMode returns a logger tagged with the time source mode (record or
// replay) driving the current pass.
func (l *Logger) WithMode(mode string) *Logger {
	return l.With("mode", mode)
}

// WithComponent returns a logger tagged with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		sanitizer: l.sanitizer,
	}
}

// Sanitizer returns the sanitizer used by this logger.
func (l *Logger) Sanitizer() *Sanitizer {
	return l.sanitizer
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is
// none. A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return NewNop()
}
