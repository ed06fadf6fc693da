package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// SanitizingHandler wraps another handler and redacts secrets from the
// message and from string or error attributes.
type SanitizingHandler struct {
	handler   slog.Handler
	sanitizer *Sanitizer
}

// NewSanitizingHandler creates a new sanitizing handler.
func NewSanitizingHandler(handler slog.Handler, sanitizer *Sanitizer) *SanitizingHandler {
	return &SanitizingHandler{
		handler:   handler,
		sanitizer: sanitizer,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record and passes it to the underlying handler.
func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.sanitizer.Sanitize(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a new handler with sanitized attrs.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		sanitized[i] = h.sanitizeAttr(attr)
	}
	return &SanitizingHandler{
		handler:   h.handler.WithAttrs(sanitized),
		sanitizer: h.sanitizer,
	}
}

// WithGroup returns a new handler with a group.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{
		handler:   h.handler.WithGroup(name),
		sanitizer: h.sanitizer,
	}
}

func (h *SanitizingHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.sanitizer.Sanitize(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			sanitized[i] = h.sanitizeAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			return slog.String(a.Key, h.sanitizer.Sanitize(err.Error()))
		}
		return a
	default:
		return a
	}
}

// prefixKeys are rendered as a bracketed prefix by PrettyHandler instead of
// trailing key=value pairs.
var prefixKeys = map[string]bool{"run_id": true, "mode": true}

// PrettyHandler provides colorized console output for TTY.
type PrettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewPrettyHandler creates a new pretty handler.
func NewPrettyHandler(w io.Writer, level slog.Level) *PrettyHandler {
	return &PrettyHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes the log record.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var prefix, rest strings.Builder

	collect := func(a slog.Attr) {
		if len(h.groups) == 0 && prefixKeys[a.Key] {
			fmt.Fprintf(&prefix, "[%v]", a.Value.Any())
			return
		}
		rest.WriteString(h.formatAttr(a))
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	line := r.Time.Format("15:04:05") + " " + formatLevel(r.Level)
	if prefix.Len() > 0 {
		line += " " + colorGray + prefix.String() + colorReset
	}
	line += " " + r.Message + rest.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, line)
	return err
}

// WithAttrs returns a new handler with attrs.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup returns a new handler with a group.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func formatLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed + "ERR" + colorReset
	case level >= slog.LevelWarn:
		return colorYellow + "WRN" + colorReset
	case level >= slog.LevelInfo:
		return colorBlue + "INF" + colorReset
	default:
		return colorGray + "DBG" + colorReset
	}
}

func (h *PrettyHandler) formatAttr(a slog.Attr) string {
	if a.Value.Kind() == slog.KindGroup {
		var result string
		for _, attr := range a.Value.Group() {
			result += h.formatAttr(attr)
		}
		return result
	}

	key := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return fmt.Sprintf(" %s%s%s=%v", colorCyan, key, colorReset, a.Value.Any())
}
