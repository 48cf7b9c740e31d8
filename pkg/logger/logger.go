package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifiers for color-coded logging
type Component string

const (
	ComponentCLI    Component = "CLI"
	ComponentAPI    Component = "API"
	ComponentCrypto Component = "CRYPTO"
	ComponentJWKS   Component = "JWKS"
	ComponentPolicy Component = "POLICY"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorGreen   = "\033[32m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorOrange  = "\033[38;5;208m"
)

// componentColors maps components to their display colors
var componentColors = map[Component]string{
	ComponentCLI:    colorBlue,
	ComponentAPI:    colorCyan,
	ComponentCrypto: colorMagenta,
	ComponentJWKS:   colorGreen,
	ComponentPolicy: colorOrange,
}

// ColorHandler is a custom slog handler that adds color-coded component output
type ColorHandler struct {
	slog.Handler
	out       io.Writer
	mu        *sync.Mutex
	component Component
	useColors bool
	level     slog.Leveler
	attrs     []slog.Attr
}

// NewColorHandler creates a new color-coded handler
func NewColorHandler(out io.Writer, component Component, useColors bool, level slog.Leveler) *ColorHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return &ColorHandler{
		Handler:   slog.NewTextHandler(out, opts),
		out:       out,
		mu:        &sync.Mutex{},
		component: component,
		useColors: useColors,
		level:     level,
	}
}

// Enabled reports whether records at level are written.
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle processes a log record with color-coded output
func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	color := componentColors[h.component]
	reset := colorReset
	if !h.useColors {
		color = ""
		reset = ""
	}

	// Format: emoji [COMPONENT] message attrs...
	fmt.Fprintf(h.out, "%s%s [%s]%s %s", color, getLevelEmoji(r.Level), h.component, reset, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.out)

	return nil
}

// WithAttrs returns a new handler with the given attributes
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.Handler = h.Handler.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a new handler with the given group
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.Handler = h.Handler.WithGroup(name)
	return &clone
}

func getLevelEmoji(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\U0001F534" // Red circle
	case level >= slog.LevelWarn:
		return "\U0001F7E1" // Yellow circle
	case level >= slog.LevelInfo:
		return "\U0001F535" // Blue circle
	default:
		return "\U0001F7E3" // Purple circle
	}
}

// ParseLevel maps debug, info, warn or error to a slog level. Unknown values
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Logger wraps slog.Logger with component-specific functionality
type Logger struct {
	*slog.Logger
	component Component
}

// New creates a new component-specific logger writing to stderr so command
// output on stdout stays machine readable.
func New(component Component, level string) *Logger {
	useColors := os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
	return NewWithWriter(component, os.Stderr, useColors, level)
}

// NewWithWriter creates a logger with a custom writer
func NewWithWriter(component Component, w io.Writer, useColors bool, level string) *Logger {
	handler := NewColorHandler(w, component, useColors, ParseLevel(level))
	return &Logger{
		Logger:    slog.New(handler),
		component: component,
	}
}

// For returns a logger for another component sharing the same writer
// settings.
func (l *Logger) For(component Component) *Logger {
	h, ok := l.Handler().(*ColorHandler)
	if !ok {
		return &Logger{Logger: l.Logger, component: component}
	}
	clone := *h
	clone.component = component
	return &Logger{Logger: slog.New(&clone), component: component}
}

// Success logs a success message
func (l *Logger) Success(msg string, args ...any) {
	l.Info("✅ "+msg, args...)
}

// Deny logs a denial message
func (l *Logger) Deny(msg string, args ...any) {
	l.Error("❌ "+msg, args...)
}

// Section logs a section header
func (l *Logger) Section(title string) {
	rule := strings.Repeat("═", 50)
	l.Info(rule)
	l.Info(" " + title)
	l.Info(rule)
}

// Key logs key material events
func (l *Logger) Key(kid string, msg string, args ...any) {
	l.Info("\U0001F511 ["+kid+"] "+msg, args...)
}

// Policy logs policy evaluation info
func (l *Logger) Policy(msg string, args ...any) {
	l.Info("\U0001F4CB "+msg, args...)
}
