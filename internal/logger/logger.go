// Package logger provides the levelled console logger shared by every stylebuild component.
//
// Every line is prefixed with an [HH:MM:SS] timestamp and the level name. Output is
// goroutine-safe so concurrent watch sessions can share one logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Level is a log severity.
type Level int

// Log levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level name used in log lines.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
// Empty or unknown names default to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Terminal styles for level names. Lipgloss degrades colors based on terminal capabilities.
var (
	StyleCyan   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	StyleRed    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	StyleYellow = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	StyleGreen  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	StyleGray   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderStyle applies a lipgloss style to text when colors are enabled.
func RenderStyle(style lipgloss.Style, text string, useColors bool) string {
	if !useColors {
		return text
	}
	return style.Render(text)
}

// Logger writes levelled, timestamped lines to a writer.
type Logger struct {
	mu        sync.Mutex
	w         io.Writer
	level     Level
	useColors bool
	now       func() time.Time
}

// New creates a Logger writing to w. A nil writer discards all output.
func New(w io.Writer, level Level, useColors bool) *Logger {
	return &Logger{
		w:         w,
		level:     level,
		useColors: useColors,
		now:       time.Now,
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return New(nil, LevelError, false)
}

// ShouldUseColors determines if colors should be enabled for w.
func ShouldUseColors(w io.Writer, force bool) bool {
	if force {
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && l.w != nil && level >= l.level
}

// UseColors reports whether colored output is enabled.
func (l *Logger) UseColors() bool {
	return l.useColors
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(LevelDebug, format, args...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	message := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().Format("15:04:05")
	fmt.Fprintf(l.w, "[%s] [%s] %s\n", ts, l.styleLevel(level), message)
}

func (l *Logger) styleLevel(level Level) string {
	name := level.String()
	switch level {
	case LevelDebug:
		return RenderStyle(StyleGray, name, l.useColors)
	case LevelInfo:
		return RenderStyle(StyleCyan, name, l.useColors)
	case LevelWarn:
		return RenderStyle(StyleYellow, name, l.useColors)
	case LevelError:
		return RenderStyle(StyleRed, name, l.useColors)
	}
	return name
}
