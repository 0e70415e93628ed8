package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Color codes
const (
	reset      = "\033[0m"
	dim        = "\033[2m"
	green      = "\033[32m"
	yellow     = "\033[33m"
	blue       = "\033[34m"
	magenta    = "\033[35m"
	cyan       = "\033[36m"
	white      = "\033[37m"
	boldRed    = "\033[1;31m"
	boldGreen  = "\033[1;32m"
	boldYellow = "\033[1;33m"
	boldBlue   = "\033[1;34m"
)

// Emojis for different log types
const (
	infoEmoji    = "ℹ️ "
	successEmoji = "✅ "
	errorEmoji   = "❌ "
	warnEmoji    = "⚠️ "
	stepEmoji    = "👉 "
	debugEmoji   = "🔍 "
	prEmoji      = "🔄 "
	commitEmoji  = "📦 "
	branchEmoji  = "🌿 "
	compareEmoji = "📝 "
	authEmoji    = "🔑 "
	hookEmoji    = "🪝 "
)

const wrapWidth = 80

// Logger writes colored, emoji-prefixed lines. Safe for concurrent use.
type Logger struct {
	debug bool
	color bool
	out   io.Writer
	mu    sync.Mutex
}

// New creates a logger writing to stdout
func New(debug bool) *Logger {
	return NewWithWriter(os.Stdout, debug)
}

// NewWithWriter creates a logger writing to w. Colors are only emitted for stdout.
func NewWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{
		debug: debug,
		color: w == os.Stdout,
		out:   w,
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, false)
}

// wrap pads long lines to the terminal width
func wrap(msg string) string {
	lines := strings.Split(msg, "\n")
	var formatted []string

	for _, line := range lines {
		if len(line) <= wrapWidth {
			formatted = append(formatted, line)
			continue
		}

		current := ""
		for _, word := range strings.Fields(line) {
			switch {
			case current == "":
				current = word
			case len(current)+len(word)+1 > wrapWidth:
				formatted = append(formatted, current)
				current = word
			default:
				current += " " + word
			}
		}
		if current != "" {
			formatted = append(formatted, current)
		}
	}

	return strings.Join(formatted, "\n")
}

func (l *Logger) print(color, emoji, format string, args ...interface{}) {
	msg := wrap(fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		fmt.Fprintf(l.out, "%s%s%s%s\n", color, emoji, msg, reset)
		return
	}
	fmt.Fprintf(l.out, "%s%s\n", emoji, msg)
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.print(blue, infoEmoji, format, args...)
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	l.print(boldGreen, successEmoji, format, args...)
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.print(boldRed, errorEmoji, format, args...)
}

// Warning prints a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.print(boldYellow, warnEmoji, format, args...)
}

// Step prints a step message
func (l *Logger) Step(format string, args ...interface{}) {
	l.print(cyan, stepEmoji, format, args...)
}

// Debug prints a debug message if debug is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.print(dim, debugEmoji, format, args...)
}

// PR prints a PR-related message
func (l *Logger) PR(format string, args ...interface{}) {
	l.print(magenta, prEmoji, format, args...)
}

// Commit prints a commit-related message
func (l *Logger) Commit(format string, args ...interface{}) {
	l.print(white, commitEmoji, format, args...)
}

// Branch prints a branch-related message
func (l *Logger) Branch(format string, args ...interface{}) {
	l.print(green, branchEmoji, format, args...)
}

// Compare prints a comparison-related message
func (l *Logger) Compare(format string, args ...interface{}) {
	l.print(yellow, compareEmoji, format, args...)
}

// Auth prints a login/session message
func (l *Logger) Auth(format string, args ...interface{}) {
	l.print(boldBlue, authEmoji, format, args...)
}

// Hook prints a webhook message
func (l *Logger) Hook(format string, args ...interface{}) {
	l.print(magenta, hookEmoji, format, args...)
}

// IsDebug returns whether debug logging is enabled
func (l *Logger) IsDebug() bool {
	return l.debug
}
