// Package logging provides file-based logging for tfs-checkout.
// It outputs logs to a checkout log file (<state>/logs/checkout.log),
// to the log file of the current build (<state>/logs/build-N.log) and,
// optionally, to the build console.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Logger implements domain.Reporter interface.
var _ domain.Reporter = (*Logger)(nil)

// Logger wraps slog levels with file-based output support.
// Fields are ordered to minimize memory padding.
type Logger struct {
	console    io.Writer
	globalFile *os.File
	buildFile  *os.File
	now        func() time.Time
	stateDir   string
	build      int
	mu         sync.Mutex
	level      slog.Level
}

// New creates a new Logger that writes to the state log directory.
// If stateDir is empty, file logging is disabled. build is the build
// number; 0 logs to the checkout log only.
func New(stateDir string, build int, level slog.Level) *Logger {
	return &Logger{
		stateDir: stateDir,
		build:    build,
		level:    level,
		now:      time.Now,
	}
}

// WithConsole mirrors every entry at or above the level to w.
func (l *Logger) WithConsole(w io.Writer) *Logger {
	l.console = w
	return l
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	//nolint:gosec // Log file readable by owner and group
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
}

// files opens the log files on first use. Caller holds l.mu.
func (l *Logger) files() []io.Writer {
	out := make([]io.Writer, 0, 3)
	if l.stateDir != "" {
		if l.globalFile == nil {
			if f, err := openAppend(domain.GlobalLogPath(l.stateDir)); err == nil {
				l.globalFile = f
			}
		}
		if l.globalFile != nil {
			out = append(out, l.globalFile)
		}
		if l.build > 0 {
			if l.buildFile == nil {
				if f, err := openAppend(domain.BuildLogPath(l.stateDir, l.build)); err == nil {
					l.buildFile = f
				}
			}
			if l.buildFile != nil {
				out = append(out, l.buildFile)
			}
		}
	}
	if l.console != nil {
		out = append(out, l.console)
	}
	return out
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	for _, f := range []*os.File{l.globalFile, l.buildFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	l.globalFile, l.buildFile = nil, nil
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [build-12] [category] message
func formatLog(t time.Time, level slog.Level, build int, category, msg string) string {
	scope := "global"
	if build > 0 {
		scope = fmt.Sprintf("build-%d", build)
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		scope,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l *Logger) log(level slog.Level, category, msg string) {
	if level < l.level {
		return
	}
	entry := formatLog(l.now(), level, l.build, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.files() {
		_, _ = io.WriteString(w, entry)
	}
}

// Info logs an info message.
func (l *Logger) Info(category, msg string) {
	l.log(slog.LevelInfo, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(category, msg string) {
	l.log(slog.LevelDebug, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(category, msg string) {
	l.log(slog.LevelWarn, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(category, msg string) {
	l.log(slog.LevelError, category, msg)
}
