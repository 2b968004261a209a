package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Logger is the logging interface used throughout gitwatcher.
//
// Debug, Info, Warning and Error write to the structured log file. The *ToUser
// methods, Success and StatusMessage also print to the terminal.
type Logger interface {
	// Debug logs detail that is only useful when diagnosing a problem.
	Debug(format string, args ...interface{})

	// Info logs an informational message to the log file.
	Info(format string, args ...interface{})

	// Warning logs a non-fatal problem. It is echoed to stdout in verbose mode.
	Warning(format string, args ...interface{})

	// Error logs a failure. Errors are always echoed to stderr.
	Error(format string, args ...interface{})

	// InfoToUser logs an informational message and prints it to stdout.
	InfoToUser(format string, args ...interface{})

	// WarningToUser logs a warning and prints it to stdout.
	WarningToUser(format string, args ...interface{})

	// Success logs a success message and prints it to stdout.
	Success(format string, args ...interface{})

	// StatusMessage prints a line to stdout without logging it.
	StatusMessage(format string, args ...interface{})

	// Close flushes and closes the log file.
	Close() error
}

// Options configures a DefaultLogger.
type Options struct {
	// LogFile is where structured logs are appended. Empty disables file logging.
	LogFile string

	// Level is the minimum level written to the log file.
	Level slog.Level

	// Verbose echoes warnings to stdout.
	Verbose bool

	Stdout io.Writer
	Stderr io.Writer
}

type styles struct {
	info    lipgloss.Style
	warning lipgloss.Style
	success lipgloss.Style
	err     lipgloss.Style
}

func newStyles(stdout, stderr io.Writer) styles {
	out := lipgloss.NewRenderer(stdout)
	errOut := lipgloss.NewRenderer(stderr)
	return styles{
		info:    out.NewStyle().Foreground(lipgloss.Color("39")),
		warning: out.NewStyle().Foreground(lipgloss.Color("214")),
		success: out.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		err:     errOut.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// DefaultLogger implements Logger with log/slog for the file log and lipgloss
// for terminal output.
type DefaultLogger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	enabled bool
	logFile string
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
	file    *os.File
	styles  styles
}

// New creates a Logger writing to the process's stdout and stderr.
func New(logFile string, level slog.Level, verbose bool) Logger {
	return NewWithOptions(Options{
		LogFile: logFile,
		Level:   level,
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
}

// NewWithOptions creates a DefaultLogger. If the log file cannot be opened the
// structured log falls back to stderr.
func NewWithOptions(opts Options) *DefaultLogger {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var (
		logger *slog.Logger
		file   *os.File
	)

	enabled := opts.LogFile != ""
	if enabled {
		if dir := filepath.Dir(opts.LogFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "⚠️ Failed to create log directory: %v\n", err)
			}
		}

		f, err := os.OpenFile(opts.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			file = f
			logger = slog.New(slog.NewTextHandler(f, handlerOpts))
			logger.Info("gitwatcher logging started", "level", opts.Level.String())
		} else {
			logger = slog.New(slog.NewTextHandler(opts.Stderr, handlerOpts))
			_, _ = fmt.Fprintf(opts.Stderr, "⚠️ Failed to open log file: %v, using stderr instead\n", err)
		}
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, handlerOpts))
	}

	return &DefaultLogger{
		logger:  logger,
		enabled: enabled,
		logFile: opts.LogFile,
		verbose: opts.Verbose,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		file:    file,
		styles:  newStyles(opts.Stdout, opts.Stderr),
	}
}

// ParseLevel maps a level name to a slog.Level. The empty string means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Debug logs a debug message (file only)
func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Info logs an informational message (file only)
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}
	l.logger.Info(fmt.Sprintf(format, args...))
}

// InfoToUser logs an informational message to both file and stdout
func (l *DefaultLogger) InfoToUser(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.enabled {
		l.logger.Info(msg)
	}
	_, _ = fmt.Fprintln(l.stdout, l.styles.info.Render("ℹ️  "+msg))
}

// Success logs a success message to both file and stdout
func (l *DefaultLogger) Success(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.enabled {
		l.logger.Info(msg)
	}
	_, _ = fmt.Fprintln(l.stdout, l.styles.success.Render("✅ "+msg))
}

// Warning logs a warning message
func (l *DefaultLogger) Warning(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.enabled {
		l.logger.Warn(msg)
	}
	if l.verbose {
		_, _ = fmt.Fprintln(l.stdout, l.styles.warning.Render("⚠️  "+msg))
	}
}

// WarningToUser logs a warning message to both file and stdout
func (l *DefaultLogger) WarningToUser(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.enabled {
		l.logger.Warn(msg)
	}
	_, _ = fmt.Fprintln(l.stdout, l.styles.warning.Render("⚠️  "+msg))
}

// Error logs an error message
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.enabled {
		l.logger.Error(msg)
	}
	_, _ = fmt.Fprintln(l.stderr, l.styles.err.Render("❌ "+msg))
}

// StatusMessage prints a status message to stdout only (no logging)
func (l *DefaultLogger) StatusMessage(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = fmt.Fprintln(l.stdout, fmt.Sprintf(format, args...))
}

// Close ensures any buffered data is written and closes open log file handles
func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// LogFile returns the path of the structured log, or "" when disabled.
func (l *DefaultLogger) LogFile() string {
	return l.logFile
}

// Nop returns a Logger that discards everything. Useful in tests.
func Nop() Logger {
	return NewWithOptions(Options{Stdout: io.Discard, Stderr: io.Discard})
}
