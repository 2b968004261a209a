package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors that can be used with errors.Is() for error type checking
var (
	// ErrNotGitRepository indicates the watched path is not a git working tree
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrNotWorktreeRoot indicates the watched path is inside a working tree but is not its top level
	ErrNotWorktreeRoot = errors.New("path is not the root of a git working tree")

	// ErrWatchPathMissing indicates the watched path does not exist or is not a directory
	ErrWatchPathMissing = errors.New("watch path does not exist or is not a directory")

	// ErrMissingCredentials indicates the notification token or destination is unset
	ErrMissingCredentials = errors.New("notification credentials are missing")

	// ErrLockAcquisitionFailure indicates a lock file could not be acquired
	ErrLockAcquisitionFailure = errors.New("failed to acquire lock")

	// ErrAlreadyRunning indicates another gitwatcher instance is watching this directory
	ErrAlreadyRunning = errors.New("another gitwatcher instance is already watching this directory")

	// ErrGitOperationFailed indicates a git command returned an error
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrNothingToCommit indicates git reported a clean index when asked to commit
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrInvalidConfiguration indicates an invalid or conflicting user configuration
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidFlag indicates a command-line flag could not be parsed
	ErrInvalidFlag = errors.New("invalid flag")

	// ErrNotificationFailed indicates a chunk could not be delivered
	ErrNotificationFailed = errors.New("notification delivery failed")

	// ErrWatchSourceExhausted indicates the event source died more often than allowed
	ErrWatchSourceExhausted = errors.New("watch source restart limit exceeded")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Errorf creates a new formatted error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, or nil if all are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// GitError represents a failed git invocation.
// Non-zero exits are reported through this type rather than panics so callers
// can inspect the exit code and captured stderr.
type GitError struct {
	Operation string
	Args      []string
	Err       error
	Output    string
	ExitCode  int
}

// Error implements the error interface with a detailed, user-friendly error message.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s (exit %d)", msg, e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError creates a new GitError with the given parameters.
func NewGitError(operation string, args []string, err error, output string) *GitError {
	return &GitError{
		Operation: operation,
		Args:      args,
		Err:       err,
		Output:    output,
	}
}

// LockError represents an error that occurred when interacting with file locks.
type LockError struct {
	LockFile string
	PID      int
	Err      error
}

// Error implements the error interface with details about the lock file and process.
func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("lock error with file %s (PID: %d): %v", e.LockFile, e.PID, e.Err)
	}
	return fmt.Sprintf("lock error with file %s: %v", e.LockFile, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *LockError) Unwrap() error {
	return e.Err
}

// NewLockError creates a new LockError with the given parameters.
func NewLockError(lockFile string, pid int, err error) *LockError {
	return &LockError{
		LockFile: lockFile,
		PID:      pid,
		Err:      err,
	}
}

// ConfigError represents an error in the application configuration.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

// Error implements the error interface with details about the invalid configuration.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("configuration error for %s = %v: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Parameter, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError with the given parameters.
func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Value:     value,
		Err:       err,
	}
}

// NotifyError describes a single chunk that could not be delivered.
// StatusCode is zero when the request never produced a response.
type NotifyError struct {
	Chunk      int
	Total      int
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *NotifyError) Error() string {
	msg := fmt.Sprintf("notification chunk %d/%d failed", e.Chunk, e.Total)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *NotifyError) Unwrap() error {
	return e.Err
}

// NewNotifyError creates a NotifyError that always wraps ErrNotificationFailed.
func NewNotifyError(chunk, total, status int, body string, err error) *NotifyError {
	wrapped := ErrNotificationFailed
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return &NotifyError{
		Chunk:      chunk,
		Total:      total,
		StatusCode: status,
		Body:       body,
		Err:        wrapped,
	}
}
