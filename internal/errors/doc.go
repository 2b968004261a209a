// Package errors provides the error values shared across gitwatcher.
//
// Sentinels are matched with Is. Typed errors (GitError, ConfigError,
// LockError, NotifyError) carry the detail needed for log lines and wrap a
// sentinel so callers can branch on the category without string matching.
package errors
