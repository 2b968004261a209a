// Package logger provides logging for gitwatcher.
//
// There are two audiences. The structured log file (log/slog text format)
// records everything at or above the configured level and is what an operator
// reads when a service-managed watcher misbehaves. The terminal only receives
// user-facing lines, styled with lipgloss when the output is a terminal.
//
// Errors are always echoed to stderr, regardless of verbosity.
package logger
