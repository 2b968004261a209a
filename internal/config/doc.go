// Package config loads gitwatcher settings.
//
// Settings are layered, later sources winning:
//
//  1. built-in defaults (New)
//  2. a YAML or JSON file (~/.git_watcher/config.yaml, config.json, or --config)
//  3. environment variables (GIT_WATCHER_*, USE_POLLING, VERBOSE)
//  4. command-line flags that were explicitly set
//
// Finalize resolves paths and rejects invalid combinations. Every error it
// returns is a *errors.ConfigError matching errors.ErrInvalidConfiguration.
//
// Durations accept Go duration strings ("2s", "1m30s"). Environment variables
// also accept a bare number of seconds.
package config
