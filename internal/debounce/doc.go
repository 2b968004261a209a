// Package debounce coalesces bursts of filesystem events into one deferred
// commit attempt.
package debounce
