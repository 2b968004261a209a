// Package watch runs the loops that decide when to attempt a commit.
//
// Two strategies exist and exactly one runs per process:
//
//   - Poller attempts a commit every poll interval.
//   - Supervisor runs an fsnotify Source that feeds relevant events into a
//     debounce coalescer. On every health-check interval it restarts a dead
//     source, forces a commit when changes have been pending longer than the
//     staleness threshold and makes one backstop attempt.
//
// The supervisor gives up with errors.ErrWatchSourceExhausted after
// MaxRestarts consecutive restarts. A restarted source that stays alive for a
// full interval resets the count.
package watch
