// Package commit turns pending changes into a pushed commit.
//
// An Orchestrator runs one attempt at a time: it asks the filter for relevant
// changed paths, makes sure a committer identity exists, stages each path on
// its own, commits those paths with a timestamped message and pushes. When
// the push succeeds the diff is handed to a Dispatcher.
//
// Triggers that arrive while an attempt is running are dropped. The next
// poll, debounce or health check sees the same pending changes and tries
// again.
package commit
