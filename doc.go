// Package gitwatcher commits and pushes changes to a git working tree as they
// happen
//
// gitwatcher is meant for a directory of notes or documents kept in git. It
// watches the top level of the working tree for files matching a pattern
// (by default *.md), stages only those files, commits them with a timestamped
// message, pushes to the upstream and sends the diff to a Telegram chat.
//
// # Quick Start
//
//	# Watch a notes repository, committing a couple of seconds after edits
//	gitwatcher --dir ~/notes --events --bot-token $TOKEN --chat-id $CHAT
//
//	# Or poll every 10 seconds without notifications
//	gitwatcher --dir ~/notes --no-notify
//
//	# Press Ctrl+C to stop when finished
//
// # Key Features
//
//   - Scoped Commits: only root-level files matching the patterns are staged
//   - Debounced Events: bursts of writes become one commit
//   - Self-Healing Watcher: dead watchers are restarted, stale changes forced
//   - Diff Notifications: diffs are sent to Telegram in numbered chunks
//
// # Packages
//
// The command lives in cmd/gitwatcher. The internal packages are:
//
//   - internal/git: bounded-timeout git commands and repository validation
//   - internal/filter: which paths are relevant
//   - internal/debounce: quiet-interval coalescing of events
//   - internal/commit: the serialized stage, commit and push sequence
//   - internal/notify: chunked Telegram delivery
//   - internal/watch: polling and supervised fsnotify strategies
//   - internal/config, internal/logger, internal/lock, internal/errors
package gitwatcher
