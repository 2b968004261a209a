// Package main implements gitwatcher, a git auto-commit watcher
//
// gitwatcher watches the top level of a git working tree for files matching a
// set of patterns (by default *.md). Shortly after such a file changes it
// stages just the matching files, commits them with a timestamped message,
// pushes, and sends the diff to a Telegram chat. Everything else in the
// working tree is left alone.
//
// # Basic Usage
//
//	gitwatcher                          # Watch the home directory by polling
//	gitwatcher --dir ~/notes            # Watch another working tree
//	gitwatcher --events                 # Use filesystem events instead of polling
//	gitwatcher --no-notify              # Commit and push without notifications
//	gitwatcher commit                   # Commit pending changes once and exit
//	gitwatcher version                  # Print version information
//
// # Strategies
//
// Polling (the default) checks for relevant changes every --poll-interval.
//
// With --events, filesystem notifications are debounced: a commit is attempted
// once no relevant event has arrived for --quiet-interval. Every
// --health-interval the watcher is checked and restarted if it died (at most
// --max-restarts times in a row, then gitwatcher exits with an error), a
// commit is forced if changes have been pending longer than --stale-after,
// and one backstop attempt is made for anything the watcher missed.
//
// # Configuration
//
// Settings are read from ~/.git_watcher/config.yaml (or config.json, or the
// file given by --config or GIT_WATCHER_CONFIG), then the environment, then
// flags:
//
//	--dir            Working tree to watch (env: GIT_WATCHER_WATCHED_DIR)
//	--pattern        Root-level filename pattern, repeatable (env: GIT_WATCHER_PATTERNS)
//	--bot-token      Telegram bot token (env: GIT_WATCHER_BOT_TOKEN)
//	--chat-id        Telegram chat ID (env: GIT_WATCHER_CHAT_ID)
//	--poll / --events  Choose the strategy (env: USE_POLLING)
//	--quiet          Hide informational messages (env: VERBOSE=false)
//	--log-level      debug, info, warn or error (env: GIT_WATCHER_LOG_LEVEL)
//
// Run gitwatcher --help for the full list.
//
// # Push Failures
//
// If a push fails the local commit is kept and is not pushed again
// automatically; the next commit's push carries it along. Until then the
// branch stays ahead of its upstream.
//
// # Shutdown
//
// On SIGINT, SIGTERM or SIGHUP gitwatcher stops watching, lets a commit in
// progress finish, waits for pending notifications and prints a session
// summary. A second signal exits immediately.
package main
