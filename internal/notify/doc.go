// Package notify reports committed diffs to a Telegram chat.
//
// A diff is split into chunks of at most ChunkSize characters, each sent as
// its own sendMessage request prefixed "Diff chunk i/N". Chunks are sent in
// order; a failed chunk is logged and the rest are still attempted. Nothing
// is retried.
//
// Dispatch runs a send in the background so the commit path never waits on
// the network. Close waits for those sends during shutdown.
//
// The bot token is part of the request URL and is kept out of every log line
// and error message.
package notify
