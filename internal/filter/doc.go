// Package filter decides which filesystem changes gitwatcher commits.
//
// Only names directly under the watch root are considered, matched against
// gobwas/glob patterns (default "*.md"). Anything under .git is ignored.
package filter
