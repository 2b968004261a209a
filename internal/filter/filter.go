package filter

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/git"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// metadataDir is never relevant, whatever the patterns say.
const metadataDir = ".git"

// StatusSource lists working tree changes. *git.Gateway satisfies it.
type StatusSource interface {
	Status(ctx context.Context) ([]git.StatusEntry, error)
}

// Filter decides which paths gitwatcher cares about: root-level names
// matching one of the configured patterns, outside the .git directory.
type Filter struct {
	root     string
	patterns []glob.Glob
	logger   logger.Logger
}

// New compiles patterns for the working tree at root.
func New(root string, patterns []string, log logger.Logger) (*Filter, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, watchErrors.NewConfigError("patterns", p, err)
		}
		compiled = append(compiled, g)
	}
	return &Filter{root: filepath.Clean(root), patterns: compiled, logger: log}, nil
}

// IsRelevant reports whether a filesystem event path, absolute or relative
// to the root, names a watched file.
func (f *Filter) IsRelevant(eventPath string) bool {
	rel := eventPath
	if filepath.IsAbs(eventPath) {
		r, err := filepath.Rel(f.root, filepath.Clean(eventPath))
		if err != nil {
			return false
		}
		rel = r
	}
	return f.MatchName(filepath.ToSlash(rel))
}

// MatchName reports whether a slash-separated path relative to the root is
// a root-level, pattern-matching file.
func (f *Filter) MatchName(rel string) bool {
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return false
	}
	if strings.Contains(rel, "/") {
		return false
	}
	if rel == metadataDir {
		return false
	}
	for _, g := range f.patterns {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// RelevantChangedPaths returns the sorted set of relevant paths with
// uncommitted changes, including the old name of a renamed file. A failing status query is logged and treated as no
// changes.
func (f *Filter) RelevantChangedPaths(ctx context.Context, src StatusSource) []string {
	entries, err := src.Status(ctx)
	if err != nil {
		f.logger.Error("Failed to query git status: %v", err)
		return nil
	}

	seen := make(map[string]struct{}, len(entries))
	var paths []string
	add := func(p string) {
		if p == "" || !f.MatchName(p) {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	for _, e := range entries {
		add(e.Path)
		// The source of a rename belongs to the same commit as its target.
		add(e.OrigPath)
	}
	sort.Strings(paths)
	return paths
}
