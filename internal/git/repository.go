package git

import (
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
)

// Repository identifies the working tree being watched.
type Repository struct {
	// Root is the absolute top-level directory of the working tree.
	Root string

	// Branch is the checked-out branch, empty when HEAD is detached.
	Branch string

	// Remote is the first URL of "origin", empty when there is none.
	Remote string
}

// OpenRepository validates that path is the top level of a non-bare git
// working tree and describes it.
func OpenRepository(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, watchErrors.Wrap(err, "failed to resolve repository path")
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, watchErrors.Wrapf(watchErrors.ErrNotGitRepository, "%s: %v", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, watchErrors.Wrapf(watchErrors.ErrNotGitRepository, "%s has no working tree: %v", abs, err)
	}

	root := wt.Filesystem.Root()
	if !samePath(root, abs) {
		return nil, watchErrors.Wrapf(watchErrors.ErrNotWorktreeRoot, "%s (working tree root is %s)", abs, root)
	}

	return &Repository{
		Root:   root,
		Branch: currentBranch(repo),
		Remote: originURL(repo),
	}, nil
}

// currentBranch reads HEAD without resolving it, so an unborn branch in a
// fresh repository is still reported.
func currentBranch(repo *gogit.Repository) string {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return ""
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short()
	}
	return ""
}

func originURL(repo *gogit.Repository) string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func samePath(a, b string) bool {
	if ra, err := filepath.EvalSymlinks(a); err == nil {
		a = ra
	}
	if rb, err := filepath.EvalSymlinks(b); err == nil {
		b = rb
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
