package watch

import (
	"context"

	"github.com/bashhack/gitwatcher/internal/commit"
)

// Strategy is a watch loop. Run blocks until ctx is done or the loop gives
// up.
type Strategy interface {
	Run(ctx context.Context) error
}

// Committer is what a strategy drives.
type Committer interface {
	AttemptCommit(ctx context.Context, trigger commit.Trigger) commit.Result
	HasPendingChanges(ctx context.Context) bool
}
