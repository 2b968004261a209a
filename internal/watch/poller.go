package watch

import (
	"context"
	"time"

	"github.com/bashhack/gitwatcher/internal/commit"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// Poller attempts a commit on a fixed interval.
type Poller struct {
	committer Committer
	interval  time.Duration
	logger    logger.Logger
}

// NewPoller creates a polling strategy.
func NewPoller(committer Committer, interval time.Duration, log logger.Logger) *Poller {
	return &Poller{committer: committer, interval: interval, logger: log}
}

// Run polls until ctx is done. A failing tick is logged and the loop goes on.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoToUser("Polling for changes every %s", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Polling stopped")
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Poll iteration failed: %v", r)
		}
	}()

	p.committer.AttemptCommit(ctx, commit.TriggerPoll)
}
