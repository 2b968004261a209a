package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bashhack/gitwatcher/internal/commit"
	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// State is the lifecycle state of the event-driven strategy.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateRestarting
	StateExhausted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateExhausted:
		return "exhausted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventClock exposes the last relevant event. The debounce coalescer
// implements it.
type EventClock interface {
	LastEvent() (time.Time, bool)
	ClearLastEventIf(at time.Time) bool
}

// WatcherHealth is a snapshot of the supervisor's bookkeeping.
type WatcherHealth struct {
	LastCheck time.Time
	LastEvent time.Time
	Restarts  int
}

// SupervisorConfig holds the health-check timings.
type SupervisorConfig struct {
	HealthCheckInterval time.Duration
	StaleAfter          time.Duration
	MaxRestarts         int
}

// Supervisor runs an event source and checks on it periodically. Every check
// restarts a dead source, forces a commit when changes have gone stale and
// makes a backstop attempt for events the source may have missed.
type Supervisor struct {
	config    SupervisorConfig
	factory   SourceFactory
	clock     EventClock
	committer Committer
	logger    logger.Logger

	state  atomic.Int32
	source Source

	mu        sync.Mutex
	lastCheck time.Time
	restarts  int

	now func() time.Time
}

// NewSupervisor creates an event-driven strategy.
func NewSupervisor(config SupervisorConfig, factory SourceFactory, clock EventClock, committer Committer, log logger.Logger) *Supervisor {
	return &Supervisor{
		config:    config,
		factory:   factory,
		clock:     clock,
		committer: committer,
		logger:    log,
		now:       time.Now,
	}
}

// Run starts the source and supervises it until ctx is done. It returns an
// error matching errors.ErrWatchSourceExhausted when the source keeps dying.
func (s *Supervisor) Run(ctx context.Context) error {
	s.setState(StateStarting)
	s.source = s.factory()
	if err := s.source.Start(); err != nil {
		// Left dead; the first health check restarts it.
		s.logger.Error("Failed to start filesystem watcher: %v", err)
	} else {
		s.setState(StateRunning)
		s.logger.InfoToUser("Watching for changes (health check every %s)", s.config.HealthCheckInterval)
	}

	defer func() {
		if err := s.source.Close(); err != nil {
			s.logger.Warning("Failed to close filesystem watcher: %v", err)
		}
		if s.State() != StateExhausted {
			s.setState(StateStopped)
		}
	}()

	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Watch supervisor stopped")
			return nil
		case <-ticker.C:
			if err := s.check(ctx); err != nil {
				return err
			}
		}
	}
}

// check runs one health cycle. Only restart exhaustion is returned; anything
// else is logged.
func (s *Supervisor) check(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Health check failed: %v", r)
			err = nil
		}
	}()

	s.mu.Lock()
	s.lastCheck = s.now()
	s.mu.Unlock()

	if err := s.checkLiveness(); err != nil {
		return err
	}
	s.checkStaleness(ctx)

	s.committer.AttemptCommit(ctx, commit.TriggerBackstop)
	return nil
}

func (s *Supervisor) checkLiveness() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source.Alive() {
		if s.restarts > 0 {
			s.logger.Info("Filesystem watcher healthy again after %d restart(s)", s.restarts)
			s.restarts = 0
		}
		return nil
	}

	if s.restarts >= s.config.MaxRestarts {
		s.setState(StateExhausted)
		s.logger.Error("Filesystem watcher died %d times in a row, giving up", s.restarts+1)
		return watchErrors.Wrapf(watchErrors.ErrWatchSourceExhausted, "%d consecutive restarts", s.restarts)
	}

	s.restarts++
	s.setState(StateRestarting)
	s.logger.Warning("Filesystem watcher is not running, restarting (%d/%d)", s.restarts, s.config.MaxRestarts)

	if err := s.source.Close(); err != nil {
		s.logger.Debug("Closing dead watcher: %v", err)
	}
	s.source = s.factory()
	if err := s.source.Start(); err != nil {
		s.logger.Error("Failed to restart filesystem watcher: %v", err)
		return nil
	}
	s.setState(StateRunning)
	return nil
}

func (s *Supervisor) checkStaleness(ctx context.Context) {
	last, ok := s.clock.LastEvent()
	if !ok || s.now().Sub(last) <= s.config.StaleAfter {
		return
	}
	if !s.committer.HasPendingChanges(ctx) {
		return
	}

	s.logger.Warning("Changes pending since %s, forcing a commit", last.Format("15:04:05"))
	s.committer.AttemptCommit(ctx, commit.TriggerStale)

	// An event that arrived during the attempt starts a new window.
	s.clock.ClearLastEventIf(last)
}

// Health returns the current health snapshot.
func (s *Supervisor) Health() WatcherHealth {
	s.mu.Lock()
	h := WatcherHealth{LastCheck: s.lastCheck, Restarts: s.restarts}
	s.mu.Unlock()

	if last, ok := s.clock.LastEvent(); ok {
		h.LastEvent = last
	}
	return h
}

// State returns the lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(state State) {
	s.state.Store(int32(state))
}
