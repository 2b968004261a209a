package commit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/filter"
	"github.com/bashhack/gitwatcher/internal/git"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// Gateway is the subset of git operations a commit attempt needs.
type Gateway interface {
	filter.StatusSource
	Diff(ctx context.Context, pathspecs ...string) (string, error)
	DiffStaged(ctx context.Context, pathspecs ...string) (string, error)
	Stage(ctx context.Context, path string) error
	Commit(ctx context.Context, message string, paths ...string) error
	Push(ctx context.Context) error
	Identity(ctx context.Context, scope git.Scope) (string, bool, error)
	SetIdentity(ctx context.Context, name, email string) error
}

// Dispatcher receives the diff of every delivered commit.
type Dispatcher interface {
	Dispatch(diff string)
}

// Options controls commit messages and the fallback identity.
type Options struct {
	CommitPrefix  string
	IdentityName  string
	IdentityEmail string
}

// Result describes one commit attempt.
type Result struct {
	ID      string
	Trigger Trigger

	// Attempted is false when there was nothing relevant to commit, or when
	// the attempt was dropped.
	Attempted bool

	// Committed means committed and pushed.
	Committed bool

	// Dropped is set when another attempt was already in flight or the
	// orchestrator was shut down.
	Dropped bool

	Paths []string
	Diff  string
}

// Stats summarizes the session.
type Stats struct {
	Attempts     int64
	Commits      int64
	PushFailures int64
	Failures     int64
	Dropped      int64
	LastCommit   time.Time
}

// Orchestrator serializes commit attempts against one working tree.
type Orchestrator struct {
	gateway    Gateway
	filter     *filter.Filter
	dispatcher Dispatcher
	logger     logger.Logger
	options    Options

	// run is held for the whole status-to-push sequence.
	run sync.Mutex

	closeMu sync.Mutex
	closed  bool

	attempts     atomic.Int64
	commits      atomic.Int64
	pushFailures atomic.Int64
	failures     atomic.Int64
	dropped      atomic.Int64
	lastCommit   atomic.Int64

	startTime time.Time
	now       func() time.Time
}

// New creates an Orchestrator. A nil dispatcher discards diffs.
func New(gateway Gateway, f *filter.Filter, dispatcher Dispatcher, log logger.Logger, options Options) *Orchestrator {
	if dispatcher == nil {
		dispatcher = discard{}
	}
	if options.CommitPrefix == "" {
		options.CommitPrefix = "Auto-commit"
	}
	return &Orchestrator{
		gateway:    gateway,
		filter:     f,
		dispatcher: dispatcher,
		logger:     log,
		options:    options,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// HasPendingChanges reports whether any relevant path has uncommitted
// changes. It does not take the commit lock.
func (o *Orchestrator) HasPendingChanges(ctx context.Context) bool {
	return len(o.filter.RelevantChangedPaths(ctx, o.gateway)) > 0
}

// AttemptCommit stages, commits and pushes the relevant changed paths. A call
// made while another attempt is running is dropped, not queued. The sequence
// is not interrupted by cancellation of ctx once it has started.
func (o *Orchestrator) AttemptCommit(ctx context.Context, trigger Trigger) Result {
	result := Result{ID: uuid.NewString(), Trigger: trigger}

	if o.isClosed() {
		result.Dropped = true
		return result
	}
	if !o.run.TryLock() {
		o.dropped.Add(1)
		o.logger.Debug("Commit attempt %s (%s) dropped: another attempt is in flight", shortID(result.ID), trigger)
		result.Dropped = true
		return result
	}
	defer o.run.Unlock()

	// Shutdown may have completed between the check above and the lock.
	if o.isClosed() {
		result.Dropped = true
		return result
	}

	o.execute(context.WithoutCancel(ctx), &result)
	return result
}

func (o *Orchestrator) execute(ctx context.Context, result *Result) {
	id := shortID(result.ID)

	paths := o.filter.RelevantChangedPaths(ctx, o.gateway)
	if len(paths) == 0 {
		o.logger.Debug("Commit attempt %s (%s): no relevant changes", id, result.Trigger)
		return
	}

	result.Attempted = true
	result.Paths = paths
	o.attempts.Add(1)

	if result.Trigger.Forced() {
		o.logger.Warning("Forcing commit %s of %d stale path(s): %s", id, len(paths), strings.Join(paths, ", "))
	} else {
		o.logger.Info("Commit attempt %s (%s) for %d path(s): %s", id, result.Trigger, len(paths), strings.Join(paths, ", "))
	}

	o.ensureIdentity(ctx, id)

	workingDiff, err := o.gateway.Diff(ctx, paths...)
	if err != nil {
		o.logger.Warning("Commit attempt %s: failed to capture working diff: %v", id, err)
	}

	for _, p := range paths {
		if err := o.gateway.Stage(ctx, p); err != nil {
			o.failures.Add(1)
			o.logger.Error("Commit attempt %s: failed to stage %s: %v", id, p, err)
			return
		}
	}

	stagedDiff, err := o.gateway.DiffStaged(ctx, paths...)
	if err != nil {
		o.logger.Warning("Commit attempt %s: failed to capture staged diff: %v", id, err)
	}

	message := fmt.Sprintf("%s: %s", o.options.CommitPrefix, o.now().Format("2006-01-02 15:04:05"))
	if err := o.gateway.Commit(ctx, message, paths...); err != nil {
		if watchErrors.Is(err, watchErrors.ErrNothingToCommit) {
			o.logger.Info("Nothing to commit for attempt %s", id)
			return
		}
		o.failures.Add(1)
		o.logger.Error("Commit %s failed: %v", id, err)
		return
	}

	if err := o.gateway.Push(ctx); err != nil {
		// The local commit stays. It is not re-pushed on later attempts.
		o.pushFailures.Add(1)
		o.logger.Error("Push failed after commit %s, local branch is ahead of upstream: %v", id, err)
		return
	}

	result.Committed = true
	o.commits.Add(1)
	o.lastCommit.Store(o.now().UnixNano())

	result.Diff = stagedDiff
	if strings.TrimSpace(result.Diff) == "" {
		result.Diff = workingDiff
	}

	o.logger.Success("Committed and pushed %d file(s) in attempt %s: %s", len(paths), id, message)
	o.dispatcher.Dispatch(result.Diff)
}

// ensureIdentity sets the fallback identity on the repository when neither
// local nor global config has user.name. Failures are logged and the attempt
// continues.
func (o *Orchestrator) ensureIdentity(ctx context.Context, id string) {
	for _, scope := range []git.Scope{git.ScopeLocal, git.ScopeGlobal} {
		name, ok, err := o.gateway.Identity(ctx, scope)
		if err != nil {
			o.logger.Warning("Commit attempt %s: failed to read %s git identity: %v", id, scope, err)
			continue
		}
		if ok {
			o.logger.Debug("Commit attempt %s: using %s git identity %q", id, scope, name)
			return
		}
	}

	o.logger.InfoToUser("Commit attempt %s: no git identity configured, using %s <%s>", id, o.options.IdentityName, o.options.IdentityEmail)
	if err := o.gateway.SetIdentity(ctx, o.options.IdentityName, o.options.IdentityEmail); err != nil {
		o.logger.Warning("Commit attempt %s: failed to set git identity: %v", id, err)
	}
}

// Shutdown waits for an in-flight attempt and rejects later ones.
func (o *Orchestrator) Shutdown() {
	o.closeMu.Lock()
	o.closed = true
	o.closeMu.Unlock()

	o.run.Lock()
	defer o.run.Unlock()
}

func (o *Orchestrator) isClosed() bool {
	o.closeMu.Lock()
	defer o.closeMu.Unlock()
	return o.closed
}

// Stats returns session counters.
func (o *Orchestrator) Stats() Stats {
	s := Stats{
		Attempts:     o.attempts.Load(),
		Commits:      o.commits.Load(),
		PushFailures: o.pushFailures.Load(),
		Failures:     o.failures.Load(),
		Dropped:      o.dropped.Load(),
	}
	if ns := o.lastCommit.Load(); ns != 0 {
		s.LastCommit = time.Unix(0, ns)
	}
	return s
}

// PrintSummary prints a summary of the session
func (o *Orchestrator) PrintSummary() {
	stats := o.Stats()
	duration := time.Since(o.startTime)
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	o.logger.StatusMessage("")
	o.logger.StatusMessage("---------------------------------------------")
	o.logger.StatusMessage("📊 gitwatcher Session Summary")
	o.logger.StatusMessage("---------------------------------------------")
	o.logger.StatusMessage("✅ Commits pushed: %d", stats.Commits)
	if stats.PushFailures > 0 {
		o.logger.StatusMessage("⚠️  Commits not pushed: %d", stats.PushFailures)
	}
	if stats.Failures > 0 {
		o.logger.StatusMessage("❌ Failed attempts: %d", stats.Failures)
	}
	o.logger.StatusMessage("⏱️  Session duration: %dh %dm %ds", hours, minutes, seconds)
	if !stats.LastCommit.IsZero() {
		o.logger.StatusMessage("🕑 Last commit: %s", stats.LastCommit.Format("2006-01-02 15:04:05"))
	}
	o.logger.StatusMessage("---------------------------------------------")
	o.logger.StatusMessage("🛑 gitwatcher terminated at %s", time.Now().Format("2006-01-02 15:04:05"))
}

type discard struct{}

func (discard) Dispatch(string) {}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
