package commit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/filter"
	"github.com/bashhack/gitwatcher/internal/git"
	"github.com/bashhack/gitwatcher/internal/gittest"
	"github.com/bashhack/gitwatcher/internal/logger"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	diffs []string
}

func (d *recordingDispatcher) Dispatch(diff string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.diffs = append(d.diffs, diff)
}

func (d *recordingDispatcher) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.diffs...)
}

func testOptions() Options {
	return Options{CommitPrefix: "Auto-commit", IdentityName: "Git Watcher", IdentityEmail: "gitwatcher@local"}
}

func newOrchestrator(t *testing.T, dir string, gw Gateway, d Dispatcher) *Orchestrator {
	t.Helper()

	f, err := filter.New(dir, []string{"*.md"}, logger.Nop())
	require.NoError(t, err)
	return New(gw, f, d, logger.Nop(), testOptions())
}

func realGateway(dir string) *git.Gateway {
	return git.NewGateway(git.GatewayConfig{RepoPath: dir, Timeout: 10 * time.Second, PushTimeout: 20 * time.Second}, logger.Nop())
}

func TestAttemptCommitCommitsAndPushes(t *testing.T) {
	gittest.Isolate(t)
	dir, remote := gittest.NewRepoWithRemote(t)
	d := &recordingDispatcher{}
	o := newOrchestrator(t, dir, realGateway(dir), d)

	gittest.WriteFile(t, dir, "notes.md", "first line\n")

	result := o.AttemptCommit(context.Background(), TriggerDebounce)

	assert.True(t, result.Attempted)
	assert.True(t, result.Committed)
	assert.False(t, result.Dropped)
	assert.Equal(t, []string{"notes.md"}, result.Paths)
	assert.NotEmpty(t, result.ID)

	// New files only show up in the staged view.
	assert.Contains(t, result.Diff, "notes.md")
	assert.Contains(t, result.Diff, "+first line")
	assert.Equal(t, []string{result.Diff}, d.all())

	assert.Regexp(t, `^Auto-commit: \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, gittest.LastCommitMessage(t, dir))
	assert.Equal(t, 2, gittest.CommitCount(t, remote, "main"))

	stats := o.Stats()
	assert.EqualValues(t, 1, stats.Attempts)
	assert.EqualValues(t, 1, stats.Commits)
	assert.False(t, stats.LastCommit.IsZero())
}

func TestAttemptCommitIsIdempotentWithoutChanges(t *testing.T) {
	gw := &fakeGateway{status: []git.StatusEntry{{Code: " M", Path: "sub/deep.md"}, {Code: "??", Path: "notes.txt"}}}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	for i := 0; i < 3; i++ {
		result := o.AttemptCommit(context.Background(), TriggerPoll)
		assert.False(t, result.Attempted)
		assert.False(t, result.Committed)
	}
	assert.Equal(t, []string{"status", "status", "status"}, gw.calls())
	assert.EqualValues(t, 0, o.Stats().Attempts)
}

func TestAttemptCommitStagesOnlyRelevantPaths(t *testing.T) {
	gittest.Isolate(t)
	dir, _ := gittest.NewRepoWithRemote(t)
	o := newOrchestrator(t, dir, realGateway(dir), nil)

	gittest.WriteFile(t, dir, "journal.md", "entry\n")
	gittest.WriteFile(t, dir, "todo.txt", "not watched\n")
	gittest.WriteFile(t, dir, "sub/nested.md", "too deep\n")
	gittest.WriteFile(t, dir, "initial.txt", "modified\n")

	result := o.AttemptCommit(context.Background(), TriggerPoll)
	require.True(t, result.Committed)

	assert.Equal(t, []string{"journal.md"}, gittest.LastCommitFiles(t, dir))

	status := gittest.Git(t, dir, "status", "--porcelain")
	assert.Contains(t, status, "todo.txt")
	assert.Contains(t, status, "sub/")
	assert.Contains(t, status, "initial.txt")
	assert.NotContains(t, status, "journal.md")
}

func TestAttemptCommitRecordsRenameInOneCommit(t *testing.T) {
	gittest.Isolate(t)
	dir, remote := gittest.NewRepoWithRemote(t)
	d := &recordingDispatcher{}
	o := newOrchestrator(t, dir, realGateway(dir), d)

	gittest.WriteFile(t, dir, "old.md", "draft\n")
	require.True(t, o.AttemptCommit(context.Background(), TriggerDebounce).Committed)

	gittest.Git(t, dir, "mv", "old.md", "new.md")
	result := o.AttemptCommit(context.Background(), TriggerDebounce)

	require.True(t, result.Committed)
	assert.Equal(t, []string{"new.md", "old.md"}, result.Paths)
	assert.Empty(t, gittest.Git(t, dir, "status", "--porcelain"))
	assert.ElementsMatch(t, []string{"new.md", "old.md"},
		strings.Fields(gittest.Git(t, dir, "show", "--name-only", "--no-renames", "--pretty=format:", "HEAD")))
	assert.Equal(t, 3, gittest.CommitCount(t, remote, "main"))
	assert.Len(t, d.all(), 2)
}

func TestAttemptCommitPushFailureKeepsLocalCommit(t *testing.T) {
	gittest.Isolate(t)
	dir, _ := gittest.NewRepoWithRemote(t)
	gittest.Git(t, dir, "remote", "set-url", "origin", dir+"-missing")
	d := &recordingDispatcher{}
	o := newOrchestrator(t, dir, realGateway(dir), d)

	gittest.WriteFile(t, dir, "notes.md", "unpushed\n")

	result := o.AttemptCommit(context.Background(), TriggerDebounce)
	assert.True(t, result.Attempted)
	assert.False(t, result.Committed)
	assert.Empty(t, d.all())

	assert.Equal(t, 1, gittest.CommitCount(t, dir, "origin/main..HEAD"))
	assert.Equal(t, []string{"notes.md"}, gittest.LastCommitFiles(t, dir))

	// The tree is clean now, so nothing triggers a re-push.
	again := o.AttemptCommit(context.Background(), TriggerPoll)
	assert.False(t, again.Attempted)
	assert.Equal(t, 1, gittest.CommitCount(t, dir, "origin/main..HEAD"))
	assert.EqualValues(t, 1, o.Stats().PushFailures)
}

func TestAttemptCommitBootstrapsIdentity(t *testing.T) {
	gittest.Isolate(t)
	dir := gittest.InitEmpty(t)
	o := newOrchestrator(t, dir, realGateway(dir), nil)

	gittest.WriteFile(t, dir, "notes.md", "hello\n")

	result := o.AttemptCommit(context.Background(), TriggerStartup)
	assert.True(t, result.Attempted)

	assert.Equal(t, "Git Watcher", gittest.Git(t, dir, "config", "--local", "user.name"))
	assert.Equal(t, "gitwatcher@local", gittest.Git(t, dir, "config", "--local", "user.email"))
	assert.Equal(t, 1, gittest.CommitCount(t, dir, "HEAD"))
	assert.Equal(t, "Git Watcher", gittest.Git(t, dir, "log", "-1", "--pretty=%an"))
}

func TestAttemptCommitKeepsExistingIdentity(t *testing.T) {
	gw := &fakeGateway{
		status:   []git.StatusEntry{{Code: "??", Path: "a.md"}},
		identity: map[git.Scope]string{git.ScopeGlobal: "Someone"},
	}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	o.AttemptCommit(context.Background(), TriggerManual)

	assert.NotContains(t, gw.calls(), "set-identity")
	assert.Contains(t, gw.calls(), "commit")
}

func TestAttemptCommitTagsLogLinesWithAttemptID(t *testing.T) {
	tests := map[string]struct {
		gateway *fakeGateway
	}{
		"delivered with identity bootstrap": {
			gateway: &fakeGateway{status: []git.StatusEntry{{Code: "??", Path: "a.md"}}},
		},
		"stage failure": {
			gateway: &fakeGateway{
				status:   []git.StatusEntry{{Code: "??", Path: "a.md"}},
				identity: map[git.Scope]string{git.ScopeLocal: "Someone"},
				stageErr: map[string]error{"a.md": errors.New("index.lock exists")},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := filter.New(t.TempDir(), []string{"*.md"}, logger.Nop())
			require.NoError(t, err)
			log := &recordingLogger{}
			o := New(tc.gateway, f, nil, log, testOptions())

			result := o.AttemptCommit(context.Background(), TriggerDebounce)
			require.True(t, result.Attempted)

			messages := log.all()
			require.GreaterOrEqual(t, len(messages), 3)
			for _, msg := range messages {
				assert.Contains(t, msg, shortID(result.ID))
			}
		})
	}
}

func TestAttemptCommitStageFailureAborts(t *testing.T) {
	gw := &fakeGateway{
		status:   []git.StatusEntry{{Code: " M", Path: "a.md"}, {Code: " M", Path: "b.md"}},
		identity: map[git.Scope]string{git.ScopeLocal: "Me"},
		stageErr: map[string]error{"a.md": errors.New("index.lock exists")},
	}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	result := o.AttemptCommit(context.Background(), TriggerDebounce)

	assert.True(t, result.Attempted)
	assert.False(t, result.Committed)
	assert.NotContains(t, gw.calls(), "stage b.md")
	assert.NotContains(t, gw.calls(), "commit")
	assert.NotContains(t, gw.calls(), "push")
	assert.EqualValues(t, 1, o.Stats().Failures)
}

func TestAttemptCommitNothingToCommitIsBenign(t *testing.T) {
	gw := &fakeGateway{
		status:    []git.StatusEntry{{Code: " M", Path: "a.md"}},
		identity:  map[git.Scope]string{git.ScopeLocal: "Me"},
		commitErr: watchErrors.Wrap(watchErrors.ErrNothingToCommit, "clean"),
	}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	result := o.AttemptCommit(context.Background(), TriggerDebounce)

	assert.True(t, result.Attempted)
	assert.False(t, result.Committed)
	assert.NotContains(t, gw.calls(), "push")
	assert.EqualValues(t, 0, o.Stats().Failures)
}

func TestAttemptCommitFallsBackToWorkingDiff(t *testing.T) {
	gw := &fakeGateway{
		status:      []git.StatusEntry{{Code: " M", Path: "a.md"}},
		identity:    map[git.Scope]string{git.ScopeLocal: "Me"},
		workingDiff: "working view",
	}
	d := &recordingDispatcher{}
	o := newOrchestrator(t, t.TempDir(), gw, d)

	result := o.AttemptCommit(context.Background(), TriggerDebounce)

	require.True(t, result.Committed)
	assert.Equal(t, "working view", result.Diff)
	assert.Equal(t, []string{"working view"}, d.all())
}

func TestAttemptCommitCollapsesConcurrentTriggers(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{
		status:   []git.StatusEntry{{Code: " M", Path: "a.md"}},
		identity: map[git.Scope]string{git.ScopeLocal: "Me"},
		onStage: func() {
			close(entered)
			<-release
		},
	}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	first := make(chan Result, 1)
	go func() { first <- o.AttemptCommit(context.Background(), TriggerDebounce) }()
	<-entered

	second := o.AttemptCommit(context.Background(), TriggerBackstop)
	assert.True(t, second.Dropped)
	assert.False(t, second.Attempted)

	close(release)
	assert.True(t, (<-first).Committed)
	assert.Equal(t, 1, gw.count("commit"))
	assert.Equal(t, 1, gw.count("push"))
	assert.EqualValues(t, 1, o.Stats().Dropped)
}

func TestAttemptCommitIgnoresCallerCancellation(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{
		status:   []git.StatusEntry{{Code: " M", Path: "a.md"}},
		identity: map[git.Scope]string{git.ScopeLocal: "Me"},
		onStage: func() {
			close(entered)
			<-release
		},
	}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- o.AttemptCommit(ctx, TriggerPoll) }()
	<-entered
	cancel()
	close(release)

	assert.True(t, (<-done).Committed)
	assert.NoError(t, gw.lastCtxErr())
}

func TestShutdownWaitsAndRejects(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{
		status:   []git.StatusEntry{{Code: " M", Path: "a.md"}},
		identity: map[git.Scope]string{git.ScopeLocal: "Me"},
		onStage: func() {
			close(entered)
			<-release
		},
	}
	o := newOrchestrator(t, t.TempDir(), gw, nil)

	done := make(chan Result, 1)
	go func() { done <- o.AttemptCommit(context.Background(), TriggerPoll) }()
	<-entered

	shut := make(chan struct{})
	go func() {
		o.Shutdown()
		close(shut)
	}()

	select {
	case <-shut:
		t.Fatal("Shutdown returned while an attempt was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-shut
	assert.True(t, (<-done).Committed)

	after := o.AttemptCommit(context.Background(), TriggerPoll)
	assert.True(t, after.Dropped)
	assert.Equal(t, 1, gw.count("status"))
}

func TestHasPendingChanges(t *testing.T) {
	gittest.Isolate(t)
	dir := gittest.NewRepo(t)
	o := newOrchestrator(t, dir, realGateway(dir), nil)

	assert.False(t, o.HasPendingChanges(context.Background()))
	gittest.WriteFile(t, dir, "other.txt", "ignored")
	assert.False(t, o.HasPendingChanges(context.Background()))
	gittest.WriteFile(t, dir, "notes.md", "pending")
	assert.True(t, o.HasPendingChanges(context.Background()))
}

func TestTrigger(t *testing.T) {
	assert.Equal(t, "stale", TriggerStale.String())
	assert.Equal(t, "backstop", TriggerBackstop.String())
	assert.Equal(t, "unknown", Trigger(99).String())
	assert.True(t, TriggerStale.Forced())
	for _, tr := range []Trigger{TriggerStartup, TriggerManual, TriggerDebounce, TriggerPoll, TriggerBackstop} {
		assert.False(t, tr.Forced(), tr.String())
	}
}
