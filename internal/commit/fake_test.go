package commit

import (
	"context"
	"fmt"
	"sync"

	"github.com/bashhack/gitwatcher/internal/git"
)

// fakeGateway records the operations a commit attempt performs.
type fakeGateway struct {
	status      []git.StatusEntry
	identity    map[git.Scope]string
	stageErr    map[string]error
	commitErr   error
	pushErr     error
	workingDiff string
	stagedDiff  string
	onStage     func()

	mu     sync.Mutex
	log    []string
	ctxErr error
}

func (f *fakeGateway) record(ctx context.Context, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, op)
	f.ctxErr = ctx.Err()
}

func (f *fakeGateway) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *fakeGateway) count(op string) int {
	n := 0
	for _, c := range f.calls() {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeGateway) lastCtxErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxErr
}

func (f *fakeGateway) Status(ctx context.Context) ([]git.StatusEntry, error) {
	f.record(ctx, "status")
	return f.status, nil
}

func (f *fakeGateway) Diff(ctx context.Context, _ ...string) (string, error) {
	f.record(ctx, "diff")
	return f.workingDiff, nil
}

func (f *fakeGateway) DiffStaged(ctx context.Context, _ ...string) (string, error) {
	f.record(ctx, "diff-staged")
	return f.stagedDiff, nil
}

func (f *fakeGateway) Stage(ctx context.Context, path string) error {
	if f.onStage != nil {
		f.onStage()
	}
	f.record(ctx, "stage "+path)
	return f.stageErr[path]
}

func (f *fakeGateway) Commit(ctx context.Context, _ string, _ ...string) error {
	f.record(ctx, "commit")
	return f.commitErr
}

func (f *fakeGateway) Push(ctx context.Context) error {
	f.record(ctx, "push")
	return f.pushErr
}

func (f *fakeGateway) Identity(ctx context.Context, scope git.Scope) (string, bool, error) {
	f.record(ctx, "identity "+string(scope))
	name, ok := f.identity[scope]
	return name, ok, nil
}

func (f *fakeGateway) SetIdentity(ctx context.Context, _, _ string) error {
	f.record(ctx, "set-identity")
	return nil
}

// recordingLogger keeps every formatted message, whatever its level.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func (l *recordingLogger) Debug(format string, args ...interface{})         { l.add(format, args...) }
func (l *recordingLogger) Info(format string, args ...interface{})          { l.add(format, args...) }
func (l *recordingLogger) Warning(format string, args ...interface{})       { l.add(format, args...) }
func (l *recordingLogger) Error(format string, args ...interface{})         { l.add(format, args...) }
func (l *recordingLogger) InfoToUser(format string, args ...interface{})    { l.add(format, args...) }
func (l *recordingLogger) WarningToUser(format string, args ...interface{}) { l.add(format, args...) }
func (l *recordingLogger) Success(format string, args ...interface{})       { l.add(format, args...) }
func (l *recordingLogger) StatusMessage(format string, args ...interface{}) { l.add(format, args...) }
func (l *recordingLogger) Close() error                                     { return nil }
