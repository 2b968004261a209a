package main

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bashhack/gitwatcher/internal/config"
	"github.com/bashhack/gitwatcher/internal/gittest"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// MockLocker implements the Locker interface for testing
type MockLocker struct {
	AcquireErr    error
	ReleaseErr    error
	AcquireCalled bool
	ReleaseCalled bool
}

func (m *MockLocker) Acquire() error {
	m.AcquireCalled = true
	return m.AcquireErr
}

func (m *MockLocker) Release() error {
	m.ReleaseCalled = true
	return m.ReleaseErr
}

// MockLogger implements the Logger interface for testing
type MockLogger struct {
	mu          sync.Mutex
	Messages    []string
	CloseErr    error
	CloseCalled bool
}

func (m *MockLogger) record(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Debug(format string, args ...interface{})         { m.record(format, args...) }
func (m *MockLogger) Info(format string, args ...interface{})          { m.record(format, args...) }
func (m *MockLogger) Warning(format string, args ...interface{})       { m.record(format, args...) }
func (m *MockLogger) Error(format string, args ...interface{})         { m.record(format, args...) }
func (m *MockLogger) InfoToUser(format string, args ...interface{})    { m.record(format, args...) }
func (m *MockLogger) WarningToUser(format string, args ...interface{}) { m.record(format, args...) }
func (m *MockLogger) Success(format string, args ...interface{})       { m.record(format, args...) }
func (m *MockLogger) StatusMessage(format string, args ...interface{}) { m.record(format, args...) }

func (m *MockLogger) Close() error {
	m.CloseCalled = true
	return m.CloseErr
}

var _ logger.Logger = (*MockLogger)(nil)

// syncBuffer is a bytes.Buffer safe for the logger's concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewTestApp creates an App watching dir with notifications off and short
// intervals. The caller's environment must already be isolated.
func NewTestApp(dir string) (*App, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}

	cfg := config.New()
	cfg.WatchedDir = dir
	cfg.NoNotify = true
	cfg.PollInterval = 50 * time.Millisecond
	cfg.QuietInterval = 50 * time.Millisecond
	cfg.HealthCheckInterval = time.Hour
	cfg.NotifyTimeout = 2 * time.Second
	cfg.GitTimeout = 10 * time.Second
	cfg.PushTimeout = 20 * time.Second

	app := NewApp(AppOptions{
		Config: cfg,
		Stdout: stdout,
		Stderr: stderr,
		Exit:   func(int) {},
	})
	return app, stdout, stderr
}

// newWatchedRepo isolates git config and returns a repository with an origin.
func newWatchedRepo(t *testing.T) (string, string) {
	t.Helper()
	gittest.Isolate(t)
	return gittest.NewRepoWithRemote(t)
}

// commitCount is safe to call from require.Eventually conditions.
func commitCount(dir, ref string) int {
	out, err := exec.Command("git", "-C", dir, "rev-list", "--count", ref).Output()
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return -1
	}
	return n
}
