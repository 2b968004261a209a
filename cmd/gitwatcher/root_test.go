package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashhack/gitwatcher/internal/config"
	"github.com/bashhack/gitwatcher/internal/gittest"
)

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	app := NewApp(AppOptions{
		Config: config.New(),
		Stdout: &stdout,
		Exit:   func(int) {},
	})
	app.Config.VersionInfo = config.VersionInfo{Version: "1.2.3", Commit: "abc123", Date: "2025-01-01"}

	root := newRootCommand(app)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "gitwatcher 1.2.3 (abc123) built on 2025-01-01\n", stdout.String())
}

func TestCommitCommandAppliesFlags(t *testing.T) {
	dir, remote := newWatchedRepo(t)
	gittest.WriteFile(t, dir, "notes.txt", "text file\n")
	gittest.WriteFile(t, dir, "notes.md", "markdown file\n")

	app := NewApp(AppOptions{
		Config: config.New(),
		Stdout: &syncBuffer{},
		Stderr: &syncBuffer{},
		Exit:   func(int) {},
	})

	root := newRootCommand(app)
	root.SetArgs([]string{
		"commit",
		"--dir", dir,
		"--no-notify",
		"--pattern", "*.txt",
		"--prefix", "Snapshot",
		"--quiet",
	})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, dir, app.Config.WatchedDir)
	assert.Equal(t, []string{"*.txt"}, app.Config.Patterns)
	assert.False(t, app.Config.Verbose)

	assert.Equal(t, 2, gittest.CommitCount(t, remote, "main"))
	assert.Equal(t, []string{"notes.txt"}, gittest.LastCommitFiles(t, dir))
	assert.Regexp(t, `^Snapshot: `, gittest.LastCommitMessage(t, dir))
}

func TestEnvironmentSelectsEventsUnlessFlagged(t *testing.T) {
	gittest.Isolate(t)
	t.Setenv("USE_POLLING", "false")

	app := NewApp(AppOptions{Config: config.New(), Exit: func(int) {}})
	root := newRootCommand(app)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.PersistentFlags().Parse([]string{"--poll-interval", "3s"}))
	require.NoError(t, app.Config.Load(root.PersistentFlags()))

	assert.False(t, app.Config.UsePolling)
	assert.Equal(t, "3s", app.Config.PollInterval.String())
}

func TestUnknownArgumentsRejected(t *testing.T) {
	app := NewApp(AppOptions{Config: config.New(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Exit: func(int) {}})
	root := newRootCommand(app)
	root.SetArgs([]string{"extra"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
