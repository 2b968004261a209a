// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Isolate hides the user's git configuration from the test so identity and
// push behaviour only depend on what the test sets up.
func Isolate(t testing.TB) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(home, ".gitconfig"))
	for _, key := range []string{
		"GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_COMMITTER_NAME",
		"GIT_COMMITTER_EMAIL", "GIT_DIR", "GIT_WORK_TREE", "EMAIL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return home
}

// Git runs git in dir and returns trimmed stdout, failing the test on error.
func Git(t testing.TB, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

// InitEmpty creates an empty repository without identity or commits.
func InitEmpty(t testing.TB) string {
	t.Helper()

	dir := t.TempDir()
	Git(t, dir, "-c", "init.defaultBranch=main", "init")
	return dir
}

// NewRepo creates a repository with a committer identity and one commit
// containing initial.txt.
func NewRepo(t testing.TB) string {
	t.Helper()

	dir := InitEmpty(t)
	Git(t, dir, "config", "user.name", "Test User")
	Git(t, dir, "config", "user.email", "test@example.com")
	WriteFile(t, dir, "initial.txt", "Initial content")
	Git(t, dir, "add", "initial.txt")
	Git(t, dir, "commit", "-m", "Initial commit")
	return dir
}

// NewRepoWithRemote creates a repository whose main branch tracks a bare
// origin. It returns the working tree and the remote path.
func NewRepoWithRemote(t testing.TB) (string, string) {
	t.Helper()

	remote := t.TempDir()
	Git(t, remote, "-c", "init.defaultBranch=main", "init", "--bare")

	dir := NewRepo(t)
	Git(t, dir, "remote", "add", "origin", remote)
	Git(t, dir, "push", "-u", "origin", "HEAD")
	return dir, remote
}

// WriteFile writes content to name under dir, creating parent directories.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// CommitCount returns the number of commits reachable from ref.
func CommitCount(t testing.TB, dir, ref string) int {
	t.Helper()

	n, err := strconv.Atoi(Git(t, dir, "rev-list", "--count", ref))
	require.NoError(t, err)
	return n
}

// LastCommitFiles lists the paths changed by HEAD.
func LastCommitFiles(t testing.TB, dir string) []string {
	t.Helper()

	out := Git(t, dir, "show", "--name-only", "--pretty=format:", "HEAD")
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}

// LastCommitMessage returns the subject of HEAD.
func LastCommitMessage(t testing.TB, dir string) string {
	t.Helper()
	return Git(t, dir, "log", "-1", "--pretty=%s")
}
