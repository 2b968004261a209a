//go:build integration
// +build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func skipUnlessEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv("GITWATCHER_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test. Set GITWATCHER_INTEGRATION_TESTS=1 to run")
	}
}

// buildGitwatcher compiles the binary once per test into a temp dir.
func buildGitwatcher(t *testing.T) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "gitwatcher")
	cmd := exec.Command("go", "build", "-o", bin, "../../cmd/gitwatcher")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build gitwatcher binary: %v\n%s", err, out)
	}
	return bin
}

// testEnv isolates the child process from the user's git and gitwatcher
// configuration.
func testEnv(t *testing.T, extra ...string) []string {
	t.Helper()

	home := t.TempDir()
	env := []string{
		"HOME=" + home,
		"PATH=" + os.Getenv("PATH"),
		"XDG_DATA_HOME=" + filepath.Join(home, ".local", "share"),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL=" + filepath.Join(home, ".gitconfig"),
		"LC_ALL=C",
	}
	return append(env, extra...)
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// setupTestRepo creates a working tree with one commit that tracks a bare
// origin. It returns both paths.
func setupTestRepo(t *testing.T) (string, string) {
	t.Helper()

	remote := t.TempDir()
	git(t, remote, "-c", "init.defaultBranch=main", "init", "--bare")

	repo := t.TempDir()
	git(t, repo, "-c", "init.defaultBranch=main", "init")
	git(t, repo, "config", "user.email", "test@example.com")
	git(t, repo, "config", "user.name", "Test User")
	if err := os.WriteFile(filepath.Join(repo, "initial.txt"), []byte("Initial content"), 0o644); err != nil {
		t.Fatalf("Failed to create initial file: %v", err)
	}
	git(t, repo, "add", "initial.txt")
	git(t, repo, "commit", "-m", "Initial commit")
	git(t, repo, "remote", "add", "origin", remote)
	git(t, repo, "push", "-u", "origin", "HEAD")

	return repo, remote
}

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
