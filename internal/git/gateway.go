package git

import (
	"context"
	"strings"
	"time"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// Scope selects which git config file an identity lookup reads.
type Scope string

const (
	ScopeLocal  Scope = "local"
	ScopeGlobal Scope = "global"
)

// nothingToCommit are the messages git prints when a commit has no content.
var nothingToCommit = []string{
	"nothing to commit",
	"nothing added to commit",
	"no changes added to commit",
}

// unmatchedPathspec is what git add prints for a path it cannot find.
const unmatchedPathspec = "did not match any files"

// GatewayConfig holds the settings for a Gateway.
type GatewayConfig struct {
	// RepoPath is the working tree every command runs in.
	RepoPath string

	// Timeout bounds every command except push.
	Timeout time.Duration

	// PushTimeout bounds git push.
	PushTimeout time.Duration
}

// Gateway runs bounded-timeout git commands against one working tree.
// Failures come back as *errors.GitError values, never panics.
type Gateway struct {
	config   GatewayConfig
	executor CommandExecutor
	logger   logger.Logger
}

// NewGateway creates a Gateway backed by the git binary.
func NewGateway(config GatewayConfig, log logger.Logger) *Gateway {
	return NewGatewayWithExecutor(config, log, NewExecExecutor())
}

// NewGatewayWithExecutor creates a Gateway with a custom executor.
func NewGatewayWithExecutor(config GatewayConfig, log logger.Logger, executor CommandExecutor) *Gateway {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PushTimeout <= 0 {
		config.PushTimeout = 120 * time.Second
	}
	return &Gateway{config: config, executor: executor, logger: log}
}

// RepoPath returns the working tree this gateway operates on.
func (g *Gateway) RepoPath() string {
	return g.config.RepoPath
}

// Status lists working tree changes as reported by git status.
func (g *Gateway) Status(ctx context.Context) ([]StatusEntry, error) {
	out, err := g.output(ctx, g.config.Timeout, "status", "--porcelain=v1", "-z")
	if err != nil {
		return nil, err
	}
	return ParseStatus(out), nil
}

// Diff returns the unstaged diff, limited to pathspecs when given.
func (g *Gateway) Diff(ctx context.Context, pathspecs ...string) (string, error) {
	return g.output(ctx, g.config.Timeout, withPathspecs([]string{"diff", "--no-color"}, pathspecs)...)
}

// DiffStaged returns the diff between HEAD and the index.
func (g *Gateway) DiffStaged(ctx context.Context, pathspecs ...string) (string, error) {
	return g.output(ctx, g.config.Timeout, withPathspecs([]string{"diff", "--cached", "--no-color"}, pathspecs)...)
}

// Stage adds a single path to the index, including deletions. A path that is
// gone from both the working tree and the index, such as the source of a
// staged rename, has nothing left to stage and is not an error.
func (g *Gateway) Stage(ctx context.Context, path string) error {
	_, err := g.output(ctx, g.config.Timeout, "add", "--", path)
	if err == nil {
		return nil
	}

	var gitErr *watchErrors.GitError
	if watchErrors.As(err, &gitErr) && strings.Contains(gitErr.Output, unmatchedPathspec) {
		g.logger.Debug("Nothing to stage for %s: %s", path, strings.TrimSpace(gitErr.Output))
		return nil
	}
	return err
}

// Commit records the index. When paths are given only those paths are
// committed, leaving anything else already staged untouched. An empty commit
// returns an error matching errors.ErrNothingToCommit.
func (g *Gateway) Commit(ctx context.Context, message string, paths ...string) error {
	out, err := g.output(ctx, g.config.Timeout, withPathspecs([]string{"commit", "-m", message}, paths)...)
	if err == nil {
		return nil
	}

	detail := out
	var gitErr *watchErrors.GitError
	if watchErrors.As(err, &gitErr) {
		detail = gitErr.Output + "\n" + out
	}
	for _, marker := range nothingToCommit {
		if strings.Contains(detail, marker) {
			return watchErrors.Wrap(watchErrors.ErrNothingToCommit, strings.TrimSpace(detail))
		}
	}
	return err
}

// Push pushes the current branch to its upstream.
func (g *Gateway) Push(ctx context.Context) error {
	_, err := g.output(ctx, g.config.PushTimeout, "push")
	return err
}

// Identity reads user.name from the given scope. A missing key is reported as
// ok=false with a nil error.
func (g *Gateway) Identity(ctx context.Context, scope Scope) (string, bool, error) {
	out, err := g.output(ctx, g.config.Timeout, "config", "--"+string(scope), "--get", "user.name")
	if err != nil {
		// git config exits 1 when the key is not set.
		var gitErr *watchErrors.GitError
		if watchErrors.As(err, &gitErr) && gitErr.ExitCode == 1 {
			return "", false, nil
		}
		return "", false, err
	}

	name := strings.TrimSpace(out)
	return name, name != "", nil
}

// SetIdentity writes user.name and user.email to the repository config.
func (g *Gateway) SetIdentity(ctx context.Context, name, email string) error {
	if _, err := g.output(ctx, g.config.Timeout, "config", "--local", "user.name", name); err != nil {
		return err
	}
	_, err := g.output(ctx, g.config.Timeout, "config", "--local", "user.email", email)
	return err
}

// output runs git in the repository with its own timeout derived from ctx.
func (g *Gateway) output(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g.logger.Debug("git %s", strings.Join(args, " "))

	allArgs := append([]string{"-C", g.config.RepoPath}, args...)
	return g.executor.ExecuteWithContextAndOutput(ctx, "git", allArgs...)
}

func withPathspecs(args, pathspecs []string) []string {
	if len(pathspecs) == 0 {
		return args
	}
	args = append(args, "--")
	return append(args, pathspecs...)
}
