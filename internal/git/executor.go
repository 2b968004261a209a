package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
)

// CommandExecutor runs external commands. It is the seam used to fake git in
// tests that need failures a real repository cannot easily produce.
type CommandExecutor interface {
	// ExecuteWithContext runs a command and reports only success or failure.
	ExecuteWithContext(ctx context.Context, name string, args ...string) error

	// ExecuteWithContextAndOutput runs a command and returns its stdout.
	ExecuteWithContextAndOutput(ctx context.Context, name string, args ...string) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// commandEnv pins the locale so git's messages can be matched, and stops git
// from prompting for credentials on a terminal nobody is watching.
var commandEnv = []string{"LC_ALL=C", "GIT_TERMINAL_PROMPT=0"}

// waitDelay bounds how long Run waits for output pipes after the process
// group has been killed.
const waitDelay = 2 * time.Second

// ExecuteWithContext implements CommandExecutor.ExecuteWithContext
func (e *ExecExecutor) ExecuteWithContext(ctx context.Context, name string, args ...string) error {
	_, err := e.ExecuteWithContextAndOutput(ctx, name, args...)
	return err
}

// ExecuteWithContextAndOutput implements CommandExecutor.ExecuteWithContextAndOutput.
// A failed command yields a *errors.GitError holding stderr followed by stdout
// and the exit code, wrapping ErrGitOperationFailed.
func (e *ExecExecutor) ExecuteWithContextAndOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), commandEnv...)

	// git push starts ssh and credential helpers that inherit our pipes. They
	// share git's process group and die with it when ctx expires.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	cause := err
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause = ctxErr
	}

	gitErr := watchErrors.NewGitError(operationOf(args), args,
		watchErrors.Wrap(watchErrors.ErrGitOperationFailed, cause.Error()),
		joinOutput(stderr.String(), stdout.String()))

	var exitErr *exec.ExitError
	if watchErrors.As(err, &exitErr) {
		gitErr.ExitCode = exitErr.ExitCode()
	}
	return stdout.String(), gitErr
}

// operationOf returns the git subcommand, skipping "-C <dir>", "-c <k=v>"
// and other leading options.
func operationOf(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-C" || args[i] == "-c" {
			i++
			continue
		}
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return "command"
}

func joinOutput(stderr, stdout string) string {
	stderr = strings.TrimSpace(stderr)
	stdout = strings.TrimSpace(stdout)
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	}
	return stderr + "\n" + stdout
}
