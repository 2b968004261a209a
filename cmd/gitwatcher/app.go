package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bashhack/gitwatcher/internal/commit"
	"github.com/bashhack/gitwatcher/internal/config"
	"github.com/bashhack/gitwatcher/internal/debounce"
	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/filter"
	"github.com/bashhack/gitwatcher/internal/git"
	"github.com/bashhack/gitwatcher/internal/lock"
	"github.com/bashhack/gitwatcher/internal/logger"
	"github.com/bashhack/gitwatcher/internal/notify"
	"github.com/bashhack/gitwatcher/internal/watch"
)

// Committer runs commit attempts
type Committer interface {
	watch.Committer
	Shutdown()
	PrintSummary()
}

// Notifier delivers commit diffs in the background
type Notifier interface {
	Dispatch(diff string)
	Close(ctx context.Context) error
	Stats() notify.Stats
}

// Locker manages file locking
type Locker interface {
	Acquire() error
	Release() error
}

// AppOptions contains app configuration and dependencies.
// Any optional dependency left nil is built from Config during Initialize.
type AppOptions struct {
	// Config holds the application configuration settings (required).
	// The application will panic if this field is nil.
	Config *config.Config

	// Optional components

	// Logger provides logging functionality (optional, a default will be created if nil).
	Logger logger.Logger

	// Locker prevents two gitwatcher processes from watching one directory
	// (optional, a default will be created if nil).
	Locker Locker

	// Transport carries notification requests (optional, defaults to HTTP).
	Transport notify.Transport

	// I/O dependencies

	// Stdout is the writer for standard output (optional, defaults to os.Stdout).
	Stdout io.Writer

	// Stderr is the writer for error output (optional, defaults to os.Stderr).
	Stderr io.Writer

	// System dependencies

	// Exit is the function to terminate the application (optional, defaults to os.Exit).
	Exit func(code int)

	// ExecLookPath is used to find executables in PATH (optional, defaults to exec.LookPath).
	ExecLookPath func(file string) (string, error)

	// OpenRepository validates the watched directory (optional, defaults to git.OpenRepository).
	OpenRepository func(path string) (*git.Repository, error)
}

// App is the main gitwatcher application.
// It wires the components together and owns the process lifecycle.
type App struct {
	Config *config.Config
	Logger logger.Logger
	Locker Locker

	Repository *git.Repository
	Gateway    *git.Gateway
	Filter     *filter.Filter
	Notifier   Notifier
	Committer  Committer

	// Strategy is set once Run has chosen a watch loop.
	Strategy watch.Strategy

	Stdout io.Writer
	Stderr io.Writer

	transport      notify.Transport
	exit           func(code int)
	execLookPath   func(file string) (string, error)
	openRepository func(path string) (*git.Repository, error)

	initialized bool

	// closeMu serializes Close between Run and a forced exit.
	closeMu sync.Mutex
}

// NewDefaultApp creates an App with standard dependencies.
func NewDefaultApp(versionInfo config.VersionInfo) *App {
	cfg := config.New()
	cfg.VersionInfo = versionInfo

	return NewApp(AppOptions{
		Config:         cfg,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Exit:           os.Exit,
		ExecLookPath:   exec.LookPath,
		OpenRepository: git.OpenRepository,
	})
}

// NewApp creates an App with custom dependencies specified in opts.
//
// Panics:
//   - If opts.Config is nil
func NewApp(opts AppOptions) *App {
	if opts.Config == nil {
		panic("Config is required in AppOptions")
	}

	app := &App{
		Config:         opts.Config,
		Logger:         opts.Logger,
		Locker:         opts.Locker,
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
		transport:      opts.Transport,
		exit:           opts.Exit,
		execLookPath:   opts.ExecLookPath,
		openRepository: opts.OpenRepository,
	}

	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.exit == nil {
		app.exit = os.Exit
	}
	if app.execLookPath == nil {
		app.execLookPath = exec.LookPath
	}
	if app.openRepository == nil {
		app.openRepository = git.OpenRepository
	}
	if app.transport == nil {
		app.transport = notify.NewHTTPTransport()
	}

	return app
}

// Initialize validates the configuration and the watched directory, then
// builds the components not provided during construction. Every failure here
// is a startup failure.
func (a *App) Initialize() error {
	if a.initialized {
		return nil
	}

	if err := a.Config.Finalize(); err != nil {
		if watchErrors.Is(err, watchErrors.ErrInvalidConfiguration) {
			return err
		}
		return watchErrors.Wrap(watchErrors.ErrInvalidConfiguration, err.Error())
	}

	if a.Logger == nil {
		level, err := logger.ParseLevel(a.Config.LogLevel)
		if err != nil {
			return watchErrors.Wrap(watchErrors.ErrInvalidConfiguration, err.Error())
		}
		a.Logger = logger.NewWithOptions(logger.Options{
			LogFile: a.Config.LogFile,
			Level:   level,
			Verbose: a.Config.Verbose,
			Stdout:  a.Stdout,
			Stderr:  a.Stderr,
		})
	}

	if err := a.checkRequiredCommands(); err != nil {
		return err
	}

	repo, err := a.openRepository(a.Config.WatchedDir)
	if err != nil {
		return err
	}
	a.Repository = repo

	a.Gateway = git.NewGateway(git.GatewayConfig{
		RepoPath:    repo.Root,
		Timeout:     a.Config.GitTimeout,
		PushTimeout: a.Config.PushTimeout,
	}, a.Logger)

	f, err := filter.New(repo.Root, a.Config.Patterns, a.Logger)
	if err != nil {
		return err
	}
	a.Filter = f

	if a.Notifier == nil {
		if a.Config.NoNotify {
			a.Notifier = notify.Nop{}
		} else {
			a.Notifier = notify.New(notify.Config{
				APIBaseURL: a.Config.APIBaseURL,
				Token:      a.Config.BotToken,
				ChatID:     a.Config.ChatID,
				ChunkSize:  a.Config.ChunkSize,
				Timeout:    a.Config.NotifyTimeout,
			}, a.transport, a.Logger)
		}
	}

	if a.Committer == nil {
		a.Committer = commit.New(a.Gateway, a.Filter, a.Notifier, a.Logger, commit.Options{
			CommitPrefix:  a.Config.CommitPrefix,
			IdentityName:  a.Config.IdentityName,
			IdentityEmail: a.Config.IdentityEmail,
		})
	}

	if a.Locker == nil {
		locker, err := lock.New(repo.Root)
		if err != nil {
			return watchErrors.Wrap(err, "failed to initialize lock")
		}
		a.Locker = locker
	}

	a.initialized = true
	return nil
}

// start takes the lock and confirms git can read the repository. It is
// shared by the watch loop and the one-shot commit.
func (a *App) start(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	if err := a.Locker.Acquire(); err != nil {
		if watchErrors.Is(err, watchErrors.ErrAlreadyRunning) {
			return err
		}
		return watchErrors.Wrap(watchErrors.ErrLockAcquisitionFailure, err.Error())
	}

	if _, err := a.Gateway.Status(ctx); err != nil {
		return watchErrors.Wrap(err, "git status failed in watched directory")
	}
	a.Logger.Info("Git repository verified")
	return nil
}

// Run watches the repository until ctx is cancelled or the event source gives
// up. A commit in progress when ctx is cancelled is allowed to finish.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Error during cleanup: %v\n", err)
		}
	}()

	if err := a.start(ctx); err != nil {
		return err
	}

	a.displayStartupInfo()
	a.Committer.AttemptCommit(ctx, commit.TriggerStartup)

	var coalescer *debounce.Coalescer
	if a.Config.UsePolling {
		a.Strategy = watch.NewPoller(a.Committer, a.Config.PollInterval, a.Logger)
	} else {
		coalescer = debounce.New(a.Config.QuietInterval, func() {
			a.Committer.AttemptCommit(ctx, commit.TriggerDebounce)
		})
		root := a.Repository.Root
		a.Strategy = watch.NewSupervisor(watch.SupervisorConfig{
			HealthCheckInterval: a.Config.HealthCheckInterval,
			StaleAfter:          a.Config.StaleAfter,
			MaxRestarts:         a.Config.MaxRestarts,
		}, func() watch.Source {
			return watch.NewFSNotifySource(root, a.Filter, coalescer, a.Logger)
		}, coalescer, a.Committer, a.Logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Strategy.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if coalescer != nil {
			coalescer.Stop()
		}
		return nil
	})
	err := g.Wait()

	a.shutdown()
	a.PrintSummary()
	return err
}

// CommitOnce makes a single commit attempt and waits for its notification.
func (a *App) CommitOnce(ctx context.Context) error {
	defer func() {
		if err := a.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Error during cleanup: %v\n", err)
		}
	}()

	if err := a.start(ctx); err != nil {
		return err
	}

	result := a.Committer.AttemptCommit(ctx, commit.TriggerManual)
	a.shutdown()

	switch {
	case !result.Attempted:
		a.Logger.InfoToUser("No relevant changes to commit")
		return nil
	case !result.Committed:
		return watchErrors.Wrap(watchErrors.ErrGitOperationFailed, "changes were not committed and pushed, see the log for details")
	default:
		return nil
	}
}

// shutdown lets an in-flight commit finish and flushes notifications.
func (a *App) shutdown() {
	a.Committer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*a.Config.NotifyTimeout)
	defer cancel()
	if err := a.Notifier.Close(ctx); err != nil {
		a.Logger.Warning("Notifications still pending at exit: %v", err)
	}
}

func (a *App) displayStartupInfo() {
	strategy := "polling every " + a.Config.PollInterval.String()
	if !a.Config.UsePolling {
		strategy = fmt.Sprintf("filesystem events (quiet %s, health check %s)",
			a.Config.QuietInterval, a.Config.HealthCheckInterval)
	}

	a.Logger.InfoToUser("Watching %s", a.Repository.Root)
	if a.Repository.Branch != "" {
		a.Logger.InfoToUser("Branch: %s", a.Repository.Branch)
	}
	if a.Repository.Remote == "" {
		a.Logger.WarningToUser("No origin remote configured, pushes will fail")
	}
	a.Logger.InfoToUser("Patterns: %s", strings.Join(a.Config.Patterns, ", "))
	a.Logger.InfoToUser("Strategy: %s", strategy)
	if a.Config.NoNotify {
		a.Logger.InfoToUser("Notifications disabled")
	}
	a.Logger.Info("Log file: %s", a.Config.LogFile)
}

// PrintSummary prints the session summary
func (a *App) PrintSummary() {
	if a.Committer == nil {
		return
	}
	a.Committer.PrintSummary()

	if a.Notifier != nil && !a.Config.NoNotify {
		stats := a.Notifier.Stats()
		a.Logger.StatusMessage("📨 Notification chunks sent: %d, failed: %d", stats.Sent, stats.Failed)
	}
	if sup, ok := a.Strategy.(*watch.Supervisor); ok {
		a.Logger.StatusMessage("👀 Event watcher: %s", sup.State())
	}
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	_, _ = fmt.Fprintf(a.Stdout, "gitwatcher %s (%s) built on %s\n",
		a.Config.VersionInfo.Version,
		a.Config.VersionInfo.Commit,
		a.Config.VersionInfo.Date)
}

// checkRequiredCommands verifies git is available in PATH
func (a *App) checkRequiredCommands() error {
	if _, err := a.execLookPath("git"); err != nil {
		return fmt.Errorf("git is not found in PATH")
	}
	return nil
}

// Close releases resources held by the App
func (a *App) Close() error {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()

	var errs []error

	if a.Locker != nil {
		if err := a.Locker.Release(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Failed to release lock during cleanup: %v", err)
			} else {
				_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to release lock during cleanup: %v\n", err)
			}
			errs = append(errs, err)
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to close logger: %v\n", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return watchErrors.Join(errs...)
	}
	return nil
}

// CleanupOnSignal releases the lock and shows a summary when the process is
// forced to exit.
func (a *App) CleanupOnSignal() {
	a.PrintSummary()
	if err := a.Close(); err != nil {
		_, _ = fmt.Fprintf(a.Stderr, "❌ Error during cleanup: %v\n", err)
	}
}
