// Package git is gitwatcher's gateway to version control.
//
// Gateway shells out to the git binary through a CommandExecutor. Every call
// carries its own timeout (a longer one for push) and reports failures as
// *errors.GitError values holding the exit code and captured output, so a
// non-zero exit is data for the caller rather than a crash.
//
// OpenRepository uses go-git to validate the watch root at startup: it must
// be the top level of a non-bare working tree. It also reports the checked
// out branch and origin URL for the startup banner.
//
// # Usage
//
//	repo, err := git.OpenRepository(dir)
//	if err != nil {
//	    return err
//	}
//	gw := git.NewGateway(git.GatewayConfig{
//	    RepoPath:    repo.Root,
//	    Timeout:     30 * time.Second,
//	    PushTimeout: 120 * time.Second,
//	}, log)
//	entries, err := gw.Status(ctx)
package git
