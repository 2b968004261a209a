package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bashhack/gitwatcher/internal/config"
)

// Version information - injected at build time
var (
	version   = "dev"
	gitCommit = "unknown"
	date      = "unknown"
)

// gracePeriod is how long a shutdown may take before it is forced.
const gracePeriod = 30 * time.Second

func main() {
	app := NewDefaultApp(config.VersionInfo{
		Version: version,
		Commit:  gitCommit,
		Date:    date,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-c
		_, _ = fmt.Fprintf(app.Stderr, "\nReceived signal %v, finishing in-flight work...\n", sig)
		cancel()

		// A second signal, or a shutdown that hangs, forces exit.
		select {
		case sig = <-c:
			_, _ = fmt.Fprintf(app.Stderr, "Received signal %v again, exiting now\n", sig)
		case <-time.After(gracePeriod):
			_, _ = fmt.Fprintf(app.Stderr, "Shutdown took longer than %s, exiting now\n", gracePeriod)
		}
		app.CleanupOnSignal()
		app.exit(130)
	}()

	if err := newRootCommand(app).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(app.Stderr, "❌ Error: %v\n", err)
		app.exit(1)
	}
}
