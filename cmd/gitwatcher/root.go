package main

import (
	"github.com/spf13/cobra"
)

// newRootCommand builds the command tree around app. Flags are layered onto
// app.Config before any command runs.
func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitwatcher",
		Short: "Auto-commit and push changes to a git working tree",
		Long: `gitwatcher watches the top level of a git working tree for files matching
a set of patterns, commits and pushes them shortly after they change and
sends the resulting diff to a Telegram chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Config.Load(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context())
		},
	}
	app.Config.SetupFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "commit",
		Short: "Commit and push pending changes once, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.CommitOnce(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No configuration is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowVersion()
		},
	})

	return root
}
