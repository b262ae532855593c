package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the boardq CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boardq",
		Short: "Kanban board of clients with ordered columns",
		Long: `boardq keeps a board of client cards in ordered columns on a SQLite
backend. Every change is written back in the background as versioned
records, optionally mirrored to Postgres, Redis or an HTTP endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("db", "", "Path to database file (overrides BOARDQ_DB_PATH)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides BOARDQ_LOG_LEVEL)")

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewLsCommand())
	cmd.AddCommand(NewAddCommand())
	cmd.AddCommand(NewMvCommand())
	cmd.AddCommand(NewReorderCommand())
	cmd.AddCommand(NewRmCommand())
	cmd.AddCommand(NewBucketCommand())
	cmd.AddCommand(NewReplayCommand())
	cmd.AddCommand(NewExportCommand())
	cmd.AddCommand(NewLogCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
