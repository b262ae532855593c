package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/db"
)

type migrateOptions struct {
	dryRun bool
	status bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run any pending database migrations",
		Long: `Migrate applies any pending SQL migrations to the database.

Migrations are embedded in the boardq binary and tracked via the
schema_migrations table. Each migration file (e.g., 000001_baseline.sql)
is applied exactly once, so the command is safe to run repeatedly.

Use --dry-run to see which migrations would be applied without running them.
Use --status to show the current migration status.`,
		RunE: appctx.WithApp(appctx.Options{NeedsDB: true, SkipMigrationCheck: true}, func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return runMigrate(app, cmd.OutOrStdout(), opts)
		}),
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show which migrations would be applied without running them")
	cmd.Flags().BoolVar(&opts.status, "status", false, "Show current migration status")

	return cmd
}

func runMigrate(app *appctx.App, out io.Writer, opts *migrateOptions) error {
	if opts.status {
		return showMigrationStatus(app.DB, out)
	}
	if opts.dryRun {
		return showPendingMigrations(app.DB, out)
	}

	applied, err := app.DB.MigrateWithInfo()
	if err != nil {
		return exitError(ExitFailure, fmt.Errorf("failed to run migrations: %w", err))
	}

	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
		return nil
	}
	for _, m := range applied {
		fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
	}
	fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
	return nil
}

func showMigrationStatus(database *db.DB, out io.Writer) error {
	state, err := database.MigrationStatus()
	if err != nil {
		return exitError(ExitFailure, fmt.Errorf("failed to get migration status: %w", err))
	}
	applied, pending := state.Applied, state.Pending

	if len(applied) > 0 {
		fmt.Fprintln(out, "Applied migrations:")
		for _, m := range applied {
			fmt.Fprintf(out, "  ✓ %s\n", m)
		}
	}
	if len(pending) > 0 {
		if len(applied) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, "Pending migrations:")
		for _, m := range pending {
			fmt.Fprintf(out, "  ○ %s\n", m)
		}
	}
	return nil
}

func showPendingMigrations(database *db.DB, out io.Writer) error {
	state, err := database.MigrationStatus()
	if err != nil {
		return exitError(ExitFailure, fmt.Errorf("failed to get migration status: %w", err))
	}
	pending := state.Pending

	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending migrations. Database is up to date.")
		return nil
	}
	fmt.Fprintln(out, "Pending migrations (would be applied):")
	for _, m := range pending {
		fmt.Fprintf(out, "  ○ %s\n", m)
	}
	fmt.Fprintf(out, "\nTotal: %d migration(s) would be applied.\n", len(pending))
	return nil
}
