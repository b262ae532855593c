package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/remote"
	"github.com/lherron/boardq/internal/snapshot"
	"github.com/lherron/boardq/internal/syncer"
)

type initOptions struct {
	seedPath string
	force    bool
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and seed the board",
		Long: `Init applies pending migrations and seeds an empty board with the
default columns (Lead, Em contato, Proposta, Fechado), the labels listed
in default_buckets, or the contents of a seed file.

Seed files hold {"buckets": [...], "items": [...]} (or "columns" and
"clients"). Items may use either the English or the Portuguese client
fields; an export from 'boardq export' is also a valid seed.

An existing board is left alone unless --force is given. When a remote
is configured the seeded board is pushed to it as well.`,
		RunE: appctx.WithApp(appctx.Options{NeedsDB: true, SkipMigrationCheck: true}, func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return runInit(app, cmd, opts)
		}),
	}

	cmd.Flags().StringVar(&opts.seedPath, "seed", "", "Seed the board from a JSON file")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Replace an existing board")

	return cmd
}

func runInit(app *appctx.App, cmd *cobra.Command, opts *initOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	applied, err := app.DB.MigrateWithInfo()
	if err != nil {
		return exitError(ExitFailure, fmt.Errorf("failed to run migrations: %w", err))
	}
	for _, m := range applied {
		fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
	}

	existing, err := app.Local.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read board: %w", err)
	}
	if len(existing.Buckets) > 0 && !opts.force {
		fmt.Fprintf(out, "Board already initialized at %s (%d buckets, %d items). Use --force to replace it.\n",
			app.DB.Path(), len(existing.Buckets), len(existing.Items))
		return nil
	}

	seed, err := initialSeed(opts.seedPath, app.Config.DefaultBuckets)
	if err != nil {
		return err
	}
	snap, err := board.Normalize(seed)
	if err != nil {
		return exitError(ExitUsage, fmt.Errorf("invalid seed: %w", err))
	}

	version := time.Now().UnixNano()
	normalized := board.Seed{Buckets: snap.Buckets(), Items: snap.Items()}
	if err := app.Local.Replace(ctx, normalized, version); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}

	if kind := app.Config.Remote.Kind; kind != "" && kind != remote.KindSQLite {
		if err := pushToRemote(ctx, app, snap, version); err != nil {
			return err
		}
		fmt.Fprintf(out, "Pushed board to %s remote\n", kind)
	}

	fmt.Fprintf(out, "Initialized board at %s: %d buckets, %d items\n", app.DB.Path(), snap.BucketCount(), snap.Len())
	return nil
}

func initialSeed(seedPath string, labels []string) (board.Seed, error) {
	if seedPath != "" {
		f, err := os.Open(seedPath)
		if err != nil {
			return board.Seed{}, exitError(ExitUsage, fmt.Errorf("failed to open seed: %w", err))
		}
		defer f.Close()
		seed, err := snapshot.Decode(f, nil)
		if err != nil {
			return board.Seed{}, exitError(ExitUsage, fmt.Errorf("invalid seed %s: %w", seedPath, err))
		}
		return seed, nil
	}

	columns := adapter.DefaultColumns()
	if len(labels) > 0 {
		columns = make([]adapter.ColumnRecord, len(labels))
		for i, label := range labels {
			columns[i] = adapter.ColumnRecord{ID: fmt.Sprintf("col_%d", i+1), Label: label, Position: i}
		}
	}
	var seed board.Seed
	for _, col := range columns {
		b, err := adapter.ToBucket(col)
		if err != nil {
			return board.Seed{}, exitError(ExitUsage, err)
		}
		seed.Buckets = append(seed.Buckets, b)
	}
	return seed, nil
}

// pushToRemote writes every record of snap to the configured remote with
// one version, so later stamped writes supersede it.
func pushToRemote(ctx context.Context, app *appctx.App, snap *board.Snapshot, version int64) error {
	sink, err := remote.Open(ctx, app.Config.RemoteSettings(), app.DB, app.Log)
	if err != nil {
		return fmt.Errorf("failed to open %s remote: %w", app.Config.Remote.Kind, err)
	}
	defer sink.Close()

	records, _ := sink.(syncer.RecordSink)
	var errs []error
	for _, b := range snap.Buckets() {
		if records != nil {
			err = records.UpsertBucket(ctx, domain.BucketRecord{Bucket: b, Version: version})
		} else {
			err = sink.UpsertBucketPosition(ctx, b.PositionTuple(version))
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, it := range snap.Items() {
		if records != nil {
			err = records.UpsertItem(ctx, domain.ItemRecord{Item: it, Version: version})
		} else {
			err = sink.UpsertItemOrder(ctx, it.OrderTuple(version))
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		app.Log.Warn("remote push incomplete", zap.Int("failed", len(errs)))
		return fmt.Errorf("failed to push %d record(s) to remote: %w", len(errs), multierr.Combine(errs...))
	}
	return nil
}
