// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logging, database opening and board
// session construction to reduce boilerplate across commands.
package appctx

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/config"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/logging"
	"github.com/lherron/boardq/internal/remote"
	"github.com/lherron/boardq/internal/session"
	"github.com/lherron/boardq/internal/syncer"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Log is the process logger
	Log *zap.Logger

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Local is the SQLite record store over DB
	Local *remote.SQLite

	// Sink receives scheduled writes: Local, or Local teed to the
	// configured remote
	Sink remote.Sink

	// Scheduler writes board changes to Sink (nil if NeedsBoard is false)
	Scheduler *syncer.Scheduler

	// Session owns the loaded board (nil if NeedsBoard is false)
	Session *session.Session

	mu       sync.Mutex
	failures []error
}

// ReportFailure collects persistence failures so Finish can return them.
func (a *App) ReportFailure(f *domain.PersistenceFailure) {
	a.Log.Warn("board write failed",
		zap.String("op", f.Op),
		zap.String("record", f.RecordID),
		zap.Int64("version", f.Version),
		zap.Error(f.Err))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, f)
}

// Finish waits for every scheduled write and returns the failures, if any.
func (a *App) Finish() error {
	if a.Scheduler != nil {
		a.Scheduler.Wait()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return multierr.Combine(a.failures...)
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Wait()
	}
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			a.Log.Warn("close sink", zap.Error(err))
		}
		a.Sink = nil
	}
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool

	// NeedsBoard loads the board into a session wired to the scheduler.
	// Implies NeedsDB.
	NeedsBoard bool

	// SkipMigrationCheck opens a database that may have pending
	// migrations. Used by init and migrate.
	SkipMigrationCheck bool
}

// DefaultOptions returns default options (DB required, no board).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// WithBoard returns options that load the board.
func WithBoard() Options {
	return Options{NeedsDB: true, NeedsBoard: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// Scheduled writes are awaited before the command returns and their
// failures are returned with the command's own error.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		err = fn(app, cmd, args)
		return multierr.Append(err, app.Finish())
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{Log: zap.NewNop()}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Override DB path from --db flag if provided
	if dbFlag := cmd.Flag("db"); dbFlag != nil {
		if dbPath := dbFlag.Value.String(); dbPath != "" {
			app.Config.DBPath = dbPath
		}
	}
	if levelFlag := cmd.Flag("log-level"); levelFlag != nil {
		if level := levelFlag.Value.String(); level != "" {
			app.Config.LogLevel = level
		}
	}

	logger, _, err := logging.New(app.Config.LogLevel, app.Config.LogFormat)
	if err != nil {
		return nil, err
	}
	app.Log = logger

	if opts.NeedsDB || opts.NeedsBoard {
		database, err := db.Open(app.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.DB = database

		if !opts.SkipMigrationCheck {
			if err := database.RequiresMigrationError(); err != nil {
				app.Close()
				return nil, err
			}
		}
		app.Local = remote.NewSQLite(database, app.Log)
	}

	if opts.NeedsBoard {
		if err := app.openBoard(cmd.Context()); err != nil {
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

func (a *App) openBoard(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a.Sink = a.Local
	if kind := a.Config.Remote.Kind; kind != "" && kind != remote.KindSQLite {
		mirror, err := remote.Open(ctx, a.Config.RemoteSettings(), a.DB, a.Log)
		if err != nil {
			return fmt.Errorf("failed to open %s remote: %w", kind, err)
		}
		a.Sink = remote.NewTee(a.Local, mirror)
	}

	seed, err := a.Local.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}
	if len(seed.Buckets) == 0 {
		return fmt.Errorf("board is empty. Run 'boardq init' first")
	}

	schedOpts := []syncer.Option{
		syncer.WithLogger(a.Log),
		syncer.WithReporter(a),
		syncer.WithMaxConcurrency(a.Config.Sync.MaxConcurrency),
	}
	if a.Config.Sync.WriteTimeout > 0 {
		schedOpts = append(schedOpts, syncer.WithWriteTimeout(a.Config.Sync.WriteTimeout))
	}
	a.Scheduler = syncer.New(a.Sink, schedOpts...)

	sess, err := session.New(seed,
		session.WithLogger(a.Log),
		session.WithScheduler(a.Scheduler),
		session.WithCancelPolicy(a.Config.CancelPolicy()),
		session.WithPager(a.Config.PagerSettings(), 0),
	)
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}
	a.Session = sess
	return nil
}
