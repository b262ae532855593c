package appctx

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/remote"
	"github.com/lherron/boardq/internal/testutil"
)

func testCommand(t *testing.T, dbPath string) *cobra.Command {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BOARDQ_DB_PATH", "")
	t.Setenv("BOARDQ_REMOTE_KIND", "")

	cmd := &cobra.Command{}
	cmd.Flags().String("db", "", "Database path")
	cmd.Flags().String("log-level", "", "Log level")
	if err := cmd.Flags().Set("db", dbPath); err != nil {
		t.Fatal(err)
	}
	cmd.SetContext(context.Background())
	return cmd
}

func seedBoard(t *testing.T, database *db.DB) {
	t.Helper()
	var seed board.Seed
	for _, col := range adapter.DefaultColumns()[:2] {
		b, err := adapter.ToBucket(col)
		if err != nil {
			t.Fatal(err)
		}
		seed.Buckets = append(seed.Buckets, b)
	}
	if err := remote.NewSQLite(database, nil).Replace(context.Background(), seed, 1); err != nil {
		t.Fatalf("seed board: %v", err)
	}
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	cmd := testCommand(t, filepath.Join(t.TempDir(), "test.db"))

	app, err := Bootstrap(cmd, Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil {
		t.Error("Config should not be nil")
	}
	if app.DB != nil {
		t.Error("DB should be nil when NeedsDB is false")
	}
	if app.Session != nil {
		t.Error("Session should be nil when NeedsBoard is false")
	}
}

func TestBootstrap_DBFlagOverridesConfig(t *testing.T) {
	database := testutil.TempBoardDB(t)
	cmd := testCommand(t, database.Path())
	t.Setenv("BOARDQ_DB_PATH", filepath.Join(t.TempDir(), "other.db"))

	app, err := Bootstrap(cmd, DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config.DBPath != database.Path() {
		t.Errorf("DBPath = %q, want --db value %q", app.Config.DBPath, database.Path())
	}
	if app.DB == nil || app.Local == nil {
		t.Fatal("DB and Local should be set when NeedsDB is true")
	}
}

func TestBootstrap_RequiresMigration(t *testing.T) {
	cmd := testCommand(t, filepath.Join(t.TempDir(), "fresh.db"))

	if _, err := Bootstrap(cmd, DefaultOptions()); err == nil || !strings.Contains(err.Error(), "requires migration") {
		t.Fatalf("expected migration error, got %v", err)
	}

	app, err := Bootstrap(cmd, Options{NeedsDB: true, SkipMigrationCheck: true})
	if err != nil {
		t.Fatalf("Bootstrap with SkipMigrationCheck failed: %v", err)
	}
	app.Close()
}

func TestBootstrap_EmptyBoard(t *testing.T) {
	database := testutil.TempBoardDB(t)
	cmd := testCommand(t, database.Path())

	_, err := Bootstrap(cmd, WithBoard())
	if err == nil || !strings.Contains(err.Error(), "boardq init") {
		t.Fatalf("expected empty board error, got %v", err)
	}
}

func TestWithApp_PersistsBoardChanges(t *testing.T) {
	database := testutil.TempBoardDB(t)
	seedBoard(t, database)
	cmd := testCommand(t, database.Path())

	run := WithApp(WithBoard(), func(app *App, cmd *cobra.Command, args []string) error {
		if app.Scheduler == nil || app.Session == nil {
			t.Fatal("board options should wire a scheduler and a session")
		}
		_, err := app.Session.Apply(board.MoveBucket{BucketID: "col_2", TargetPosition: 0})
		return err
	})
	if err := run(cmd, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	seed, err := remote.NewSQLite(database, nil).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(seed.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(seed.Buckets))
	}
	for _, b := range seed.Buckets {
		want := map[string]int{"col_2": 0, "col_1": 1}[b.ID]
		if b.Position != want {
			t.Errorf("%s position = %d, want %d", b.ID, b.Position, want)
		}
	}
}

func TestFinish_ReturnsReportedFailures(t *testing.T) {
	cmd := testCommand(t, filepath.Join(t.TempDir(), "test.db"))
	app, err := Bootstrap(cmd, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if err := app.Finish(); err != nil {
		t.Fatalf("Finish with no failures = %v", err)
	}

	boom := errors.New("boom")
	app.ReportFailure(&domain.PersistenceFailure{Op: "upsert_item_order", RecordID: "c1", Version: 3, Err: boom})
	app.ReportFailure(&domain.PersistenceFailure{Op: "delete_item", RecordID: "c2", Version: 4, Err: boom})

	err = app.Finish()
	if err == nil {
		t.Fatal("Finish should return the reported failures")
	}
	var pf *domain.PersistenceFailure
	if !errors.As(err, &pf) {
		t.Errorf("expected a PersistenceFailure in %v", err)
	}
	if !strings.Contains(err.Error(), "c1") || !strings.Contains(err.Error(), "c2") {
		t.Errorf("both failures should be reported: %v", err)
	}
}
