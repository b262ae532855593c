// Package db opens the local board database and applies its embedded
// schema migrations.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// Open opens the board database at path, creating its directory.
func Open(path string) (*DB, error) {
	dsn := path + "?_txlock=immediate&_busy_timeout=5000"
	if path == MemoryPath {
		dsn = "file::memory:?_txlock=immediate"
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// One connection, one in-memory database.
		conn.SetMaxOpenConns(1)
	} else {
		for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"} {
			if _, err := conn.Exec(pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	return &DB{DB: conn, path: path}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// MigrationState lists embedded migrations by whether they ran.
type MigrationState struct {
	Applied []string
	Pending []string
}

// Current is the last applied migration, or "none".
func (s MigrationState) Current() string {
	if len(s.Applied) == 0 {
		return "none"
	}
	return s.Applied[len(s.Applied)-1]
}

// MigrationStatus compares the embedded migrations with schema_migrations.
func (db *DB) MigrationStatus() (MigrationState, error) {
	all, err := migrationFiles()
	if err != nil {
		return MigrationState{}, err
	}

	var tables int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`).Scan(&tables); err != nil {
		return MigrationState{}, fmt.Errorf("failed to check for schema_migrations table: %w", err)
	}
	if tables == 0 {
		return MigrationState{Pending: all}, nil
	}

	done := map[string]bool{}
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return MigrationState{}, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return MigrationState{}, fmt.Errorf("failed to scan migration version: %w", err)
		}
		done[version] = true
	}
	if err := rows.Err(); err != nil {
		return MigrationState{}, fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	var state MigrationState
	for _, m := range all {
		if done[m] {
			state.Applied = append(state.Applied, m)
		} else {
			state.Pending = append(state.Pending, m)
		}
	}
	return state, nil
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	_, err := db.MigrateWithInfo()
	return err
}

// MigrateWithInfo applies pending migrations in order and returns the
// ones it applied. Each migration commits on its own, so a failure keeps
// the earlier ones.
func (db *DB) MigrateWithInfo() ([]string, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	state, err := db.MigrationStatus()
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, m := range state.Pending {
		if err := db.apply(m); err != nil {
			return applied, err
		}
		applied = append(applied, m)
	}
	return applied, nil
}

func (db *DB) apply(migration string) error {
	content, err := migrationsFS.ReadFile("migrations/" + migration)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", migration, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", migration, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", migration, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, migration); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration, err)
	}
	return tx.Commit()
}

// RequiresMigrationError returns nil when the schema is current, and
// otherwise an error naming the database, its schema version and the
// command that fixes it.
func (db *DB) RequiresMigrationError() error {
	state, err := db.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if len(state.Pending) == 0 {
		return nil
	}
	return fmt.Errorf("database at %s (version: %s) requires migration: %d pending migration(s). Run 'boardq migrate' to update",
		db.path, state.Current(), len(state.Pending))
}

func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)
	return migrations, nil
}
