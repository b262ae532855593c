// Package store persists board records in SQLite. Every write is guarded
// by a per-record version so stale writes are dropped, and every applied
// write is recorded in the event log within the same transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/events"
)

const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ','now')`

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db *db.DB

	Items   *ItemStore
	Buckets *BucketStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Items = &ItemStore{store: s}
	s.Buckets = &BucketStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx, ew *events.Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ew := events.NewWriter(s.db.DB)
	if err := fn(tx, ew); err != nil {
		return err
	}

	return tx.Commit()
}

// Load returns every live bucket and item, ordered by position and order.
func (s *Store) Load(ctx context.Context) ([]domain.Bucket, []domain.Item, error) {
	buckets, err := s.Buckets.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.Items.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return buckets, items, nil
}

// Replace wipes the board and writes buckets and items at version in a
// single transaction.
func (s *Store) Replace(ctx context.Context, buckets []domain.Bucket, items []domain.Item, version int64) error {
	return s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM buckets`); err != nil {
			return fmt.Errorf("failed to clear buckets: %w", err)
		}
		for _, b := range buckets {
			rec := domain.BucketRecord{Bucket: b, Version: version}
			if err := insertBucket(ctx, tx, rec); err != nil {
				return err
			}
			if err := ew.LogBucketWritten(tx, rec, true); err != nil {
				return err
			}
		}
		for _, it := range items {
			rec := domain.ItemRecord{Item: it, Version: version}
			if err := insertItem(ctx, tx, rec); err != nil {
				return err
			}
			if err := ew.LogItemWritten(tx, rec, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// existing reports the stored version of a row, if any.
func existing(ctx context.Context, tx *sql.Tx, table, rowID string) (version int64, deleted, found bool, err error) {
	var del int
	err = tx.QueryRowContext(ctx, "SELECT version, deleted FROM "+table+" WHERE id = ?", rowID).Scan(&version, &del)
	if err == sql.ErrNoRows {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to read %s %s: %w", table, rowID, err)
	}
	return version, del != 0, true, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func payloadArg(p json.RawMessage) interface{} {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

func payloadValue(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}
