package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/events"
)

// BucketStore handles bucket persistence.
type BucketStore struct {
	store *Store
}

// UpsertPosition writes a bucket's position. Returns false when a newer
// version is already stored.
func (bs *BucketStore) UpsertPosition(ctx context.Context, rec domain.BucketPosition) (bool, error) {
	var applied bool
	err := bs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO buckets (id, position, version) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				position = excluded.position,
				version = excluded.version,
				deleted = 0,
				updated_at = `+nowExpr+`
			WHERE excluded.version > buckets.version
		`, rec.ID, rec.Position, rec.Version)
		if err != nil {
			return fmt.Errorf("failed to upsert bucket position %s: %w", rec.ID, err)
		}
		if applied, err = affected(res); err != nil || !applied {
			return err
		}
		return ew.LogBucketMoved(tx, rec)
	})
	return applied, err
}

// Upsert writes a full bucket record.
func (bs *BucketStore) Upsert(ctx context.Context, rec domain.BucketRecord) (bool, error) {
	var applied bool
	err := bs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		current, deleted, found, err := existing(ctx, tx, "buckets", rec.ID)
		if err != nil {
			return err
		}
		if found && current >= rec.Version {
			return nil
		}
		if err := insertBucket(ctx, tx, rec); err != nil {
			return err
		}
		applied = true
		return ew.LogBucketWritten(tx, rec, !found || deleted)
	})
	return applied, err
}

// Delete tombstones a bucket.
func (bs *BucketStore) Delete(ctx context.Context, bucketID string, version int64) (bool, error) {
	var applied bool
	err := bs.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO buckets (id, position, version, deleted) VALUES (?, 0, ?, 1)
			ON CONFLICT(id) DO UPDATE SET
				deleted = 1,
				version = excluded.version,
				updated_at = `+nowExpr+`
			WHERE excluded.version > buckets.version
		`, bucketID, version)
		if err != nil {
			return fmt.Errorf("failed to delete bucket %s: %w", bucketID, err)
		}
		if applied, err = affected(res); err != nil || !applied {
			return err
		}
		return ew.LogBucketDeleted(tx, bucketID, version)
	})
	return applied, err
}

// List returns every live bucket ordered by position.
func (bs *BucketStore) List(ctx context.Context) ([]domain.Bucket, error) {
	rows, err := bs.store.db.QueryContext(ctx, `
		SELECT id, position, payload FROM buckets
		WHERE deleted = 0
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []domain.Bucket
	for rows.Next() {
		var b domain.Bucket
		var payload sql.NullString
		if err := rows.Scan(&b.ID, &b.Position, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		b.Payload = payloadValue(payload)
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}
	return buckets, nil
}

func insertBucket(ctx context.Context, tx *sql.Tx, rec domain.BucketRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO buckets (id, position, payload, version) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			payload = excluded.payload,
			version = excluded.version,
			deleted = 0,
			updated_at = `+nowExpr+`
	`, rec.ID, rec.Position, payloadArg(rec.Payload), rec.Version)
	if err != nil {
		return fmt.Errorf("failed to write bucket %s: %w", rec.ID, err)
	}
	return nil
}
