package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/events"
)

// ItemStore handles item persistence.
type ItemStore struct {
	store *Store
}

// UpsertOrder writes an item's placement. Returns false when a newer
// version is already stored.
func (is *ItemStore) UpsertOrder(ctx context.Context, rec domain.ItemOrder) (bool, error) {
	var applied bool
	err := is.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, bucket_id, ord, version) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				bucket_id = excluded.bucket_id,
				ord = excluded.ord,
				version = excluded.version,
				deleted = 0,
				updated_at = `+nowExpr+`
			WHERE excluded.version > items.version
		`, rec.ID, rec.BucketID, rec.Order, rec.Version)
		if err != nil {
			return fmt.Errorf("failed to upsert item order %s: %w", rec.ID, err)
		}
		if applied, err = affected(res); err != nil || !applied {
			return err
		}
		return ew.LogItemMoved(tx, rec)
	})
	return applied, err
}

// Upsert writes a full item record. Returns false when a newer version is
// already stored.
func (is *ItemStore) Upsert(ctx context.Context, rec domain.ItemRecord) (bool, error) {
	var applied bool
	err := is.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		current, deleted, found, err := existing(ctx, tx, "items", rec.ID)
		if err != nil {
			return err
		}
		if found && current >= rec.Version {
			return nil
		}
		if err := insertItem(ctx, tx, rec); err != nil {
			return err
		}
		applied = true
		return ew.LogItemWritten(tx, rec, !found || deleted)
	})
	return applied, err
}

// Delete tombstones an item. A tombstone is written even for unknown ids
// so a delayed upsert at an older version cannot bring the item back.
func (is *ItemStore) Delete(ctx context.Context, itemID string, version int64) (bool, error) {
	var applied bool
	err := is.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, bucket_id, ord, version, deleted) VALUES (?, '', 0, ?, 1)
			ON CONFLICT(id) DO UPDATE SET
				deleted = 1,
				version = excluded.version,
				updated_at = `+nowExpr+`
			WHERE excluded.version > items.version
		`, itemID, version)
		if err != nil {
			return fmt.Errorf("failed to delete item %s: %w", itemID, err)
		}
		if applied, err = affected(res); err != nil || !applied {
			return err
		}
		return ew.LogItemDeleted(tx, itemID, version)
	})
	return applied, err
}

// Get returns a live item, or nil when it does not exist or was deleted.
func (is *ItemStore) Get(ctx context.Context, itemID string) (*domain.ItemRecord, error) {
	var rec domain.ItemRecord
	var payload sql.NullString
	err := is.store.db.QueryRowContext(ctx, `
		SELECT id, bucket_id, ord, payload, version FROM items WHERE id = ? AND deleted = 0
	`, itemID).Scan(&rec.ID, &rec.BucketID, &rec.Order, &payload, &rec.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}
	rec.Payload = payloadValue(payload)
	return &rec, nil
}

// List returns every live item ordered by bucket then order.
func (is *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := is.store.db.QueryContext(ctx, `
		SELECT id, bucket_id, ord, payload FROM items
		WHERE deleted = 0
		ORDER BY bucket_id, ord, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		var payload sql.NullString
		if err := rows.Scan(&it.ID, &it.BucketID, &it.Order, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Payload = payloadValue(payload)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, rec domain.ItemRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items (id, bucket_id, ord, payload, version) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bucket_id = excluded.bucket_id,
			ord = excluded.ord,
			payload = excluded.payload,
			version = excluded.version,
			deleted = 0,
			updated_at = `+nowExpr+`
	`, rec.ID, rec.BucketID, rec.Order, payloadArg(rec.Payload), rec.Version)
	if err != nil {
		return fmt.Errorf("failed to write item %s: %w", rec.ID, err)
	}
	return nil
}
