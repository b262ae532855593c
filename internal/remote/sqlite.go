package remote

import (
	"context"

	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/store"
)

// SQLite persists to a local boardq database.
type SQLite struct {
	store *store.Store
	log   *zap.Logger
}

// NewSQLite wraps an open, migrated database.
func NewSQLite(database *db.DB, log *zap.Logger) *SQLite {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLite{store: store.New(database), log: log.Named("sqlite")}
}

func (s *SQLite) stale(applied bool, err error, kind, recordID string, version int64) error {
	if err == nil && !applied {
		s.log.Debug("stale write dropped", zap.String("kind", kind), zap.String("record", recordID), zap.Int64("version", version))
	}
	return err
}

func (s *SQLite) UpsertItemOrder(ctx context.Context, rec domain.ItemOrder) error {
	applied, err := s.store.Items.UpsertOrder(ctx, rec)
	return s.stale(applied, err, "item_order", rec.ID, rec.Version)
}

func (s *SQLite) UpsertBucketPosition(ctx context.Context, rec domain.BucketPosition) error {
	applied, err := s.store.Buckets.UpsertPosition(ctx, rec)
	return s.stale(applied, err, "bucket_position", rec.ID, rec.Version)
}

func (s *SQLite) UpsertItem(ctx context.Context, rec domain.ItemRecord) error {
	applied, err := s.store.Items.Upsert(ctx, rec)
	return s.stale(applied, err, "item", rec.ID, rec.Version)
}

func (s *SQLite) UpsertBucket(ctx context.Context, rec domain.BucketRecord) error {
	applied, err := s.store.Buckets.Upsert(ctx, rec)
	return s.stale(applied, err, "bucket", rec.ID, rec.Version)
}

func (s *SQLite) DeleteItem(ctx context.Context, itemID string, version int64) error {
	applied, err := s.store.Items.Delete(ctx, itemID, version)
	return s.stale(applied, err, "delete_item", itemID, version)
}

func (s *SQLite) DeleteBucket(ctx context.Context, bucketID string, version int64) error {
	applied, err := s.store.Buckets.Delete(ctx, bucketID, version)
	return s.stale(applied, err, "delete_bucket", bucketID, version)
}

// Load returns the stored board as a seed.
func (s *SQLite) Load(ctx context.Context) (board.Seed, error) {
	buckets, items, err := s.store.Load(ctx)
	if err != nil {
		return board.Seed{}, err
	}
	return board.Seed{Buckets: buckets, Items: items}, nil
}

// Replace overwrites the stored board.
func (s *SQLite) Replace(ctx context.Context, seed board.Seed, version int64) error {
	return s.store.Replace(ctx, seed.Buckets, seed.Items, version)
}

// Close is a no-op; the database belongs to the caller.
func (s *SQLite) Close() error { return nil }
