// Package remote holds the persistence targets the sync scheduler writes
// to: the local SQLite database, Postgres, an HTTP (PostgREST style)
// endpoint and Redis.
package remote

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/syncer"
)

// Kinds accepted by Open.
const (
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindHTTP     = "http"
	KindRedis    = "redis"
)

// Config selects and configures a sink.
type Config struct {
	Kind        string
	DatabaseURL string
	RedisURL    string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
}

// Sink is a syncer.Sink that owns a connection.
type Sink interface {
	syncer.Sink
	Close() error
}

// Store is a Sink that keeps full records and can seed a board.
type Store interface {
	Sink
	syncer.RecordSink
	Load(ctx context.Context) (board.Seed, error)
}

// Open returns the sink named by cfg.Kind. The sqlite kind reuses local
// and does not close it.
func Open(ctx context.Context, cfg Config, local *db.DB, log *zap.Logger) (Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Kind {
	case "", KindSQLite:
		if local == nil {
			return nil, fmt.Errorf("sqlite sink requires a local database")
		}
		return NewSQLite(local, log), nil
	case KindPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, log)
	case KindHTTP:
		return NewHTTP(cfg.BaseURL, cfg.APIKey, cfg.Timeout, log)
	case KindRedis:
		return OpenRedis(ctx, cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("unknown remote kind %q (want sqlite, postgres, http or redis)", cfg.Kind)
	}
}

// Tee writes to a primary store and mirrors every write to the other
// sinks. Loads come from the primary. Mirrors that only accept order
// tuples get the placement part of record writes and no deletes.
type Tee struct {
	primary Store
	mirrors []Sink
}

// NewTee returns a Tee over primary and mirrors.
func NewTee(primary Store, mirrors ...Sink) *Tee {
	return &Tee{primary: primary, mirrors: mirrors}
}

func (t *Tee) each(fn func(s syncer.Sink) error) error {
	err := fn(t.primary)
	for _, m := range t.mirrors {
		err = multierr.Append(err, fn(m))
	}
	return err
}

func (t *Tee) UpsertItemOrder(ctx context.Context, rec domain.ItemOrder) error {
	return t.each(func(s syncer.Sink) error { return s.UpsertItemOrder(ctx, rec) })
}

func (t *Tee) UpsertBucketPosition(ctx context.Context, rec domain.BucketPosition) error {
	return t.each(func(s syncer.Sink) error { return s.UpsertBucketPosition(ctx, rec) })
}

func (t *Tee) UpsertItem(ctx context.Context, rec domain.ItemRecord) error {
	return t.each(func(s syncer.Sink) error {
		if rs, ok := s.(syncer.RecordSink); ok {
			return rs.UpsertItem(ctx, rec)
		}
		return s.UpsertItemOrder(ctx, rec.OrderTuple(rec.Version))
	})
}

func (t *Tee) UpsertBucket(ctx context.Context, rec domain.BucketRecord) error {
	return t.each(func(s syncer.Sink) error {
		if rs, ok := s.(syncer.RecordSink); ok {
			return rs.UpsertBucket(ctx, rec)
		}
		return s.UpsertBucketPosition(ctx, rec.PositionTuple(rec.Version))
	})
}

func (t *Tee) DeleteItem(ctx context.Context, itemID string, version int64) error {
	return t.each(func(s syncer.Sink) error {
		if rs, ok := s.(syncer.RecordSink); ok {
			return rs.DeleteItem(ctx, itemID, version)
		}
		return nil
	})
}

func (t *Tee) DeleteBucket(ctx context.Context, bucketID string, version int64) error {
	return t.each(func(s syncer.Sink) error {
		if rs, ok := s.(syncer.RecordSink); ok {
			return rs.DeleteBucket(ctx, bucketID, version)
		}
		return nil
	})
}

// Load reads the primary store.
func (t *Tee) Load(ctx context.Context) (board.Seed, error) {
	return t.primary.Load(ctx)
}

// Close closes the primary and every mirror.
func (t *Tee) Close() error {
	err := t.primary.Close()
	for _, m := range t.mirrors {
		err = multierr.Append(err, m.Close())
	}
	return err
}
