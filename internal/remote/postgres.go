package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS board_buckets (
		id         TEXT PRIMARY KEY,
		position   INTEGER NOT NULL,
		payload    JSONB,
		version    BIGINT NOT NULL DEFAULT 0,
		deleted    BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS board_items (
		id         TEXT PRIMARY KEY,
		bucket_id  TEXT NOT NULL,
		ord        INTEGER NOT NULL,
		payload    JSONB,
		version    BIGINT NOT NULL DEFAULT 0,
		deleted    BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS board_items_bucket_ord ON board_items (bucket_id, ord)`,
}

// Postgres persists to a Postgres database through the pgx driver.
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenPostgres connects, pings and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string, log *zap.Logger) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres sink requires remote.database_url")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	p := &Postgres{db: db, log: nopIfNil(log).Named("postgres")}
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the board tables if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) exec(ctx context.Context, kind, recordID string, version int64, query string, args ...interface{}) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, recordID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		p.log.Debug("stale write dropped", zap.String("kind", kind), zap.String("record", recordID), zap.Int64("version", version))
	}
	return nil
}

func (p *Postgres) UpsertItemOrder(ctx context.Context, rec domain.ItemOrder) error {
	return p.exec(ctx, "upsert item order", rec.ID, rec.Version, `
		INSERT INTO board_items (id, bucket_id, ord, version) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			bucket_id = EXCLUDED.bucket_id, ord = EXCLUDED.ord,
			version = EXCLUDED.version, deleted = FALSE, updated_at = now()
		WHERE board_items.version < EXCLUDED.version
	`, rec.ID, rec.BucketID, rec.Order, rec.Version)
}

func (p *Postgres) UpsertBucketPosition(ctx context.Context, rec domain.BucketPosition) error {
	return p.exec(ctx, "upsert bucket position", rec.ID, rec.Version, `
		INSERT INTO board_buckets (id, position, version) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			version = EXCLUDED.version, deleted = FALSE, updated_at = now()
		WHERE board_buckets.version < EXCLUDED.version
	`, rec.ID, rec.Position, rec.Version)
}

func (p *Postgres) UpsertItem(ctx context.Context, rec domain.ItemRecord) error {
	return p.exec(ctx, "upsert item", rec.ID, rec.Version, `
		INSERT INTO board_items (id, bucket_id, ord, payload, version) VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (id) DO UPDATE SET
			bucket_id = EXCLUDED.bucket_id, ord = EXCLUDED.ord, payload = EXCLUDED.payload,
			version = EXCLUDED.version, deleted = FALSE, updated_at = now()
		WHERE board_items.version < EXCLUDED.version
	`, rec.ID, rec.BucketID, rec.Order, jsonArg(rec.Payload), rec.Version)
}

func (p *Postgres) UpsertBucket(ctx context.Context, rec domain.BucketRecord) error {
	return p.exec(ctx, "upsert bucket", rec.ID, rec.Version, `
		INSERT INTO board_buckets (id, position, payload, version) VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position, payload = EXCLUDED.payload,
			version = EXCLUDED.version, deleted = FALSE, updated_at = now()
		WHERE board_buckets.version < EXCLUDED.version
	`, rec.ID, rec.Position, jsonArg(rec.Payload), rec.Version)
}

func (p *Postgres) DeleteItem(ctx context.Context, itemID string, version int64) error {
	return p.exec(ctx, "delete item", itemID, version, `
		INSERT INTO board_items (id, bucket_id, ord, version, deleted) VALUES ($1, '', 0, $2, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version, deleted = TRUE, updated_at = now()
		WHERE board_items.version < EXCLUDED.version
	`, itemID, version)
}

func (p *Postgres) DeleteBucket(ctx context.Context, bucketID string, version int64) error {
	return p.exec(ctx, "delete bucket", bucketID, version, `
		INSERT INTO board_buckets (id, position, version, deleted) VALUES ($1, 0, $2, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version, deleted = TRUE, updated_at = now()
		WHERE board_buckets.version < EXCLUDED.version
	`, bucketID, version)
}

// Load returns the live board as a seed.
func (p *Postgres) Load(ctx context.Context) (board.Seed, error) {
	var seed board.Seed

	rows, err := p.db.QueryContext(ctx, `SELECT id, position, payload FROM board_buckets WHERE NOT deleted ORDER BY position, id`)
	if err != nil {
		return seed, fmt.Errorf("list buckets: %w", err)
	}
	for rows.Next() {
		var b domain.Bucket
		var payload []byte
		if err := rows.Scan(&b.ID, &b.Position, &payload); err != nil {
			rows.Close()
			return seed, fmt.Errorf("scan bucket: %w", err)
		}
		b.Payload = rawOrNil(payload)
		seed.Buckets = append(seed.Buckets, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return seed, fmt.Errorf("iterate buckets: %w", err)
	}

	rows, err = p.db.QueryContext(ctx, `SELECT id, bucket_id, ord, payload FROM board_items WHERE NOT deleted ORDER BY bucket_id, ord, id`)
	if err != nil {
		return seed, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.Item
		var payload []byte
		if err := rows.Scan(&it.ID, &it.BucketID, &it.Order, &payload); err != nil {
			return seed, fmt.Errorf("scan item: %w", err)
		}
		it.Payload = rawOrNil(payload)
		seed.Items = append(seed.Items, it)
	}
	if err := rows.Err(); err != nil {
		return seed, fmt.Errorf("iterate items: %w", err)
	}
	return seed, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func jsonArg(p json.RawMessage) interface{} {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(append([]byte(nil), b...))
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
