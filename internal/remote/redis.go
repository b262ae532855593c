package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

const redisPrefix = "board:"

// Versions are stored zero padded so Lua can compare them as strings;
// Lua numbers are doubles and cannot hold nanosecond stamps exactly.
const versionFormat = "%019d"

// guardedWrite applies HSET only when ARGV[1] is newer than the stored
// version. KEYS[1] is the record hash, KEYS[2] the index set.
var guardedWrite = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and ARGV[1] <= current then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], unpack(ARGV, 2))
redis.call('SADD', KEYS[2], KEYS[1])
return 1
`)

// Redis keeps records in hashes board:item:<id> and board:bucket:<id>.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// OpenRedis parses redisURL, connects and pings.
func OpenRedis(ctx context.Context, redisURL string, log *zap.Logger) (*Redis, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis sink requires remote.redis_url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client, log), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{client: client, log: nopIfNil(log).Named("redis")}
}

func itemKey(itemID string) string     { return redisPrefix + "item:" + itemID }
func bucketKey(bucketID string) string { return redisPrefix + "bucket:" + bucketID }

const (
	itemIndex   = redisPrefix + "items"
	bucketIndex = redisPrefix + "buckets"
)

func (r *Redis) write(ctx context.Context, key, index string, version int64, fields ...interface{}) error {
	args := append([]interface{}{fmt.Sprintf(versionFormat, version)}, fields...)
	applied, err := guardedWrite.Run(ctx, r.client, []string{key, index}, args...).Int()
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if applied == 0 {
		r.log.Debug("stale write dropped", zap.String("key", key), zap.Int64("version", version))
	}
	return nil
}

func (r *Redis) UpsertItemOrder(ctx context.Context, rec domain.ItemOrder) error {
	return r.write(ctx, itemKey(rec.ID), itemIndex, rec.Version,
		"bucket_id", rec.BucketID, "ord", rec.Order, "deleted", 0)
}

func (r *Redis) UpsertBucketPosition(ctx context.Context, rec domain.BucketPosition) error {
	return r.write(ctx, bucketKey(rec.ID), bucketIndex, rec.Version,
		"position", rec.Position, "deleted", 0)
}

func (r *Redis) UpsertItem(ctx context.Context, rec domain.ItemRecord) error {
	return r.write(ctx, itemKey(rec.ID), itemIndex, rec.Version,
		"bucket_id", rec.BucketID, "ord", rec.Order, "payload", string(rec.Payload), "deleted", 0)
}

func (r *Redis) UpsertBucket(ctx context.Context, rec domain.BucketRecord) error {
	return r.write(ctx, bucketKey(rec.ID), bucketIndex, rec.Version,
		"position", rec.Position, "payload", string(rec.Payload), "deleted", 0)
}

func (r *Redis) DeleteItem(ctx context.Context, itemID string, version int64) error {
	return r.write(ctx, itemKey(itemID), itemIndex, version, "deleted", 1)
}

func (r *Redis) DeleteBucket(ctx context.Context, bucketID string, version int64) error {
	return r.write(ctx, bucketKey(bucketID), bucketIndex, version, "deleted", 1)
}

// Load reads every live record back into a seed.
func (r *Redis) Load(ctx context.Context) (board.Seed, error) {
	var seed board.Seed

	bucketHashes, err := r.readIndex(ctx, bucketIndex)
	if err != nil {
		return seed, err
	}
	for key, h := range bucketHashes {
		pos, err := strconv.Atoi(h["position"])
		if err != nil {
			return seed, fmt.Errorf("%s: bad position %q", key, h["position"])
		}
		seed.Buckets = append(seed.Buckets, domain.Bucket{
			ID:       key[len(bucketKey("")):],
			Position: pos,
			Payload:  rawString(h["payload"]),
		})
	}

	itemHashes, err := r.readIndex(ctx, itemIndex)
	if err != nil {
		return seed, err
	}
	for key, h := range itemHashes {
		ord, err := strconv.Atoi(h["ord"])
		if err != nil {
			return seed, fmt.Errorf("%s: bad order %q", key, h["ord"])
		}
		seed.Items = append(seed.Items, domain.Item{
			ID:       key[len(itemKey("")):],
			BucketID: h["bucket_id"],
			Order:    ord,
			Payload:  rawString(h["payload"]),
		})
	}
	return seed, nil
}

// readIndex returns the live hashes listed in an index set.
func (r *Redis) readIndex(ctx context.Context, index string) (map[string]map[string]string, error) {
	keys, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", index, err)
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(keys))
	for _, key := range keys {
		cmds[key] = pipe.HGetAll(ctx, key)
	}
	if len(keys) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("read %s records: %w", index, err)
		}
	}

	out := make(map[string]map[string]string, len(keys))
	for key, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 || h["deleted"] == "1" {
			continue
		}
		out[key] = h
	}
	return out, nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func rawString(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
