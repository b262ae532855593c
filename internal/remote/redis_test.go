package remote

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/lherron/boardq/internal/domain"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	r, err := OpenRedis(context.Background(), "redis://"+s.Addr(), nil)
	if err != nil {
		t.Fatalf("failed to open redis sink: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, s
}

func TestRedisConformance(t *testing.T) {
	r, _ := setupTestRedis(t)
	checkStore(t, r)
}

func TestRedisStoresPaddedVersions(t *testing.T) {
	r, s := setupTestRedis(t)
	ctx := context.Background()

	if err := r.UpsertItemOrder(ctx, domain.ItemOrder{ID: "a", BucketID: "X", Order: 2, Version: 42}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := s.HGet("board:item:a", "version"); got != "0000000000000000042" {
		t.Errorf("version = %q", got)
	}
	if got := s.HGet("board:item:a", "ord"); got != "2" {
		t.Errorf("ord = %q", got)
	}
	members, err := s.Members("board:items")
	if err != nil || len(members) != 1 || members[0] != "board:item:a" {
		t.Errorf("index = %v (%v)", members, err)
	}
}

func TestRedisPing(t *testing.T) {
	r, _ := setupTestRedis(t)
	if err := r.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestOpenRedisBadURL(t *testing.T) {
	if _, err := OpenRedis(context.Background(), "not a url", nil); err == nil {
		t.Error("expected parse error")
	}
}
