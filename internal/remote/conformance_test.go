package remote

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

// checkStore runs the behavior every record-keeping sink must share.
func checkStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	must(s.UpsertBucket(ctx, domain.BucketRecord{Bucket: domain.Bucket{ID: "X", Position: 0, Payload: json.RawMessage(`{"label":"Lead"}`)}, Version: 100}))
	must(s.UpsertBucket(ctx, domain.BucketRecord{Bucket: domain.Bucket{ID: "Y", Position: 1}, Version: 100}))
	must(s.UpsertItem(ctx, domain.ItemRecord{Item: domain.Item{ID: "a", BucketID: "X", Order: 0, Payload: json.RawMessage(`{"name":"Ana"}`)}, Version: 100}))
	must(s.UpsertItem(ctx, domain.ItemRecord{Item: domain.Item{ID: "b", BucketID: "X", Order: 1}, Version: 100}))

	// b moves to Y, then a stale copy of its old placement lands late.
	must(s.UpsertItemOrder(ctx, domain.ItemOrder{ID: "b", BucketID: "Y", Order: 0, Version: 300}))
	must(s.UpsertItemOrder(ctx, domain.ItemOrder{ID: "b", BucketID: "X", Order: 1, Version: 200}))

	// Version stamps near real nanosecond clocks must still order correctly.
	big := int64(1_700_000_000_000_000_000)
	must(s.UpsertBucketPosition(ctx, domain.BucketPosition{ID: "X", Position: 1, Version: big + 1}))
	must(s.UpsertBucketPosition(ctx, domain.BucketPosition{ID: "Y", Position: 0, Version: big + 1}))
	must(s.UpsertBucketPosition(ctx, domain.BucketPosition{ID: "X", Position: 0, Version: big}))

	must(s.UpsertItem(ctx, domain.ItemRecord{Item: domain.Item{ID: "gone", BucketID: "Y", Order: 1}, Version: 100}))
	must(s.DeleteItem(ctx, "gone", 400))
	must(s.UpsertItemOrder(ctx, domain.ItemOrder{ID: "gone", BucketID: "Y", Order: 1, Version: 350}))

	seed, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	snap, err := board.Normalize(seed)
	if err != nil {
		t.Fatalf("normalize loaded seed: %v", err)
	}
	if got := bucketOrder(snap); !equal(got, []string{"Y", "X"}) {
		t.Errorf("bucket order = %v, want [Y X]", got)
	}
	if got := snap.ItemIDs("X"); !equal(got, []string{"a"}) {
		t.Errorf("X = %v, want [a]", got)
	}
	if got := snap.ItemIDs("Y"); !equal(got, []string{"b"}) {
		t.Errorf("Y = %v, want [b]", got)
	}

	a, _ := snap.Item("a")
	if !domain.SamePayload(a.Payload, json.RawMessage(`{"name":"Ana"}`)) {
		t.Errorf("item payload = %s", a.Payload)
	}
	x, _ := snap.Bucket("X")
	if !domain.SamePayload(x.Payload, json.RawMessage(`{"label":"Lead"}`)) {
		t.Errorf("bucket payload lost after position update: %s", x.Payload)
	}
}

func bucketOrder(s *board.Snapshot) []string {
	var out []string
	for _, b := range s.Buckets() {
		out = append(out, b.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedIDs(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	sort.Strings(out)
	return out
}
