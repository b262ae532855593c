package board

import (
	"sort"

	"github.com/lherron/boardq/internal/domain"
)

// Seed is the raw collaborator state the board is initialized from.
// Orders and positions need not be dense.
type Seed struct {
	Buckets []domain.Bucket
	Items   []domain.Item
}

// Normalize turns seed into a Snapshot that satisfies every invariant.
// Buckets are sorted by (position, id) and items by (order, id) within
// their bucket, then renumbered. Items whose bucket does not exist are
// appended to the first bucket.
func Normalize(seed Seed) (*Snapshot, error) {
	const op = "normalize"
	if len(seed.Buckets) == 0 {
		return nil, domain.Violation(op, "min one bucket required")
	}

	buckets := make([]domain.Bucket, len(seed.Buckets))
	copy(buckets, seed.Buckets)
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Position != buckets[j].Position {
			return buckets[i].Position < buckets[j].Position
		}
		return buckets[i].ID < buckets[j].ID
	})

	d := &draft{
		buckets: buckets,
		items:   make(map[string]domain.Item, len(seed.Items)),
		columns: make(map[string][]string, len(buckets)),
	}
	for _, b := range buckets {
		if b.ID == "" {
			return nil, domain.Violation(op, "bucket with empty id")
		}
		if _, dup := d.columns[b.ID]; dup {
			return nil, domain.Violation(op, "duplicate bucket %q", b.ID)
		}
		d.columns[b.ID] = nil
	}

	grouped := make(map[string][]domain.Item, len(buckets))
	var orphans []domain.Item
	for _, item := range seed.Items {
		if item.ID == "" {
			return nil, domain.Violation(op, "item with empty id")
		}
		if _, dup := d.items[item.ID]; dup {
			return nil, domain.Violation(op, "duplicate item %q", item.ID)
		}
		d.items[item.ID] = item
		if _, ok := d.columns[item.BucketID]; ok {
			grouped[item.BucketID] = append(grouped[item.BucketID], item)
		} else {
			orphans = append(orphans, item)
		}
	}

	for _, b := range buckets {
		group := grouped[b.ID]
		sortItems(group)
		if b.ID == buckets[0].ID {
			sortItems(orphans)
			group = append(group, orphans...)
		}
		ids := make([]string, len(group))
		for i, item := range group {
			ids[i] = item.ID
		}
		d.columns[b.ID] = ids
	}

	snap := d.freeze()
	if err := snap.Verify(); err != nil {
		return nil, err
	}
	return snap, nil
}

func sortItems(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].ID < items[j].ID
	})
}
