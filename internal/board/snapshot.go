// Package board holds the authoritative in-memory board state: an
// immutable Snapshot of buckets and items, and the Store that derives and
// atomically publishes the next Snapshot for every mutation.
package board

import (
	"fmt"

	"github.com/lherron/boardq/internal/domain"
)

// Snapshot is a frozen, invariant-satisfying view of the board. It is
// never modified after construction; mutations produce a new Snapshot.
type Snapshot struct {
	buckets   []domain.Bucket // index == position
	bucketPos map[string]int
	items     map[string]domain.Item
	columns   map[string][]string // bucket id -> item ids in order
}

// BucketCount returns the number of buckets.
func (s *Snapshot) BucketCount() int {
	return len(s.buckets)
}

// Len returns the number of items on the board.
func (s *Snapshot) Len() int {
	return len(s.items)
}

// Buckets returns all buckets in position order.
func (s *Snapshot) Buckets() []domain.Bucket {
	out := make([]domain.Bucket, len(s.buckets))
	copy(out, s.buckets)
	return out
}

// BucketAt returns the bucket at position.
func (s *Snapshot) BucketAt(position int) (domain.Bucket, bool) {
	if position < 0 || position >= len(s.buckets) {
		return domain.Bucket{}, false
	}
	return s.buckets[position], true
}

// Bucket returns the bucket with the given id.
func (s *Snapshot) Bucket(bucketID string) (domain.Bucket, bool) {
	pos, ok := s.bucketPos[bucketID]
	if !ok {
		return domain.Bucket{}, false
	}
	return s.buckets[pos], true
}

// Item returns the item with the given id.
func (s *Snapshot) Item(itemID string) (domain.Item, bool) {
	item, ok := s.items[itemID]
	return item, ok
}

// ItemsInBucket returns the bucket's items sorted by order.
// Unknown buckets yield an empty slice.
func (s *Snapshot) ItemsInBucket(bucketID string) []domain.Item {
	ids := s.columns[bucketID]
	out := make([]domain.Item, 0, len(ids))
	for _, itemID := range ids {
		out = append(out, s.items[itemID])
	}
	return out
}

// ItemIDs returns the ids of the bucket's items in order.
func (s *Snapshot) ItemIDs(bucketID string) []string {
	ids := s.columns[bucketID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Items returns every item, ordered by bucket position then order.
func (s *Snapshot) Items() []domain.Item {
	out := make([]domain.Item, 0, len(s.items))
	for _, b := range s.buckets {
		out = append(out, s.ItemsInBucket(b.ID)...)
	}
	return out
}

// IndexOf returns the bucket and slot of an item.
func (s *Snapshot) IndexOf(itemID string) (bucketID string, index int, ok bool) {
	item, ok := s.items[itemID]
	if !ok {
		return "", -1, false
	}
	return item.BucketID, item.Order, true
}

// Verify checks all ordering invariants and returns the first violation.
func (s *Snapshot) Verify() error {
	if len(s.buckets) == 0 {
		return domain.Violation("verify", "min one bucket required")
	}
	for pos, b := range s.buckets {
		if b.Position != pos {
			return domain.Violation("verify", "bucket %s has position %d at slot %d", b.ID, b.Position, pos)
		}
		if got, ok := s.bucketPos[b.ID]; !ok || got != pos {
			return domain.Violation("verify", "bucket %s index out of sync", b.ID)
		}
	}
	if len(s.bucketPos) != len(s.buckets) {
		return domain.Violation("verify", "duplicate bucket ids")
	}

	seen := make(map[string]string, len(s.items))
	for bucketID, ids := range s.columns {
		if _, ok := s.bucketPos[bucketID]; !ok {
			return domain.Violation("verify", "item list for unknown bucket %s", bucketID)
		}
		for order, itemID := range ids {
			if other, dup := seen[itemID]; dup {
				return domain.Violation("verify", "item %s listed in buckets %s and %s", itemID, other, bucketID)
			}
			seen[itemID] = bucketID
			item, ok := s.items[itemID]
			if !ok {
				return domain.Violation("verify", "bucket %s lists unknown item %s", bucketID, itemID)
			}
			if item.BucketID != bucketID || item.Order != order {
				return domain.Violation("verify", "item %s records (%s,%d) but sits at (%s,%d)",
					itemID, item.BucketID, item.Order, bucketID, order)
			}
		}
	}
	if len(seen) != len(s.items) {
		return domain.Violation("verify", "%d items not listed in any bucket", len(s.items)-len(seen))
	}
	return nil
}

// String renders a compact description, mostly for test failures.
func (s *Snapshot) String() string {
	out := ""
	for _, b := range s.buckets {
		out += fmt.Sprintf("%s%v ", b.ID, s.columns[b.ID])
	}
	return out
}

// draft is the mutable working copy a mutation operates on.
type draft struct {
	buckets []domain.Bucket
	items   map[string]domain.Item
	columns map[string][]string
}

func (s *Snapshot) draft() *draft {
	d := &draft{
		buckets: make([]domain.Bucket, len(s.buckets)),
		items:   make(map[string]domain.Item, len(s.items)),
		columns: make(map[string][]string, len(s.columns)),
	}
	copy(d.buckets, s.buckets)
	for k, v := range s.items {
		d.items[k] = v
	}
	for k, v := range s.columns {
		ids := make([]string, len(v))
		copy(ids, v)
		d.columns[k] = ids
	}
	return d
}

func (d *draft) bucketIndex(bucketID string) int {
	for i, b := range d.buckets {
		if b.ID == bucketID {
			return i
		}
	}
	return -1
}

// freeze renumbers positions and orders densely from slice order and
// returns the resulting Snapshot.
func (d *draft) freeze() *Snapshot {
	s := &Snapshot{
		buckets:   make([]domain.Bucket, len(d.buckets)),
		bucketPos: make(map[string]int, len(d.buckets)),
		items:     make(map[string]domain.Item, len(d.items)),
		columns:   make(map[string][]string, len(d.buckets)),
	}
	for pos, b := range d.buckets {
		b.Position = pos
		s.buckets[pos] = b
		s.bucketPos[b.ID] = pos

		ids := d.columns[b.ID]
		frozen := make([]string, len(ids))
		copy(frozen, ids)
		s.columns[b.ID] = frozen
		for order, itemID := range ids {
			item, ok := d.items[itemID]
			if !ok {
				continue
			}
			item.BucketID = b.ID
			item.Order = order
			s.items[itemID] = item
		}
	}
	// Items left outside every column are carried so Verify reports them.
	for itemID, item := range d.items {
		if _, ok := s.items[itemID]; !ok {
			s.items[itemID] = item
		}
	}
	for bucketID, ids := range d.columns {
		if _, ok := s.columns[bucketID]; !ok && len(ids) > 0 {
			s.columns[bucketID] = ids
		}
	}
	return s
}

func removeID(ids []string, target string) ([]string, int) {
	for i, v := range ids {
		if v == target {
			out := make([]string, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			out = append(out, ids[i+1:]...)
			return out, i
		}
	}
	return ids, -1
}

func insertID(ids []string, index int, v string) []string {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, v)
	out = append(out, ids[index:]...)
	return out
}

// moveElem moves the element at from to to, shifting the ones between.
func moveElem[T any](list []T, from, to int) []T {
	out := make([]T, len(list))
	copy(out, list)
	if from == to {
		return out
	}
	v := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = v
	return out
}
