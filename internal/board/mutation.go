package board

import (
	"encoding/json"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/id"
)

// Append as a target index places an item after the bucket's last item.
const Append = -1

// Mutation is a single positional change to the board. Every mutation is
// applied to a working copy and either fully succeeds or changes nothing.
type Mutation interface {
	// Name identifies the mutation in errors and logs.
	Name() string
	apply(d *draft, ids id.Generator) error
}

// CreateItem appends a new item to a bucket. ID is generated when empty.
type CreateItem struct {
	ID       string
	BucketID string
	Payload  json.RawMessage
}

func (CreateItem) Name() string { return "create_item" }

func (m CreateItem) apply(d *draft, ids id.Generator) error {
	if d.bucketIndex(m.BucketID) < 0 {
		return domain.Violation(m.Name(), "bucket %q does not exist", m.BucketID)
	}
	itemID := m.ID
	if itemID == "" {
		itemID = ids(id.KindItem)
	}
	if _, exists := d.items[itemID]; exists {
		return domain.Violation(m.Name(), "item %q already exists", itemID)
	}
	d.items[itemID] = domain.Item{ID: itemID, BucketID: m.BucketID, Payload: m.Payload}
	d.columns[m.BucketID] = insertID(d.columns[m.BucketID], Append, itemID)
	return nil
}

// UpdateItem replaces an item's payload. Placement is untouched.
type UpdateItem struct {
	ItemID  string
	Payload json.RawMessage
}

func (UpdateItem) Name() string { return "update_item" }

func (m UpdateItem) apply(d *draft, _ id.Generator) error {
	item, ok := d.items[m.ItemID]
	if !ok {
		return domain.Violation(m.Name(), "item %q does not exist", m.ItemID)
	}
	item.Payload = m.Payload
	d.items[m.ItemID] = item
	return nil
}

// MoveItem removes an item from its bucket and inserts it into the target
// bucket at TargetIndex. Indices outside [0, len] (including Append)
// append. Moving within the same bucket is a reorder.
type MoveItem struct {
	ItemID         string
	TargetBucketID string
	TargetIndex    int
}

func (MoveItem) Name() string { return "move_item" }

func (m MoveItem) apply(d *draft, _ id.Generator) error {
	item, ok := d.items[m.ItemID]
	if !ok {
		return domain.Violation(m.Name(), "item %q does not exist", m.ItemID)
	}
	if d.bucketIndex(m.TargetBucketID) < 0 {
		return domain.Violation(m.Name(), "bucket %q does not exist", m.TargetBucketID)
	}
	src, idx := removeID(d.columns[item.BucketID], m.ItemID)
	if idx < 0 {
		return domain.Violation(m.Name(), "item %q missing from bucket %q", m.ItemID, item.BucketID)
	}
	d.columns[item.BucketID] = src
	d.columns[m.TargetBucketID] = insertID(d.columns[m.TargetBucketID], m.TargetIndex, m.ItemID)
	return nil
}

// ReorderWithinBucket moves the item at FromIndex to ToIndex, shifting the
// items between them.
type ReorderWithinBucket struct {
	BucketID  string
	FromIndex int
	ToIndex   int
}

func (ReorderWithinBucket) Name() string { return "reorder_within_bucket" }

func (m ReorderWithinBucket) apply(d *draft, _ id.Generator) error {
	if d.bucketIndex(m.BucketID) < 0 {
		return domain.Violation(m.Name(), "bucket %q does not exist", m.BucketID)
	}
	ids := d.columns[m.BucketID]
	n := len(ids)
	if m.FromIndex < 0 || m.FromIndex >= n || m.ToIndex < 0 || m.ToIndex >= n {
		return domain.Violation(m.Name(), "indices (%d,%d) out of range for %d items", m.FromIndex, m.ToIndex, n)
	}
	d.columns[m.BucketID] = moveElem(ids, m.FromIndex, m.ToIndex)
	return nil
}

// DeleteItem removes an item; its siblings close the gap.
type DeleteItem struct {
	ItemID string
}

func (DeleteItem) Name() string { return "delete_item" }

func (m DeleteItem) apply(d *draft, _ id.Generator) error {
	item, ok := d.items[m.ItemID]
	if !ok {
		return domain.Violation(m.Name(), "item %q does not exist", m.ItemID)
	}
	d.columns[item.BucketID], _ = removeID(d.columns[item.BucketID], m.ItemID)
	delete(d.items, m.ItemID)
	return nil
}

// CreateBucket appends a new bucket after the last position. ID is
// generated when empty.
type CreateBucket struct {
	ID      string
	Payload json.RawMessage
}

func (CreateBucket) Name() string { return "create_bucket" }

func (m CreateBucket) apply(d *draft, ids id.Generator) error {
	bucketID := m.ID
	if bucketID == "" {
		bucketID = ids(id.KindBucket)
	}
	if d.bucketIndex(bucketID) >= 0 {
		return domain.Violation(m.Name(), "bucket %q already exists", bucketID)
	}
	d.buckets = append(d.buckets, domain.Bucket{ID: bucketID, Position: len(d.buckets), Payload: m.Payload})
	d.columns[bucketID] = nil
	return nil
}

// UpdateBucket replaces a bucket's payload.
type UpdateBucket struct {
	BucketID string
	Payload  json.RawMessage
}

func (UpdateBucket) Name() string { return "update_bucket" }

func (m UpdateBucket) apply(d *draft, _ id.Generator) error {
	idx := d.bucketIndex(m.BucketID)
	if idx < 0 {
		return domain.Violation(m.Name(), "bucket %q does not exist", m.BucketID)
	}
	d.buckets[idx].Payload = m.Payload
	return nil
}

// MoveBucket moves a bucket to TargetPosition, shifting the ones between.
type MoveBucket struct {
	BucketID       string
	TargetPosition int
}

func (MoveBucket) Name() string { return "move_bucket" }

func (m MoveBucket) apply(d *draft, _ id.Generator) error {
	idx := d.bucketIndex(m.BucketID)
	if idx < 0 {
		return domain.Violation(m.Name(), "bucket %q does not exist", m.BucketID)
	}
	if m.TargetPosition < 0 || m.TargetPosition >= len(d.buckets) {
		return domain.Violation(m.Name(), "position %d out of range for %d buckets", m.TargetPosition, len(d.buckets))
	}
	d.buckets = moveElem(d.buckets, idx, m.TargetPosition)
	return nil
}

// DeleteBucket removes a bucket and appends its items, in their existing
// order, to the first remaining bucket by position.
type DeleteBucket struct {
	BucketID string
}

func (DeleteBucket) Name() string { return "delete_bucket" }

func (m DeleteBucket) apply(d *draft, _ id.Generator) error {
	idx := d.bucketIndex(m.BucketID)
	if idx < 0 {
		return domain.Violation(m.Name(), "bucket %q does not exist", m.BucketID)
	}
	if len(d.buckets) <= 1 {
		return domain.Violation(m.Name(), "min one bucket required")
	}
	remaining := make([]domain.Bucket, 0, len(d.buckets)-1)
	remaining = append(remaining, d.buckets[:idx]...)
	remaining = append(remaining, d.buckets[idx+1:]...)
	d.buckets = remaining

	fallback := remaining[0].ID
	orphans := d.columns[m.BucketID]
	merged := make([]string, 0, len(d.columns[fallback])+len(orphans))
	merged = append(merged, d.columns[fallback]...)
	merged = append(merged, orphans...)
	d.columns[fallback] = merged
	delete(d.columns, m.BucketID)
	return nil
}

// Restore returns a mutation that replaces the board with an earlier
// snapshot. Used to roll back an optimistic drag.
func Restore(s *Snapshot) Mutation {
	return restoreSnapshot{snap: s}
}

type restoreSnapshot struct {
	snap *Snapshot
}

func (restoreSnapshot) Name() string { return "restore_snapshot" }

func (m restoreSnapshot) apply(d *draft, _ id.Generator) error {
	if m.snap == nil {
		return domain.Violation(m.Name(), "nil snapshot")
	}
	*d = *m.snap.draft()
	return nil
}
