package syncer

import (
	"sort"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

// Kind identifies the remote operation an intent maps to
type Kind string

const (
	KindItemOrder      Kind = "upsert_item_order"
	KindBucketPosition Kind = "upsert_bucket_position"
	KindItemRecord     Kind = "upsert_item"
	KindBucketRecord   Kind = "upsert_bucket"
	KindItemDelete     Kind = "delete_item"
	KindBucketDelete   Kind = "delete_bucket"
)

// Intent is a pending write derived from a snapshot delta. It holds value
// copies only, so a task never reads a later snapshot.
type Intent struct {
	Kind    Kind
	ID      string
	Version int64

	ItemOrder      domain.ItemOrder
	BucketPosition domain.BucketPosition
	Item           domain.ItemRecord
	Bucket         domain.BucketRecord
}

// versionKey namespaces the per-record version counters.
func (in Intent) versionKey() string {
	switch in.Kind {
	case KindBucketPosition, KindBucketRecord, KindBucketDelete:
		return "bucket:" + in.ID
	default:
		return "item:" + in.ID
	}
}

func (in *Intent) stamp(v int64) {
	in.Version = v
	switch in.Kind {
	case KindItemOrder:
		in.ItemOrder.Version = v
	case KindBucketPosition:
		in.BucketPosition.Version = v
	case KindItemRecord:
		in.Item.Version = v
	case KindBucketRecord:
		in.Bucket.Version = v
	}
}

// Diff computes the intents that bring a remote copy of before up to
// after. With records false only order and position tuples are emitted;
// with records true, created or payload-changed records are sent in full
// and removals become deletes. Output is deterministic: buckets first in
// position order, then items in board order, then deletions by id.
func Diff(before, after *board.Snapshot, records bool) []Intent {
	var out []Intent

	for _, b := range after.Buckets() {
		prev, existed := before.Bucket(b.ID)
		switch {
		case records && (!existed || !domain.SamePayload(prev.Payload, b.Payload)):
			out = append(out, Intent{Kind: KindBucketRecord, ID: b.ID, Bucket: domain.BucketRecord{Bucket: b.Clone()}})
		case !existed || prev.Position != b.Position:
			out = append(out, Intent{Kind: KindBucketPosition, ID: b.ID, BucketPosition: b.PositionTuple(0)})
		}
	}

	for _, it := range after.Items() {
		prev, existed := before.Item(it.ID)
		switch {
		case records && (!existed || !domain.SamePayload(prev.Payload, it.Payload)):
			out = append(out, Intent{Kind: KindItemRecord, ID: it.ID, Item: domain.ItemRecord{Item: it.Clone()}})
		case !existed || prev.BucketID != it.BucketID || prev.Order != it.Order:
			out = append(out, Intent{Kind: KindItemOrder, ID: it.ID, ItemOrder: it.OrderTuple(0)})
		}
	}

	if !records {
		return out
	}

	var goneBuckets []string
	for _, b := range before.Buckets() {
		if _, ok := after.Bucket(b.ID); !ok {
			goneBuckets = append(goneBuckets, b.ID)
		}
	}
	var goneItems []string
	for _, it := range before.Items() {
		if _, ok := after.Item(it.ID); !ok {
			goneItems = append(goneItems, it.ID)
		}
	}
	sort.Strings(goneBuckets)
	sort.Strings(goneItems)
	for _, bucketID := range goneBuckets {
		out = append(out, Intent{Kind: KindBucketDelete, ID: bucketID})
	}
	for _, itemID := range goneItems {
		out = append(out, Intent{Kind: KindItemDelete, ID: itemID})
	}
	return out
}
