package domain

import (
	"bytes"
	"encoding/json"
)

// Item represents a card on the board
type Item struct {
	ID       string          `json:"id"`
	BucketID string          `json:"bucket_id"`
	Order    int             `json:"order"`
	Payload  json.RawMessage `json:"payload,omitempty"` // opaque, collaborator-owned
}

// Bucket represents a column (pipeline stage) on the board
type Bucket struct {
	ID       string          `json:"id"`
	Position int             `json:"position"`
	Payload  json.RawMessage `json:"payload,omitempty"` // opaque, collaborator-owned
}

// ItemOrder is the persisted order tuple for an item
type ItemOrder struct {
	ID       string `json:"id"`
	BucketID string `json:"bucket_id"`
	Order    int    `json:"order"`
	Version  int64  `json:"version"`
}

// BucketPosition is the persisted position tuple for a bucket
type BucketPosition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Version  int64  `json:"version"`
}

// ItemRecord is a full item write, used by sinks that store payloads
type ItemRecord struct {
	Item
	Version int64 `json:"version"`
}

// BucketRecord is a full bucket write, used by sinks that store payloads
type BucketRecord struct {
	Bucket
	Version int64 `json:"version"`
}

// Clone returns a copy of the item that shares no memory with the original.
func (i Item) Clone() Item {
	i.Payload = clonePayload(i.Payload)
	return i
}

// Clone returns a copy of the bucket that shares no memory with the original.
func (b Bucket) Clone() Bucket {
	b.Payload = clonePayload(b.Payload)
	return b
}

// OrderTuple returns the item's persisted order tuple at the given version.
func (i Item) OrderTuple(version int64) ItemOrder {
	return ItemOrder{ID: i.ID, BucketID: i.BucketID, Order: i.Order, Version: version}
}

// PositionTuple returns the bucket's persisted position tuple at the given version.
func (b Bucket) PositionTuple(version int64) BucketPosition {
	return BucketPosition{ID: b.ID, Position: b.Position, Version: version}
}

// SamePayload reports whether two payload documents are byte-identical.
func SamePayload(a, b json.RawMessage) bool {
	return bytes.Equal(a, b)
}

func clonePayload(p json.RawMessage) json.RawMessage {
	if p == nil {
		return nil
	}
	out := make(json.RawMessage, len(p))
	copy(out, p)
	return out
}
