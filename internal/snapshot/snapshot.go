// Package snapshot reads board seed documents and writes the canonical
// board export.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/id"
)

// document is the seed file layout. The columns and clients names are
// accepted for files exported by the web client.
type document struct {
	Buckets []json.RawMessage `json:"buckets"`
	Columns []json.RawMessage `json:"columns"`
	Items   []json.RawMessage `json:"items"`
	Clients []json.RawMessage `json:"clients"`
}

// canonicalEntry detects entries already in export form: a payload plus
// bucket_id for items, a payload and no top-level label for buckets.
type canonicalEntry struct {
	ID       string          `json:"id"`
	BucketID *string         `json:"bucket_id"`
	Label    *string         `json:"label"`
	Order    int             `json:"order"`
	Position int             `json:"position"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode reads a seed document. Entries may be collaborator records in
// either payload shape, or canonical export entries. Missing ids are
// filled from gen (id.New when nil).
func Decode(r io.Reader, gen id.Generator) (board.Seed, error) {
	if gen == nil {
		gen = id.New
	}
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return board.Seed{}, fmt.Errorf("decode seed: %w", err)
	}

	var seed board.Seed
	for i, raw := range append(doc.Buckets, doc.Columns...) {
		b, err := decodeBucket(raw)
		if err != nil {
			return board.Seed{}, fmt.Errorf("bucket %d: %w", i, err)
		}
		if b.ID == "" {
			b.ID = gen(id.KindBucket)
		}
		seed.Buckets = append(seed.Buckets, b)
	}
	for i, raw := range append(doc.Items, doc.Clients...) {
		it, err := decodeItem(raw)
		if err != nil {
			return board.Seed{}, fmt.Errorf("item %d: %w", i, err)
		}
		if it.ID == "" {
			it.ID = gen(id.KindItem)
		}
		seed.Items = append(seed.Items, it)
	}
	return seed, nil
}

func decodeBucket(raw json.RawMessage) (domain.Bucket, error) {
	var entry canonicalEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.Bucket{}, err
	}
	if entry.Label == nil && len(entry.Payload) > 0 {
		b := domain.Bucket{ID: entry.ID, Position: entry.Position, Payload: compactPayload(entry.Payload)}
		if _, err := adapter.FromBucket(b); err != nil {
			return domain.Bucket{}, err
		}
		return b, nil
	}
	col, err := adapter.DecodeColumn(raw)
	if err != nil {
		return domain.Bucket{}, err
	}
	return adapter.ToBucket(col)
}

func decodeItem(raw json.RawMessage) (domain.Item, error) {
	var entry canonicalEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.Item{}, err
	}
	if entry.BucketID != nil && len(entry.Payload) > 0 {
		it := domain.Item{ID: entry.ID, BucketID: *entry.BucketID, Order: entry.Order, Payload: compactPayload(entry.Payload)}
		if _, err := adapter.FromItem(it); err != nil {
			return domain.Item{}, err
		}
		return it, nil
	}
	rec, err := adapter.DecodeClient(raw)
	if err != nil {
		return domain.Item{}, err
	}
	return adapter.ToItem(rec)
}

func compactPayload(p json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, p); err != nil {
		return p
	}
	return buf.Bytes()
}
