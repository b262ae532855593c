package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

// CanonicalJSON produces a deterministic JSON encoding of the board:
// - buckets in position order, items in (bucket position, order) order
// - keys sorted lexicographically, payload keys included
// - no insignificant whitespace, no HTML escaping
func CanonicalJSON(s *board.Snapshot) ([]byte, error) {
	buckets := make([]orderedMap, 0, s.BucketCount())
	for _, b := range s.Buckets() {
		entry, err := orderedBucket(b)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, entry)
	}

	items := make([]orderedMap, 0, s.Len())
	for _, it := range s.Items() {
		entry, err := orderedItem(it)
		if err != nil {
			return nil, err
		}
		items = append(items, entry)
	}

	ordered := orderedMap{
		{"buckets", buckets},
		{"items", items},
	}
	result, err := marshalNoEscape(ordered)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return result, nil
}

// Rev computes the sha256 hash of canonical JSON bytes.
// Returns "sha256:<hex>" format.
func Rev(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

func orderedBucket(b domain.Bucket) (orderedMap, error) {
	result := orderedMap{{"id", b.ID}}
	if len(b.Payload) > 0 {
		payload, err := canonicalPayload(b.Payload)
		if err != nil {
			return nil, fmt.Errorf("bucket %s payload: %w", b.ID, err)
		}
		result = append(result, keyValue{"payload", payload})
	}
	return append(result, keyValue{"position", b.Position}), nil
}

func orderedItem(it domain.Item) (orderedMap, error) {
	result := orderedMap{
		{"bucket_id", it.BucketID},
		{"id", it.ID},
		{"order", it.Order},
	}
	if len(it.Payload) > 0 {
		payload, err := canonicalPayload(it.Payload)
		if err != nil {
			return nil, fmt.Errorf("item %s payload: %w", it.ID, err)
		}
		result = append(result, keyValue{"payload", payload})
	}
	return result, nil
}

// canonicalPayload decodes an opaque payload so that encoding sorts its
// keys. Numbers keep their literal form.
func canonicalPayload(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// orderedMap is a slice of key-value pairs that marshals as a JSON object
// with keys in the order they appear in the slice.
type orderedMap []keyValue

type keyValue struct {
	Key   string
	Value interface{}
}

func (om orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, kv := range om {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyJSON, err := marshalNoEscape(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		valJSON, err := marshalNoEscape(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}

	// Remove trailing newline added by Encode
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
