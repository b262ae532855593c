package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lherron/boardq/internal/domain"
)

// ColumnRecord is the canonical bucket shape.
type ColumnRecord struct {
	ID       string `json:"id,omitempty"`
	Label    string `json:"label"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position"`
}

type columnPayload struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type rawColumn struct {
	ID       flexString `json:"id"`
	Label    string     `json:"label"`
	Color    string     `json:"color"`
	Position *int       `json:"position"`
	Ordem    *int       `json:"ordem"`
}

// DefaultColumns is the pipeline a fresh board starts with.
func DefaultColumns() []ColumnRecord {
	return []ColumnRecord{
		{ID: "col_1", Label: "Lead", Color: "bg-blue-500", Position: 0},
		{ID: "col_2", Label: "Em contato", Color: "bg-orange-500", Position: 1},
		{ID: "col_3", Label: "Proposta", Color: "bg-purple-500", Position: 2},
		{ID: "col_4", Label: "Fechado", Color: "bg-emerald-500", Position: 3},
	}
}

// DecodeColumn decodes a column payload, accepting ordem for position.
func DecodeColumn(data []byte) (ColumnRecord, error) {
	var raw rawColumn
	if err := json.Unmarshal(data, &raw); err != nil {
		return ColumnRecord{}, fmt.Errorf("decode column: %w", err)
	}
	rec := ColumnRecord{ID: string(raw.ID), Label: strings.TrimSpace(raw.Label), Color: raw.Color}
	switch {
	case raw.Position != nil:
		rec.Position = *raw.Position
	case raw.Ordem != nil:
		rec.Position = *raw.Ordem
	}
	if err := rec.Validate(); err != nil {
		return ColumnRecord{}, err
	}
	return rec, nil
}

// Validate checks the required fields.
func (c ColumnRecord) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return &domain.ValidationFailure{Field: "label", Reason: "required"}
	}
	return nil
}

// Payload returns the bucket payload for c.
func (c ColumnRecord) Payload() (json.RawMessage, error) {
	data, err := json.Marshal(columnPayload{Label: c.Label, Color: c.Color})
	if err != nil {
		return nil, fmt.Errorf("encode column payload: %w", err)
	}
	return data, nil
}

// ToBucket converts c into a board bucket.
func ToBucket(c ColumnRecord) (domain.Bucket, error) {
	if err := c.Validate(); err != nil {
		return domain.Bucket{}, err
	}
	payload, err := c.Payload()
	if err != nil {
		return domain.Bucket{}, err
	}
	return domain.Bucket{ID: c.ID, Position: c.Position, Payload: payload}, nil
}

// FromBucket converts a bucket back into a column record.
func FromBucket(b domain.Bucket) (ColumnRecord, error) {
	rec, err := DecodeColumn(b.Payload)
	if err != nil {
		return ColumnRecord{}, fmt.Errorf("bucket %s: %w", b.ID, err)
	}
	rec.ID = b.ID
	rec.Position = b.Position
	return rec, nil
}

// Label returns the bucket's label, falling back to its id when the
// payload has none.
func Label(b domain.Bucket) string {
	var p columnPayload
	if len(b.Payload) > 0 && json.Unmarshal(b.Payload, &p) == nil && p.Label != "" {
		return p.Label
	}
	return b.ID
}
