// Package adapter maps collaborator payloads onto board items and buckets.
//
// Client records arrive in two shapes: the English one
// (name, phone, columnId, order, ...) and a Portuguese one
// (nome_cliente, telefone, status, ordem, ...). Both decode into the same
// ClientRecord here and nowhere else. When a payload carries both names
// for a field, the English one wins.
package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/lherron/boardq/internal/domain"
)

// Schedule is an optional follow-up appointment.
type Schedule struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

// ClientRecord is the canonical client shape.
type ClientRecord struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date,omitempty"`
	ColumnID    string    `json:"columnId,omitempty"`
	Order       int       `json:"order"`
	Scheduling  *Schedule `json:"scheduling,omitempty"`
}

// clientPayload is what an Item carries; placement lives on the Item.
type clientPayload struct {
	UserID      string    `json:"userId,omitempty"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date,omitempty"`
	Scheduling  *Schedule `json:"scheduling,omitempty"`
}

type rawClient struct {
	ID flexString `json:"id"`

	UserID      *string   `json:"userId"`
	Name        *string   `json:"name"`
	Phone       *string   `json:"phone"`
	Description *string   `json:"description"`
	Date        *string   `json:"date"`
	ColumnID    *string   `json:"columnId"`
	Order       *int      `json:"order"`
	Scheduling  *Schedule `json:"scheduling"`

	UserIDPT    *string   `json:"user_id"`
	NomeCliente *string   `json:"nome_cliente"`
	Telefone    *string   `json:"telefone"`
	Descricao   *string   `json:"descricao"`
	CreatedAt   *string   `json:"created_at"`
	Status      *string   `json:"status"`
	Ordem       *int      `json:"ordem"`
	Agendamento *Schedule `json:"agendamento"`
}

// DecodeClient decodes either payload shape and validates it.
func DecodeClient(data []byte) (ClientRecord, error) {
	var raw rawClient
	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientRecord{}, fmt.Errorf("decode client: %w", err)
	}
	rec := ClientRecord{
		ID:          string(raw.ID),
		UserID:      pick(raw.UserID, raw.UserIDPT),
		Name:        strings.TrimSpace(pick(raw.Name, raw.NomeCliente)),
		Phone:       NormalizePhone(pick(raw.Phone, raw.Telefone)),
		Description: pick(raw.Description, raw.Descricao),
		Date:        pick(raw.Date, raw.CreatedAt),
		ColumnID:    pick(raw.ColumnID, raw.Status),
		Scheduling:  raw.Scheduling,
	}
	if rec.Scheduling == nil {
		rec.Scheduling = raw.Agendamento
	}
	switch {
	case raw.Order != nil:
		rec.Order = *raw.Order
	case raw.Ordem != nil:
		rec.Order = *raw.Ordem
	}
	if err := rec.Validate(); err != nil {
		return ClientRecord{}, err
	}
	return rec, nil
}

// Validate checks the required fields.
func (r ClientRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &domain.ValidationFailure{Field: "name", Reason: "required"}
	}
	if r.Order < 0 {
		return &domain.ValidationFailure{Field: "order", Reason: "must not be negative"}
	}
	return nil
}

// Payload returns the item payload for r.
func (r ClientRecord) Payload() (json.RawMessage, error) {
	data, err := json.Marshal(clientPayload{
		UserID:      r.UserID,
		Name:        r.Name,
		Phone:       r.Phone,
		Description: r.Description,
		Date:        r.Date,
		Scheduling:  r.Scheduling,
	})
	if err != nil {
		return nil, fmt.Errorf("encode client payload: %w", err)
	}
	return data, nil
}

// ToItem converts r into a board item.
func ToItem(r ClientRecord) (domain.Item, error) {
	if err := r.Validate(); err != nil {
		return domain.Item{}, err
	}
	payload, err := r.Payload()
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{ID: r.ID, BucketID: r.ColumnID, Order: r.Order, Payload: payload}, nil
}

// FromItem converts a board item back into a client record. Placement
// comes from the item, never from the payload.
func FromItem(item domain.Item) (ClientRecord, error) {
	rec, err := DecodeClient(item.Payload)
	if err != nil {
		return ClientRecord{}, fmt.Errorf("item %s: %w", item.ID, err)
	}
	rec.ID = item.ID
	rec.ColumnID = item.BucketID
	rec.Order = item.Order
	return rec, nil
}

// Matches reports whether r matches a search query: a case-insensitive
// name substring, or a phone digit substring when the query has digits.
func (r ClientRecord) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), q) {
		return true
	}
	digits := NormalizePhone(q)
	return digits != "" && strings.Contains(r.Phone, digits)
}

// NormalizePhone strips everything but digits.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func pick(primary, alias *string) string {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return ""
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}
