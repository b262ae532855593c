package events

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lherron/boardq/internal/domain"
)

// Event types written to the event log.
const (
	ItemCreated   = "item.created"
	ItemUpdated   = "item.updated"
	ItemMoved     = "item.moved"
	ItemDeleted   = "item.deleted"
	BucketCreated = "bucket.created"
	BucketUpdated = "bucket.updated"
	BucketMoved   = "bucket.moved"
	BucketDeleted = "bucket.deleted"
)

// Event is one row of the event log.
type Event struct {
	ID           int64   `json:"id"`
	Timestamp    string  `json:"timestamp"`
	ResourceType string  `json:"resource_type"`
	ResourceID   string  `json:"resource_id"`
	EventType    string  `json:"event_type"`
	Version      int64   `json:"version"`
	Payload      *string `json:"payload,omitempty"`
}

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *Event) error {
	query := `
		INSERT INTO event_log (resource_type, resource_id, event_type, version, payload)
		VALUES (?, ?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.ResourceType, event.ResourceID, event.EventType, event.Version, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogItemMoved logs an order change for an item
func (w *Writer) LogItemMoved(tx *sql.Tx, rec domain.ItemOrder) error {
	payload, err := marshalPayload(map[string]interface{}{
		"bucket_id": rec.BucketID,
		"order":     rec.Order,
	})
	if err != nil {
		return err
	}
	return w.LogEvent(tx, &Event{
		ResourceType: "item",
		ResourceID:   rec.ID,
		EventType:    ItemMoved,
		Version:      rec.Version,
		Payload:      payload,
	})
}

// LogItemWritten logs a full item upsert
func (w *Writer) LogItemWritten(tx *sql.Tx, rec domain.ItemRecord, created bool) error {
	body := map[string]interface{}{
		"bucket_id": rec.BucketID,
		"order":     rec.Order,
	}
	if len(rec.Payload) > 0 {
		body["payload"] = rec.Payload
	}
	payload, err := marshalPayload(body)
	if err != nil {
		return err
	}
	eventType := ItemUpdated
	if created {
		eventType = ItemCreated
	}
	return w.LogEvent(tx, &Event{
		ResourceType: "item",
		ResourceID:   rec.ID,
		EventType:    eventType,
		Version:      rec.Version,
		Payload:      payload,
	})
}

// LogItemDeleted logs an item deletion
func (w *Writer) LogItemDeleted(tx *sql.Tx, itemID string, version int64) error {
	return w.LogEvent(tx, &Event{
		ResourceType: "item",
		ResourceID:   itemID,
		EventType:    ItemDeleted,
		Version:      version,
	})
}

// LogBucketMoved logs a position change for a bucket
func (w *Writer) LogBucketMoved(tx *sql.Tx, rec domain.BucketPosition) error {
	payload, err := marshalPayload(map[string]interface{}{"position": rec.Position})
	if err != nil {
		return err
	}
	return w.LogEvent(tx, &Event{
		ResourceType: "bucket",
		ResourceID:   rec.ID,
		EventType:    BucketMoved,
		Version:      rec.Version,
		Payload:      payload,
	})
}

// LogBucketWritten logs a full bucket upsert
func (w *Writer) LogBucketWritten(tx *sql.Tx, rec domain.BucketRecord, created bool) error {
	body := map[string]interface{}{"position": rec.Position}
	if len(rec.Payload) > 0 {
		body["payload"] = rec.Payload
	}
	payload, err := marshalPayload(body)
	if err != nil {
		return err
	}
	eventType := BucketUpdated
	if created {
		eventType = BucketCreated
	}
	return w.LogEvent(tx, &Event{
		ResourceType: "bucket",
		ResourceID:   rec.ID,
		EventType:    eventType,
		Version:      rec.Version,
		Payload:      payload,
	})
}

// LogBucketDeleted logs a bucket deletion
func (w *Writer) LogBucketDeleted(tx *sql.Tx, bucketID string, version int64) error {
	return w.LogEvent(tx, &Event{
		ResourceType: "bucket",
		ResourceID:   bucketID,
		EventType:    BucketDeleted,
		Version:      version,
	})
}

// Query filters the event log. Results are newest first.
type Query struct {
	ResourceID string
	Limit      int
	Cursor     string
}

// Page is one page of events plus the cursor for the next one.
type Page struct {
	Events     []Event `json:"events"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// List returns a page of events matching q.
func (w *Writer) List(q Query) (*Page, error) {
	var where []string
	var args []interface{}

	if q.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, q.ResourceID)
	}
	if q.Cursor != "" {
		lastID, err := DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		where = append(where, "id < ?")
		args = append(args, lastID)
	}

	query := `SELECT id, timestamp, resource_type, resource_id, event_type, version, payload FROM event_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		// one extra row tells us whether another page exists
		query += " LIMIT " + strconv.Itoa(q.Limit+1)
	}

	rows, err := w.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event log: %w", err)
	}
	defer rows.Close()

	page := &Page{}
	for rows.Next() {
		var e Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ResourceType, &e.ResourceID, &e.EventType, &e.Version, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if payload.Valid {
			e.Payload = &payload.String
		}
		page.Events = append(page.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	if q.Limit > 0 && len(page.Events) > q.Limit {
		page.Events = page.Events[:q.Limit]
		page.NextCursor = EncodeCursor(page.Events[len(page.Events)-1].ID)
	}
	return page, nil
}

type cursor struct {
	LastID int64 `json:"last_id"`
}

// EncodeCursor serializes the last seen event id to an opaque string
func EncodeCursor(lastID int64) string {
	data, _ := json.Marshal(cursor{LastID: lastID})
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor produced by EncodeCursor
func DecodeCursor(encoded string) (int64, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, fmt.Errorf("invalid cursor format: %w", err)
	}
	if c.LastID <= 0 {
		return 0, fmt.Errorf("cursor missing last ID")
	}
	return c.LastID, nil
}

func marshalPayload(v interface{}) (*string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
