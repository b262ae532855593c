// Package engine interprets drag and keyboard gesture sequences as
// bucket reassignments and in-bucket reorders against a board.Store.
//
// Cross-bucket moves are applied optimistically while the pointer is
// still moving; the in-bucket position is committed only on drop.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/board"
)

// ErrNotDragging is returned for gesture events received while Idle.
var ErrNotDragging = errors.New("no active drag")

// State is the engine's drag lifecycle state
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// CancelPolicy decides what happens to optimistic reassignments when a
// drag is cancelled or dropped outside any target.
type CancelPolicy string

const (
	// CancelKeep leaves reassignments applied by DragOver in place.
	CancelKeep CancelPolicy = "keep"
	// CancelRestore restores the snapshot taken at DragStart.
	CancelRestore CancelPolicy = "restore"
)

// ParseCancelPolicy validates a cancel policy name
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(s) {
	case "", CancelKeep:
		return CancelKeep, nil
	case CancelRestore:
		return CancelRestore, nil
	default:
		return "", fmt.Errorf("invalid cancel policy %q: must be one of: keep, restore", s)
	}
}

// Engine is the reorder state machine. It is not safe for concurrent
// use; all calls must come from the foreground event loop.
type Engine struct {
	store  *board.Store
	policy CancelPolicy
	log    *zap.Logger

	state  State
	active string
	saved  *board.Snapshot // snapshot at DragStart, kept for CancelRestore
	cursor int            // keyboard slot within the active item's bucket
}

// Option configures an Engine.
type Option func(*Engine)

// WithCancelPolicy sets the cancel policy (default CancelKeep).
func WithCancelPolicy(p CancelPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an idle engine operating on store.
func New(store *board.Store, opts ...Option) *Engine {
	e := &Engine{store: store, policy: CancelKeep, log: zap.NewNop(), cursor: -1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state
func (e *Engine) State() State { return e.state }

// Active returns the dragged item id, empty when Idle
func (e *Engine) Active() string { return e.active }

// Cursor returns the keyboard slot, -1 when not keyboard dragging
func (e *Engine) Cursor() int { return e.cursor }

// DragStart enters Dragging for itemID.
func (e *Engine) DragStart(itemID string) error {
	snap := e.store.Snapshot()
	if _, ok := snap.Item(itemID); !ok {
		return fmt.Errorf("drag start: item %q not found", itemID)
	}
	e.state = Dragging
	e.active = itemID
	e.saved = snap
	e.cursor = -1
	e.log.Debug("drag started", zap.String("item", itemID))
	return nil
}

// DragOver handles the pointer hovering target, which may be a bucket id
// or an item id. Crossing into a different bucket moves the active item
// to the end of that bucket immediately.
func (e *Engine) DragOver(target string) error {
	if e.state != Dragging {
		return ErrNotDragging
	}
	if target == "" || target == e.active {
		return nil
	}
	snap := e.store.Snapshot()
	active, ok := snap.Item(e.active)
	if !ok {
		e.reset()
		return fmt.Errorf("drag over: active item %q no longer exists", e.active)
	}
	bucketID, ok := resolveBucket(snap, target)
	if !ok || bucketID == active.BucketID {
		return nil
	}
	after, err := e.store.Apply(board.MoveItem{ItemID: e.active, TargetBucketID: bucketID, TargetIndex: board.Append})
	if err != nil {
		return fmt.Errorf("drag over: %w", err)
	}
	if e.cursor >= 0 {
		_, e.cursor, _ = after.IndexOf(e.active)
	}
	e.log.Debug("item reassigned", zap.String("item", e.active), zap.String("bucket", bucketID))
	return nil
}

// DragEnd drops the active item on target. Dropping on another item in
// the same bucket takes that item's current slot. An empty target is a
// drop outside any target.
func (e *Engine) DragEnd(target string) error {
	if e.state != Dragging {
		return ErrNotDragging
	}
	defer e.reset()

	if target == "" {
		return e.abandon("drop without target")
	}
	if target == e.active {
		return nil
	}
	snap := e.store.Snapshot()
	active, ok := snap.Item(e.active)
	if !ok {
		return fmt.Errorf("drag end: active item %q no longer exists", e.active)
	}
	over, ok := snap.Item(target)
	if !ok || over.BucketID != active.BucketID {
		return nil
	}
	if active.Order == over.Order {
		return nil
	}
	_, err := e.store.Apply(board.ReorderWithinBucket{
		BucketID:  active.BucketID,
		FromIndex: active.Order,
		ToIndex:   over.Order,
	})
	if err != nil {
		return fmt.Errorf("drag end: %w", err)
	}
	e.log.Debug("item reordered", zap.String("item", e.active), zap.Int("from", active.Order), zap.Int("to", over.Order))
	return nil
}

// DragCancel returns to Idle.
func (e *Engine) DragCancel() error {
	if e.state != Dragging {
		return nil
	}
	defer e.reset()
	return e.abandon("drag cancelled")
}

func (e *Engine) abandon(reason string) error {
	if e.policy != CancelRestore || e.saved == nil || e.saved == e.store.Snapshot() {
		return nil
	}
	if _, err := e.store.Apply(board.Restore(e.saved)); err != nil {
		return fmt.Errorf("restore after %s: %w", reason, err)
	}
	e.log.Debug("drag rolled back", zap.String("item", e.active), zap.String("reason", reason))
	return nil
}

func (e *Engine) reset() {
	e.state = Idle
	e.active = ""
	e.saved = nil
	e.cursor = -1
}

func resolveBucket(snap *board.Snapshot, target string) (string, bool) {
	if b, ok := snap.Bucket(target); ok {
		return b.ID, true
	}
	if it, ok := snap.Item(target); ok {
		return it.BucketID, true
	}
	return "", false
}
