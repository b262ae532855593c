package engine

import (
	"fmt"
)

// Direction is a discrete keyboard move
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// ParseDirection maps a direction name to a Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	default:
		return 0, fmt.Errorf("invalid direction %q: must be one of: up, down, left, right", s)
	}
}

// KeyPickUp starts a keyboard drag with the cursor on the item's slot.
func (e *Engine) KeyPickUp(itemID string) error {
	if err := e.DragStart(itemID); err != nil {
		return err
	}
	_, e.cursor, _ = e.store.Snapshot().IndexOf(itemID)
	return nil
}

// KeyMove moves the keyboard cursor. Up and Down move between slots
// without reordering; Left and Right hover the adjacent bucket.
func (e *Engine) KeyMove(dir Direction) error {
	if e.state != Dragging || e.cursor < 0 {
		return ErrNotDragging
	}
	snap := e.store.Snapshot()
	active, ok := snap.Item(e.active)
	if !ok {
		e.reset()
		return fmt.Errorf("key move: active item %q no longer exists", e.active)
	}

	switch dir {
	case Up, Down:
		n := len(snap.ItemIDs(active.BucketID))
		step := 1
		if dir == Up {
			step = -1
		}
		e.cursor = clamp(e.cursor+step, 0, n-1)
		return nil
	case Left, Right:
		current, _ := snap.Bucket(active.BucketID)
		step := 1
		if dir == Left {
			step = -1
		}
		next, ok := snap.BucketAt(current.Position + step)
		if !ok {
			return nil
		}
		return e.DragOver(next.ID)
	default:
		return fmt.Errorf("key move: unknown direction %d", dir)
	}
}

// KeyDrop drops the active item on the slot under the cursor.
func (e *Engine) KeyDrop() error {
	if e.state != Dragging || e.cursor < 0 {
		return ErrNotDragging
	}
	snap := e.store.Snapshot()
	active, ok := snap.Item(e.active)
	if !ok {
		e.reset()
		return fmt.Errorf("key drop: active item %q no longer exists", e.active)
	}
	ids := snap.ItemIDs(active.BucketID)
	return e.DragEnd(ids[clamp(e.cursor, 0, len(ids)-1)])
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
