package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

func newBoard(t *testing.T) *board.Store {
	t.Helper()
	s, err := board.NewStore(board.Seed{
		Buckets: []domain.Bucket{{ID: "X", Position: 0}, {ID: "Y", Position: 1}, {ID: "Z", Position: 2}},
		Items: []domain.Item{
			{ID: "a", BucketID: "X", Order: 0},
			{ID: "b", BucketID: "X", Order: 1},
			{ID: "c", BucketID: "X", Order: 2},
			{ID: "d", BucketID: "Y", Order: 0},
			{ID: "e", BucketID: "Y", Order: 1},
		},
	})
	require.NoError(t, err)
	return s
}

func TestDragOver_CrossBucketAppliesImmediately(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.DragStart("a"))
	require.NoError(t, e.DragOver("Y"))

	assert.Equal(t, Dragging, e.State())
	assert.Equal(t, []string{"b", "c"}, s.Snapshot().ItemIDs("X"))
	assert.Equal(t, []string{"d", "e", "a"}, s.Snapshot().ItemIDs("Y"))
}

func TestDragOver_ItemTargetResolvesToItsBucket(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.DragStart("c"))
	require.NoError(t, e.DragOver("d"))
	assert.Equal(t, []string{"d", "e", "c"}, s.Snapshot().ItemIDs("Y"))

	// hovering back over an item of the new bucket is not a reorder
	require.NoError(t, e.DragOver("e"))
	assert.Equal(t, []string{"d", "e", "c"}, s.Snapshot().ItemIDs("Y"))
}

func TestDragOver_SameBucketDoesNotReorder(t *testing.T) {
	s := newBoard(t)
	e := New(s)
	before := s.Snapshot()

	require.NoError(t, e.DragStart("a"))
	require.NoError(t, e.DragOver("c"))
	require.NoError(t, e.DragOver("X"))
	require.NoError(t, e.DragOver(""))
	require.NoError(t, e.DragOver("unknown"))
	require.NoError(t, e.DragOver("a"))

	assert.Same(t, before, s.Snapshot())
}

func TestDragEnd_ReordersWithinBucket(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.DragStart("a"))
	require.NoError(t, e.DragEnd("c"))

	assert.Equal(t, Idle, e.State())
	assert.Equal(t, []string{"b", "c", "a"}, s.Snapshot().ItemIDs("X"))
}

func TestDragEnd_UsesPostReassignmentSlot(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.DragStart("a"))
	require.NoError(t, e.DragOver("Y"))
	require.NoError(t, e.DragEnd("d"))

	assert.Equal(t, []string{"a", "d", "e"}, s.Snapshot().ItemIDs("Y"))
	assert.Equal(t, []string{"b", "c"}, s.Snapshot().ItemIDs("X"))
}

func TestDragEnd_ItemInOtherBucketIsNoop(t *testing.T) {
	s := newBoard(t)
	e := New(s)
	before := s.Snapshot()

	require.NoError(t, e.DragStart("a"))
	require.NoError(t, e.DragEnd("d"))

	assert.Same(t, before, s.Snapshot())
	assert.Equal(t, Idle, e.State())
}

func TestDragEnd_OnBucketKeepsReassignment(t *testing.T) {
	s := newBoard(t)
	e := New(s, WithCancelPolicy(CancelRestore))

	require.NoError(t, e.DragStart("a"))
	require.NoError(t, e.DragOver("Z"))
	require.NoError(t, e.DragEnd("Z"))

	assert.Equal(t, []string{"a"}, s.Snapshot().ItemIDs("Z"))
}

func TestCancelKeep_NoRollback(t *testing.T) {
	tests := []struct {
		name   string
		finish func(e *Engine) error
	}{
		{name: "cancel", finish: func(e *Engine) error { return e.DragCancel() }},
		{name: "drop without target", finish: func(e *Engine) error { return e.DragEnd("") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newBoard(t)
			e := New(s)

			require.NoError(t, e.DragStart("b"))
			require.NoError(t, e.DragOver("Z"))
			require.NoError(t, tt.finish(e))

			assert.Equal(t, Idle, e.State())
			assert.Equal(t, "", e.Active())
			assert.Equal(t, []string{"b"}, s.Snapshot().ItemIDs("Z"))
			assert.Equal(t, []string{"a", "c"}, s.Snapshot().ItemIDs("X"))
		})
	}
}

func TestCancelRestore_Rollback(t *testing.T) {
	tests := []struct {
		name   string
		finish func(e *Engine) error
	}{
		{name: "cancel", finish: func(e *Engine) error { return e.DragCancel() }},
		{name: "drop without target", finish: func(e *Engine) error { return e.DragEnd("") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newBoard(t)
			e := New(s, WithCancelPolicy(CancelRestore))
			start := s.Snapshot()

			require.NoError(t, e.DragStart("b"))
			require.NoError(t, e.DragOver("Y"))
			require.NoError(t, e.DragOver("Z"))
			require.NoError(t, tt.finish(e))

			assert.Equal(t, start.Items(), s.Snapshot().Items())
			assert.Equal(t, Idle, e.State())
		})
	}
}

func TestCancelRestore_NothingToRestore(t *testing.T) {
	s := newBoard(t)
	e := New(s, WithCancelPolicy(CancelRestore))
	before := s.Snapshot()

	require.NoError(t, e.DragStart("b"))
	require.NoError(t, e.DragCancel())
	assert.Same(t, before, s.Snapshot())
}

func TestEventsWhileIdle(t *testing.T) {
	e := New(newBoard(t))

	assert.ErrorIs(t, e.DragOver("Y"), ErrNotDragging)
	assert.ErrorIs(t, e.DragEnd("a"), ErrNotDragging)
	assert.ErrorIs(t, e.KeyMove(Down), ErrNotDragging)
	assert.ErrorIs(t, e.KeyDrop(), ErrNotDragging)
	assert.NoError(t, e.DragCancel())
}

func TestDragStart_UnknownItem(t *testing.T) {
	e := New(newBoard(t))
	require.Error(t, e.DragStart("nope"))
	assert.Equal(t, Idle, e.State())
}

func TestActiveItemDeletedMidDrag(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.DragStart("a"))
	_, err := s.Apply(board.DeleteItem{ItemID: "a"})
	require.NoError(t, err)

	require.Error(t, e.DragOver("Y"))
	assert.Equal(t, Idle, e.State())
}

func TestKeyboard_ReorderWithinBucket(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.KeyPickUp("b"))
	assert.Equal(t, 1, e.Cursor())
	require.NoError(t, e.KeyMove(Down))
	require.NoError(t, e.KeyMove(Down)) // clamped at the last slot
	assert.Equal(t, 2, e.Cursor())
	assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot().ItemIDs("X"), "moving the cursor must not reorder")

	require.NoError(t, e.KeyDrop())
	assert.Equal(t, []string{"a", "c", "b"}, s.Snapshot().ItemIDs("X"))
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, -1, e.Cursor())
}

func TestKeyboard_AcrossBuckets(t *testing.T) {
	s := newBoard(t)
	e := New(s)

	require.NoError(t, e.KeyPickUp("b"))
	require.NoError(t, e.KeyMove(Left)) // no bucket left of X
	assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot().ItemIDs("X"))

	require.NoError(t, e.KeyMove(Right))
	assert.Equal(t, []string{"d", "e", "b"}, s.Snapshot().ItemIDs("Y"))
	assert.Equal(t, 2, e.Cursor())

	require.NoError(t, e.KeyMove(Up))
	require.NoError(t, e.KeyDrop())
	assert.Equal(t, []string{"d", "b", "e"}, s.Snapshot().ItemIDs("Y"))
}

func TestKeyboard_DropOnOwnSlot(t *testing.T) {
	s := newBoard(t)
	e := New(s)
	before := s.Snapshot()

	require.NoError(t, e.KeyPickUp("a"))
	require.NoError(t, e.KeyDrop())
	assert.Same(t, before, s.Snapshot())
}

func TestParseCancelPolicy(t *testing.T) {
	p, err := ParseCancelPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CancelKeep, p)

	p, err = ParseCancelPolicy("restore")
	require.NoError(t, err)
	assert.Equal(t, CancelRestore, p)

	_, err = ParseCancelPolicy("rollback")
	require.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	for name, want := range map[string]Direction{"up": Up, "down": Down, "left": Left, "right": Right} {
		got, err := ParseDirection(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDirection("sideways")
	require.Error(t, err)
}
