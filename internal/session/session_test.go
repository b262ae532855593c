package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/engine"
	"github.com/lherron/boardq/internal/pager"
	"github.com/lherron/boardq/internal/syncer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// latestSink keeps the newest tuple written for each record.
type latestSink struct {
	mu      sync.Mutex
	items   map[string]domain.ItemOrder
	buckets map[string]domain.BucketPosition
}

func newLatestSink() *latestSink {
	return &latestSink{items: map[string]domain.ItemOrder{}, buckets: map[string]domain.BucketPosition{}}
}

func (s *latestSink) UpsertItemOrder(_ context.Context, rec domain.ItemOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[rec.ID]; !ok || rec.Version > cur.Version {
		s.items[rec.ID] = rec
	}
	return nil
}

func (s *latestSink) UpsertBucketPosition(_ context.Context, rec domain.BucketPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.buckets[rec.ID]; !ok || rec.Version > cur.Version {
		s.buckets[rec.ID] = rec
	}
	return nil
}

func twoColumns() board.Seed {
	return board.Seed{
		Buckets: []domain.Bucket{{ID: "col_1", Position: 0}, {ID: "col_2", Position: 1}},
		Items: []domain.Item{
			{ID: "c1", BucketID: "col_1", Order: 0},
			{ID: "c2", BucketID: "col_1", Order: 1},
			{ID: "c3", BucketID: "col_2", Order: 0},
		},
	}
}

func TestRunDragAcrossPages(t *testing.T) {
	sink := newLatestSink()
	sched := syncer.New(sink)

	t0 := time.Unix(1000, 0)
	var pages []int
	sess, err := New(twoColumns(),
		WithScheduler(sched),
		WithPager(pager.DefaultConfig(), 800),
		WithClock(func() time.Time { return t0 }),
		WithPageHandler(func(i int) { pages = append(pages, i) }),
	)
	require.NoError(t, err)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background(), events) }()

	events <- Event{Kind: KindDragStart, ItemID: "c1"}
	events <- Event{Kind: KindPointer, At: t0, X: 790}
	events <- Event{Kind: KindTick, At: t0.Add(400 * time.Millisecond)}
	events <- Event{Kind: KindDragOver, Target: "col_2"}
	events <- Event{Kind: KindDragEnd, Target: "c3"}
	close(events)
	require.NoError(t, <-done)
	sess.Flush()

	snap := sess.Snapshot()
	assert.Equal(t, []int{1}, pages)
	assert.Equal(t, 1, sess.Pager().Index())
	assert.Equal(t, []string{"c2"}, snap.ItemIDs("col_1"))
	assert.Equal(t, []string{"c1", "c3"}, snap.ItemIDs("col_2"))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, domain.ItemOrder{ID: "c1", BucketID: "col_2", Order: 0, Version: sink.items["c1"].Version}, sink.items["c1"])
	assert.Equal(t, 1, sink.items["c3"].Order)
	assert.Equal(t, 0, sink.items["c2"].Order)
}

func TestRunKeepsGoingAfterErrors(t *testing.T) {
	var failures []error
	sess, err := New(twoColumns(), WithErrorHandler(func(_ Event, err error) { failures = append(failures, err) }))
	require.NoError(t, err)

	events := make(chan Event, 4)
	events <- Event{Kind: KindDragOver, Target: "col_2"}
	events <- Event{Kind: KindMutate, Mutation: board.DeleteBucket{BucketID: "nope"}}
	events <- Event{Kind: KindMutate, Mutation: board.MoveItem{ItemID: "c2", TargetBucketID: "col_2", TargetIndex: 0}}
	close(events)

	require.NoError(t, sess.Run(context.Background(), events))
	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[0], engine.ErrNotDragging)
	assert.True(t, domain.IsInvariantViolation(failures[1]))
	assert.Equal(t, []string{"c2", "c3"}, sess.Snapshot().ItemIDs("col_2"))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sess, err := New(twoColumns())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx, make(chan Event)) }()
	cancel()

	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestRunPagesWhilePointerRests(t *testing.T) {
	cfg := pager.DefaultConfig()
	cfg.ArmDelay = 20 * time.Millisecond

	pages := make(chan int, 4)
	sess, err := New(twoColumns(),
		WithPager(cfg, 800),
		WithPageHandler(func(i int) { pages <- i }),
	)
	require.NoError(t, err)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background(), events) }()

	events <- Event{Kind: KindDragStart, ItemID: "c1"}
	events <- Event{Kind: KindPointer, X: 790}

	select {
	case index := <-pages:
		assert.Equal(t, 1, index)
	case <-time.After(2 * time.Second):
		t.Fatal("no page change without tick events")
	}

	events <- Event{Kind: KindDragCancel}
	close(events)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sess.Pager().Index())
}

func TestRunDropsWakeupWhenDragEnds(t *testing.T) {
	cfg := pager.DefaultConfig()
	cfg.ArmDelay = 50 * time.Millisecond

	pages := make(chan int, 4)
	sess, err := New(twoColumns(),
		WithPager(cfg, 800),
		WithPageHandler(func(i int) { pages <- i }),
	)
	require.NoError(t, err)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background(), events) }()

	events <- Event{Kind: KindDragStart, ItemID: "c1"}
	events <- Event{Kind: KindPointer, X: 790}
	events <- Event{Kind: KindDragEnd, Target: "c1"}

	select {
	case index := <-pages:
		t.Fatalf("page changed to %d after the drag ended", index)
	case <-time.After(150 * time.Millisecond):
	}

	close(events)
	require.NoError(t, <-done)
	assert.Equal(t, 0, sess.Pager().Index())
}

func TestPointerIgnoredWhileIdle(t *testing.T) {
	var pages []int
	sess, err := New(twoColumns(),
		WithPager(pager.DefaultConfig(), 800),
		WithPageHandler(func(i int) { pages = append(pages, i) }),
	)
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	require.NoError(t, sess.Handle(Event{Kind: KindPointer, At: t0, X: 790}))
	require.NoError(t, sess.Handle(Event{Kind: KindTick, At: t0.Add(time.Second)}))
	assert.Empty(t, pages)

	require.NoError(t, sess.Handle(Event{Kind: KindScroll, Offset: 790, PageWidth: 800}))
	assert.Equal(t, []int{1}, pages)
}

func TestBucketCountFollowsCommits(t *testing.T) {
	sess, err := New(twoColumns(), WithPager(pager.DefaultConfig(), 800))
	require.NoError(t, err)

	require.NoError(t, sess.Handle(Event{Kind: KindScroll, Offset: 800, PageWidth: 800}))
	require.Equal(t, 1, sess.Pager().Index())

	_, err = sess.Apply(board.MoveItem{ItemID: "c3", TargetBucketID: "col_1", TargetIndex: board.Append})
	require.NoError(t, err)
	_, err = sess.Apply(board.DeleteBucket{BucketID: "col_2"})
	require.NoError(t, err)

	assert.Equal(t, 1, sess.Pager().BucketCount())
	assert.Equal(t, 0, sess.Pager().Index())
}

func TestCancelRestorePolicy(t *testing.T) {
	sess, err := New(twoColumns(), WithCancelPolicy(engine.CancelRestore))
	require.NoError(t, err)
	start := sess.Snapshot()

	require.NoError(t, sess.Handle(Event{Kind: KindDragStart, ItemID: "c1"}))
	require.NoError(t, sess.Handle(Event{Kind: KindDragOver, Target: "col_2"}))
	require.NoError(t, sess.Handle(Event{Kind: KindDragCancel}))

	assert.Equal(t, start.ItemIDs("col_1"), sess.Snapshot().ItemIDs("col_1"))
	assert.Equal(t, start.ItemIDs("col_2"), sess.Snapshot().ItemIDs("col_2"))
}

func TestReplayScript(t *testing.T) {
	script, err := LoadScript(strings.NewReader(`
name: keyboard and mutations
viewport: 800
steps:
  - {at: 0, event: pick_up, item: c2}
  - {at: 10, event: key_move, dir: up}
  - {at: 20, event: drop}
  - {at: 30, event: move, item: c3, bucket: col_1, index: 0}
  - {at: 40, event: reorder, bucket: col_1, from: 2, to: 1}
  - {at: 50, event: delete, item: c1}
`))
	require.NoError(t, err)

	events, err := script.Events(time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, events, 7)
	assert.Equal(t, KindResize, events[0].Kind)

	sess, err := New(twoColumns())
	require.NoError(t, err)
	for _, ev := range events {
		require.NoError(t, sess.Handle(ev), ev.Kind)
	}

	// pick_up c2, up, drop: [c2 c1]; move c3 to front: [c3 c2 c1];
	// reorder 2->1: [c3 c1 c2]; delete c1: [c3 c2]
	assert.Equal(t, []string{"c3", "c2"}, sess.Snapshot().ItemIDs("col_1"))
	assert.Empty(t, sess.Snapshot().ItemIDs("col_2"))
}

func TestLoadScriptRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "steps:\n  - {at: 0, event: tick, bogus: 1}\n",
		"no steps":       "name: empty\n",
		"malformed yaml": "steps: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScript(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	script, err := LoadScript(strings.NewReader("steps:\n  - {at: 10, event: tick}\n  - {at: 5, event: tick}\n"))
	require.NoError(t, err)
	_, err = script.Events(time.Unix(0, 0))
	assert.ErrorContains(t, err, "before the previous step")

	script, err = LoadScript(strings.NewReader("steps:\n  - {at: 0, event: fly}\n"))
	require.NoError(t, err)
	_, err = script.Events(time.Unix(0, 0))
	assert.ErrorContains(t, err, "unknown event")
}
