// Package session runs the foreground loop that owns a board store, its
// drag engine and pager, and forwards every commit to the sync scheduler.
package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/engine"
	"github.com/lherron/boardq/internal/id"
	"github.com/lherron/boardq/internal/pager"
	"github.com/lherron/boardq/internal/syncer"
)

// Kind names an input event.
type Kind string

const (
	KindDragStart  Kind = "drag_start"
	KindDragOver   Kind = "drag_over"
	KindDragEnd    Kind = "drag_end"
	KindDragCancel Kind = "drag_cancel"
	KindPickUp     Kind = "pick_up"
	KindKeyMove    Kind = "key_move"
	KindDrop       Kind = "drop"
	KindPointer    Kind = "pointer"
	KindTick       Kind = "tick"
	KindScroll     Kind = "scroll"
	KindResize     Kind = "resize"
	KindMutate     Kind = "mutate"
)

// Event is one input to the session. Only the fields used by Kind are
// read.
type Event struct {
	Kind      Kind
	At        time.Time        // pointer, tick; zero means now
	ItemID    string           // drag_start, pick_up
	Target    string           // drag_over, drag_end: item or bucket id
	Direction engine.Direction // key_move
	X         float64          // pointer
	Offset    float64          // scroll
	PageWidth float64          // scroll
	Width     float64          // resize
	Mutation  board.Mutation   // mutate
}

// Session wires a store, engine, pager and optional scheduler together.
// All methods must be called from one goroutine, the one running Run if
// Run is used.
type Session struct {
	store  *board.Store
	engine *engine.Engine
	pager  *pager.Pager
	sched  *syncer.Scheduler

	log     *zap.Logger
	now     func() time.Time
	onError func(Event, error)
	onPage  func(index int)
}

type settings struct {
	log        *zap.Logger
	sched      *syncer.Scheduler
	ids        id.Generator
	policy     engine.CancelPolicy
	pagerCfg   pager.Config
	width      float64
	now        func() time.Time
	onError    func(Event, error)
	onPage     func(int)
	extraHooks []board.CommitHook
}

// Option configures a Session.
type Option func(*settings)

// WithLogger sets the logger shared by the session's components.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithScheduler forwards every commit to sched.
func WithScheduler(sched *syncer.Scheduler) Option {
	return func(s *settings) { s.sched = sched }
}

// WithIDGenerator overrides the store's identifier generator.
func WithIDGenerator(gen id.Generator) Option {
	return func(s *settings) { s.ids = gen }
}

// WithCancelPolicy sets the engine's cancel policy.
func WithCancelPolicy(p engine.CancelPolicy) Option {
	return func(s *settings) { s.policy = p }
}

// WithPager sets the pager thresholds and initial viewport width.
func WithPager(cfg pager.Config, viewportWidth float64) Option {
	return func(s *settings) {
		s.pagerCfg = cfg
		s.width = viewportWidth
	}
}

// WithClock sets the time used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithErrorHandler receives every error returned while handling an event
// from Run.
func WithErrorHandler(fn func(Event, error)) Option {
	return func(s *settings) { s.onError = fn }
}

// WithPageHandler is called with the new index whenever the visible page
// changes.
func WithPageHandler(fn func(index int)) Option {
	return func(s *settings) { s.onPage = fn }
}

// WithCommitHook registers an additional store commit hook.
func WithCommitHook(hook board.CommitHook) Option {
	return func(s *settings) { s.extraHooks = append(s.extraHooks, hook) }
}

// New builds a session over seed.
func New(seed board.Seed, opts ...Option) (*Session, error) {
	st := settings{
		log:      zap.NewNop(),
		policy:   engine.CancelKeep,
		pagerCfg: pager.DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&st)
	}
	if err := st.pagerCfg.Validate(); err != nil {
		return nil, fmt.Errorf("pager config: %w", err)
	}

	s := &Session{
		sched:   st.sched,
		log:     st.log,
		now:     st.now,
		onError: st.onError,
		onPage:  st.onPage,
	}

	storeOpts := []board.Option{board.WithCommitHook(s.committed)}
	for _, h := range st.extraHooks {
		storeOpts = append(storeOpts, board.WithCommitHook(h))
	}
	if st.ids != nil {
		storeOpts = append(storeOpts, board.WithIDGenerator(st.ids))
	}
	store, err := board.NewStore(seed, storeOpts...)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.engine = engine.New(store, engine.WithCancelPolicy(st.policy), engine.WithLogger(st.log))
	s.pager = pager.New(st.pagerCfg, store.Snapshot().BucketCount(), st.width, pager.WithLogger(st.log))
	return s, nil
}

func (s *Session) committed(before, after *board.Snapshot) {
	if s.sched != nil {
		s.sched.OnSnapshotDelta(before, after)
	}
	if s.pager != nil && after.BucketCount() != before.BucketCount() {
		s.pager.SetBucketCount(after.BucketCount())
	}
}

// Store returns the session's store.
func (s *Session) Store() *board.Store { return s.store }

// Engine returns the session's drag engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Pager returns the session's pager.
func (s *Session) Pager() *pager.Pager { return s.pager }

// Snapshot returns the current board.
func (s *Session) Snapshot() *board.Snapshot { return s.store.Snapshot() }

// Apply commits a mutation outside of any gesture.
func (s *Session) Apply(m board.Mutation) (*board.Snapshot, error) {
	return s.store.Apply(m)
}

// Flush blocks until every scheduled write has finished.
func (s *Session) Flush() {
	if s.sched != nil {
		s.sched.Wait()
	}
}

// Run handles events until ctx is done or events is closed. Errors from a
// single event go to the error handler and do not stop the loop. While a
// drag has an armed page change, Run wakes itself at the deadline with a
// tick, so a pointer resting in an edge zone pages without further input.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var wake <-chan time.Time
		if deadline, ok := s.pendingPage(); ok {
			d := deadline.Sub(s.now())
			if d < 0 {
				d = 0
			}
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			wake = timer.C
		} else if timer != nil {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
			s.dispatch(Event{Kind: KindTick})
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.dispatch(ev)
		}
	}
}

// pendingPage returns the deadline of an armed page change during a drag.
func (s *Session) pendingPage() (time.Time, bool) {
	if s.engine.State() != engine.Dragging {
		return time.Time{}, false
	}
	edge, deadline := s.pager.Armed()
	return deadline, edge != pager.EdgeNone
}

func (s *Session) dispatch(ev Event) {
	if err := s.Handle(ev); err != nil {
		s.log.Debug("event failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		if s.onError != nil {
			s.onError(ev, err)
		}
	}
}

// Handle processes one event to completion.
func (s *Session) Handle(ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}

	switch ev.Kind {
	case KindDragStart:
		return s.engine.DragStart(ev.ItemID)
	case KindDragOver:
		return s.engine.DragOver(ev.Target)
	case KindDragEnd:
		s.pager.DragEnd()
		return s.engine.DragEnd(ev.Target)
	case KindDragCancel:
		s.pager.DragEnd()
		return s.engine.DragCancel()
	case KindPickUp:
		return s.engine.KeyPickUp(ev.ItemID)
	case KindKeyMove:
		return s.engine.KeyMove(ev.Direction)
	case KindDrop:
		return s.engine.KeyDrop()
	case KindPointer:
		// Auto-paging only follows a dragged item.
		if s.engine.State() == engine.Dragging {
			s.paged(s.pager.PointerMove(at, ev.X))
		}
	case KindTick:
		if s.engine.State() == engine.Dragging {
			s.paged(s.pager.Tick(at))
		}
	case KindScroll:
		s.paged(s.pager.ManualScroll(ev.Offset, ev.PageWidth))
	case KindResize:
		s.pager.SetViewportWidth(ev.Width)
	case KindMutate:
		if ev.Mutation == nil {
			return fmt.Errorf("mutate event without a mutation")
		}
		_, err := s.store.Apply(ev.Mutation)
		return err
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

func (s *Session) paged(r pager.Result) {
	if !r.Changed {
		return
	}
	s.log.Debug("page changed", zap.Int("index", r.Index))
	if s.onPage != nil {
		s.onPage(r.Index)
	}
}
