// Package syncer turns board snapshot deltas into independent,
// fire-and-forget write tasks against a remote sink.
//
// Writes are not deduplicated, ordered or retried. Each carries a version
// stamp that strictly increases per record so the remote side can drop a
// late-arriving stale write.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
)

const defaultWriteTimeout = 5 * time.Second

// Sink is the remote persistence target for order state.
type Sink interface {
	UpsertItemOrder(ctx context.Context, rec domain.ItemOrder) error
	UpsertBucketPosition(ctx context.Context, rec domain.BucketPosition) error
}

// RecordSink is a Sink that also stores full records and deletions.
type RecordSink interface {
	Sink
	UpsertItem(ctx context.Context, rec domain.ItemRecord) error
	UpsertBucket(ctx context.Context, rec domain.BucketRecord) error
	DeleteItem(ctx context.Context, itemID string, version int64) error
	DeleteBucket(ctx context.Context, bucketID string, version int64) error
}

// Reporter receives write failures. It is the observability sink; the
// local board state is never rolled back.
type Reporter interface {
	ReportFailure(f *domain.PersistenceFailure)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(f *domain.PersistenceFailure)

// ReportFailure calls fn(f).
func (fn ReporterFunc) ReportFailure(f *domain.PersistenceFailure) { fn(f) }

type logReporter struct {
	log *zap.Logger
}

func (r logReporter) ReportFailure(f *domain.PersistenceFailure) {
	r.log.Warn("remote write failed",
		zap.String("op", f.Op),
		zap.String("record", f.RecordID),
		zap.Int64("version", f.Version),
		zap.Error(f.Err),
	)
}

// Scheduler diffs snapshots and fires one background task per changed
// record.
type Scheduler struct {
	sink     Sink
	records  RecordSink // nil unless sink implements RecordSink
	reporter Reporter
	log      *zap.Logger
	now      func() time.Time
	timeout  time.Duration
	base     context.Context

	group errgroup.Group
	sem   *semaphore.Weighted // nil when unbounded

	mu       sync.Mutex
	versions map[string]int64

	pending   atomic.Int64
	scheduled atomic.Int64
	failed    atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger. Failures are logged through it
// unless WithReporter is given.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReporter overrides the failure reporter.
func WithReporter(r Reporter) Option {
	return func(s *Scheduler) { s.reporter = r }
}

// WithClock overrides the clock version stamps are derived from.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMaxConcurrency bounds the number of writes talking to the sink at
// once. Scheduling itself never blocks; excess tasks queue on the
// semaphore. Zero or negative means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		} else {
			s.sem = nil
		}
	}
}

// WithWriteTimeout bounds each write (default 5s).
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithContext sets the parent context of every write.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) { s.base = ctx }
}

// New returns a Scheduler writing to sink.
func New(sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:     sink,
		log:      zap.NewNop(),
		now:      time.Now,
		timeout:  defaultWriteTimeout,
		base:     context.Background(),
		versions: make(map[string]int64),
	}
	if rs, ok := sink.(RecordSink); ok {
		s.records = rs
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = logReporter{log: s.log}
	}
	return s
}

// Hook returns a board.CommitHook feeding this scheduler.
func (s *Scheduler) Hook() board.CommitHook {
	return func(before, after *board.Snapshot) {
		s.OnSnapshotDelta(before, after)
	}
}

// OnSnapshotDelta schedules writes for every record that differs between
// before and after, and returns the stamped intents. It never waits for
// the writes to complete.
func (s *Scheduler) OnSnapshotDelta(before, after *board.Snapshot) []Intent {
	intents := Diff(before, after, s.records != nil)
	for i := range intents {
		intents[i].stamp(s.nextVersion(intents[i].versionKey()))
		s.dispatch(intents[i])
	}
	if len(intents) > 0 {
		s.log.Debug("writes scheduled", zap.Int("count", len(intents)))
	}
	return intents
}

// Wait blocks until every scheduled write has finished. Only meant for
// process shutdown.
func (s *Scheduler) Wait() {
	_ = s.group.Wait()
}

// Pending returns the number of in-flight writes
func (s *Scheduler) Pending() int64 { return s.pending.Load() }

// Scheduled returns the total number of writes scheduled
func (s *Scheduler) Scheduled() int64 { return s.scheduled.Load() }

// Failed returns the total number of writes that failed
func (s *Scheduler) Failed() int64 { return s.failed.Load() }

func (s *Scheduler) nextVersion(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.now().UnixNano()
	if prev := s.versions[key]; v <= prev {
		v = prev + 1
	}
	s.versions[key] = v
	return v
}

func (s *Scheduler) dispatch(in Intent) {
	s.pending.Add(1)
	s.scheduled.Add(1)
	s.group.Go(func() error {
		defer s.pending.Add(-1)
		if s.sem != nil {
			// Acquire fails only once base is done. The write then
			// fails on its own derived context.
			if err := s.sem.Acquire(s.base, 1); err == nil {
				defer s.sem.Release(1)
			}
		}
		ctx, cancel := context.WithTimeout(s.base, s.timeout)
		defer cancel()
		if err := s.write(ctx, in); err != nil {
			s.failed.Add(1)
			s.reporter.ReportFailure(&domain.PersistenceFailure{
				Op:       string(in.Kind),
				RecordID: in.ID,
				Version:  in.Version,
				Err:      err,
			})
		}
		return nil
	})
}

func (s *Scheduler) write(ctx context.Context, in Intent) error {
	switch in.Kind {
	case KindItemOrder:
		return s.sink.UpsertItemOrder(ctx, in.ItemOrder)
	case KindBucketPosition:
		return s.sink.UpsertBucketPosition(ctx, in.BucketPosition)
	}
	if s.records == nil {
		return fmt.Errorf("sink does not accept %s", in.Kind)
	}
	switch in.Kind {
	case KindItemRecord:
		return s.records.UpsertItem(ctx, in.Item)
	case KindBucketRecord:
		return s.records.UpsertBucket(ctx, in.Bucket)
	case KindItemDelete:
		return s.records.DeleteItem(ctx, in.ID, in.Version)
	case KindBucketDelete:
		return s.records.DeleteBucket(ctx, in.ID, in.Version)
	default:
		return fmt.Errorf("unknown intent kind %q", in.Kind)
	}
}
