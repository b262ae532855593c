package board

import (
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/id"
)

// CommitHook is called after every successful swap with the snapshot that
// was replaced and the one that replaced it.
type CommitHook func(before, after *Snapshot)

// Store exclusively owns the current Snapshot. Apply is meant to be called
// from a single goroutine; Snapshot may be read from any goroutine.
type Store struct {
	current atomic.Pointer[Snapshot]
	ids     id.Generator
	hooks   []CommitHook
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the identifier generator (default id.New).
func WithIDGenerator(gen id.Generator) Option {
	return func(s *Store) { s.ids = gen }
}

// WithCommitHook registers a hook fired after each committed mutation.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, hook) }
}

// NewStore normalizes seed and returns a Store holding it.
func NewStore(seed Seed, opts ...Option) (*Store, error) {
	snap, err := Normalize(seed)
	if err != nil {
		return nil, err
	}
	s := &Store{ids: id.New}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(snap)
	return s, nil
}

// Snapshot returns the current committed snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Apply derives the next snapshot from the current one and m, verifies
// every invariant, then swaps it in. On error the current snapshot is
// left untouched and the error is a *domain.InvariantViolation.
func (s *Store) Apply(m Mutation) (*Snapshot, error) {
	before := s.current.Load()
	d := before.draft()
	if err := m.apply(d, s.ids); err != nil {
		return before, asViolation(m.Name(), err)
	}
	after := d.freeze()
	if err := after.Verify(); err != nil {
		return before, asViolation(m.Name(), err)
	}
	s.current.Store(after)
	for _, hook := range s.hooks {
		hook(before, after)
	}
	return after, nil
}

// CreateItem appends a new item and returns it.
func (s *Store) CreateItem(bucketID string, payload json.RawMessage) (domain.Item, error) {
	m := CreateItem{ID: s.ids(id.KindItem), BucketID: bucketID, Payload: payload}
	snap, err := s.Apply(m)
	if err != nil {
		return domain.Item{}, err
	}
	item, _ := snap.Item(m.ID)
	return item, nil
}

// CreateBucket appends a new bucket and returns it.
func (s *Store) CreateBucket(payload json.RawMessage) (domain.Bucket, error) {
	m := CreateBucket{ID: s.ids(id.KindBucket), Payload: payload}
	snap, err := s.Apply(m)
	if err != nil {
		return domain.Bucket{}, err
	}
	bucket, _ := snap.Bucket(m.ID)
	return bucket, nil
}

func asViolation(op string, err error) error {
	var iv *domain.InvariantViolation
	if errors.As(err, &iv) {
		if iv.Op == "" || iv.Op == "verify" {
			return &domain.InvariantViolation{Op: op, Reason: iv.Reason}
		}
		return err
	}
	return &domain.InvariantViolation{Op: op, Reason: err.Error()}
}
