// Package pager decides when a drag near a viewport edge should flip the
// visible bucket page on narrow screens.
//
// The pager has no timers of its own. Callers feed it pointer moves and
// ticks with explicit timestamps, which keeps it deterministic.
package pager

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Config holds the auto-paging thresholds.
type Config struct {
	// EdgeFraction is the share of the viewport width on each side that
	// counts as an edge zone.
	EdgeFraction float64
	// ArmDelay is how long the pointer must stay in a zone before paging.
	ArmDelay time.Duration
	// Cooldown is the minimum time between two page changes.
	Cooldown time.Duration
	// NarrowBreakpoint is the width at or above which auto-paging is off.
	NarrowBreakpoint float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		EdgeFraction:     0.15,
		ArmDelay:         400 * time.Millisecond,
		Cooldown:         600 * time.Millisecond,
		NarrowBreakpoint: 1024,
	}
}

// Validate reports configuration values that can never work.
func (c Config) Validate() error {
	if c.EdgeFraction <= 0 || c.EdgeFraction >= 0.5 {
		return fmt.Errorf("edge fraction must be in (0, 0.5), got %v", c.EdgeFraction)
	}
	if c.ArmDelay < 0 || c.Cooldown < 0 {
		return fmt.Errorf("arm delay and cooldown must not be negative")
	}
	if c.NarrowBreakpoint <= 0 {
		return fmt.Errorf("narrow breakpoint must be positive, got %v", c.NarrowBreakpoint)
	}
	return nil
}

// Edge is one of the two edge zones.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeLeft
	EdgeRight
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return "none"
	}
}

func (e Edge) step() int {
	switch e {
	case EdgeLeft:
		return -1
	case EdgeRight:
		return 1
	default:
		return 0
	}
}

// Result reports the outcome of a pager input.
type Result struct {
	Changed bool
	Index   int
}

// Pager tracks the visible bucket page. Not safe for concurrent use.
type Pager struct {
	cfg   Config
	log   *zap.Logger
	width float64
	count int
	index int

	pointer    float64
	hasPointer bool

	armed    Edge
	deadline time.Time

	lastChange time.Time
	hasChanged bool
}

// Option configures a Pager.
type Option func(*Pager)

// WithLogger sets a logger for page change events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pager) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a pager on page 0.
func New(cfg Config, bucketCount int, viewportWidth float64, opts ...Option) *Pager {
	p := &Pager{cfg: cfg, log: zap.NewNop(), width: viewportWidth}
	for _, opt := range opts {
		opt(p)
	}
	p.SetBucketCount(bucketCount)
	return p
}

// Index returns the visible page.
func (p *Pager) Index() int { return p.index }

// BucketCount returns the number of pages.
func (p *Pager) BucketCount() int { return p.count }

// Armed returns the armed edge and its deadline, or EdgeNone.
func (p *Pager) Armed() (Edge, time.Time) {
	if p.armed == EdgeNone {
		return EdgeNone, time.Time{}
	}
	return p.armed, p.deadline
}

// Narrow reports whether auto-paging applies at the current width.
func (p *Pager) Narrow() bool {
	return p.width > 0 && p.width < p.cfg.NarrowBreakpoint
}

// EdgeHint reports which edge zone x falls in. Always EdgeNone on wide
// viewports.
func (p *Pager) EdgeHint(x float64) Edge {
	if !p.Narrow() {
		return EdgeNone
	}
	zone := p.width * p.cfg.EdgeFraction
	switch {
	case x < zone:
		return EdgeLeft
	case x > p.width-zone:
		return EdgeRight
	default:
		return EdgeNone
	}
}

// PointerMove records the live pointer position during a drag and
// evaluates the edge zones.
func (p *Pager) PointerMove(now time.Time, x float64) Result {
	p.pointer = x
	p.hasPointer = true
	return p.evaluate(now)
}

// Tick re-evaluates the zones for a stationary pointer.
func (p *Pager) Tick(now time.Time) Result {
	return p.evaluate(now)
}

// DragEnd forgets the pointer and disarms any pending page change.
func (p *Pager) DragEnd() {
	p.hasPointer = false
	p.disarm()
}

// ManualScroll snaps the index to the page nearest offset. It touches
// neither the timers nor the cooldown clock.
func (p *Pager) ManualScroll(offset, pageWidth float64) Result {
	if pageWidth <= 0 {
		return Result{Index: p.index}
	}
	return p.setIndex(int(math.Round(offset / pageWidth)))
}

// ScrollTo jumps to index, clamped. Used for pagination dots.
func (p *Pager) ScrollTo(index int) Result {
	return p.setIndex(index)
}

// SetBucketCount updates the number of pages and clamps the index.
func (p *Pager) SetBucketCount(n int) {
	if n < 0 {
		n = 0
	}
	p.count = n
	p.index = p.clamp(p.index)
	if p.armed != EdgeNone && !p.hasNeighbor(p.armed) {
		p.disarm()
	}
}

// SetViewportWidth updates the viewport width. Crossing to a wide
// viewport disarms.
func (p *Pager) SetViewportWidth(w float64) {
	p.width = w
	p.index = p.clamp(p.index)
	if !p.Narrow() {
		p.disarm()
	}
}

func (p *Pager) evaluate(now time.Time) Result {
	if !p.hasPointer || !p.Narrow() || p.count <= 1 {
		p.disarm()
		return Result{Index: p.index}
	}

	// A deadline that passed between events still fires, stamped with
	// the deadline itself, before the pointer's current zone is looked at.
	if p.armed != EdgeNone && !now.Before(p.deadline) {
		edge, due := p.armed, p.deadline
		p.disarm()
		res := p.setIndex(p.index + edge.step())
		if res.Changed {
			p.lastChange = due
			p.hasChanged = true
			p.log.Debug("auto page", zap.String("edge", edge.String()), zap.Int("index", res.Index))
		}
		return res
	}

	zone := p.EdgeHint(p.pointer)
	if zone != p.armed {
		p.disarm()
	}

	if p.armed == EdgeNone && zone != EdgeNone && p.hasNeighbor(zone) && p.cooledDown(now) {
		p.armed = zone
		p.deadline = now.Add(p.cfg.ArmDelay)
	}
	return Result{Index: p.index}
}

func (p *Pager) cooledDown(now time.Time) bool {
	return !p.hasChanged || now.Sub(p.lastChange) > p.cfg.Cooldown
}

func (p *Pager) hasNeighbor(e Edge) bool {
	next := p.index + e.step()
	return next >= 0 && next < p.count && next != p.index
}

func (p *Pager) disarm() {
	p.armed = EdgeNone
	p.deadline = time.Time{}
}

func (p *Pager) setIndex(i int) Result {
	i = p.clamp(i)
	changed := i != p.index
	p.index = i
	return Result{Changed: changed, Index: i}
}

func (p *Pager) clamp(i int) int {
	if p.count == 0 || i < 0 {
		return 0
	}
	if i > p.count-1 {
		return p.count - 1
	}
	return i
}
