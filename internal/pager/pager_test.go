package pager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

// 400px wide: zones are x < 60 and x > 340.
func newNarrow(buckets int) *Pager {
	return New(DefaultConfig(), buckets, 400)
}

func TestScenarioD(t *testing.T) {
	p := newNarrow(3)

	res := p.PointerMove(at(0), 390)
	assert.Equal(t, Result{Index: 0}, res)
	edge, deadline := p.Armed()
	assert.Equal(t, EdgeRight, edge)
	assert.Equal(t, at(400), deadline)

	res = p.Tick(at(399))
	assert.False(t, res.Changed)

	res = p.Tick(at(400))
	assert.Equal(t, Result{Changed: true, Index: 1}, res)

	// Leave and re-enter during cooldown.
	p.PointerMove(at(420), 200)
	res = p.PointerMove(at(450), 390)
	assert.False(t, res.Changed)
	edge, _ = p.Armed()
	assert.Equal(t, EdgeNone, edge)

	res = p.Tick(at(900))
	assert.False(t, res.Changed)
	assert.Equal(t, 1, p.Index())
}

func TestLeavingBeforeDelayCancels(t *testing.T) {
	p := newNarrow(3)
	p.PointerMove(at(0), 390)
	p.PointerMove(at(399), 200)

	res := p.Tick(at(1000))
	assert.Equal(t, Result{Index: 0}, res)
}

func TestStayingPagesExactlyOncePerArm(t *testing.T) {
	p := newNarrow(3)
	p.PointerMove(at(0), 390)

	changes := 0
	for ms := 0; ms <= 1000; ms += 50 {
		if p.Tick(at(ms)).Changed {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
	assert.Equal(t, 1, p.Index())
}

func TestRearmsAfterCooldown(t *testing.T) {
	p := newNarrow(3)
	p.PointerMove(at(0), 390)
	require.True(t, p.Tick(at(400)).Changed)

	// Exactly cooldown elapsed is not enough.
	p.Tick(at(1000))
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge)

	p.Tick(at(1001))
	edge, deadline := p.Armed()
	assert.Equal(t, EdgeRight, edge)
	assert.Equal(t, at(1401), deadline)

	assert.Equal(t, Result{Changed: true, Index: 2}, p.Tick(at(1401)))

	// Last page: no neighbor so nothing arms.
	p.Tick(at(5000))
	edge, _ = p.Armed()
	assert.Equal(t, EdgeNone, edge)
}

func TestLeftEdgePagesBack(t *testing.T) {
	p := newNarrow(3)
	p.ScrollTo(2)

	p.PointerMove(at(0), 10)
	assert.Equal(t, Result{Changed: true, Index: 1}, p.Tick(at(400)))
}

func TestNoNeighborNoArm(t *testing.T) {
	p := newNarrow(3)
	p.PointerMove(at(0), 10)
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge)
	assert.False(t, p.Tick(at(2000)).Changed)
}

func TestDeadlinePassedBeforeLeavingStillPages(t *testing.T) {
	p := newNarrow(3)
	p.PointerMove(at(0), 390)

	res := p.PointerMove(at(500), 200)
	assert.Equal(t, Result{Changed: true, Index: 1}, res)

	assert.Equal(t, Result{Index: 1}, p.Tick(at(1000)))
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge)
}

func TestDeadlinePassedBeforeSwitchingZonesPagesOnce(t *testing.T) {
	p := newNarrow(3)
	p.ScrollTo(1)
	p.PointerMove(at(0), 390)

	assert.Equal(t, Result{Changed: true, Index: 2}, p.PointerMove(at(450), 10))

	// Cooldown runs from the deadline at 400, so the left zone arms after 1000.
	p.PointerMove(at(1000), 10)
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge)

	p.PointerMove(at(1001), 10)
	edge, deadline := p.Armed()
	assert.Equal(t, EdgeLeft, edge)
	assert.Equal(t, at(1401), deadline)
}

func TestSwitchingZonesRestartsDelay(t *testing.T) {
	p := newNarrow(3)
	p.ScrollTo(1)

	p.PointerMove(at(0), 390)
	p.PointerMove(at(300), 10)
	edge, deadline := p.Armed()
	assert.Equal(t, EdgeLeft, edge)
	assert.Equal(t, at(700), deadline)

	assert.False(t, p.Tick(at(400)).Changed)
	assert.Equal(t, Result{Changed: true, Index: 0}, p.Tick(at(700)))
}

func TestWideViewportNeverPages(t *testing.T) {
	p := New(DefaultConfig(), 3, 1024)
	p.PointerMove(at(0), 1020)
	assert.False(t, p.Tick(at(5000)).Changed)
	assert.Equal(t, EdgeNone, p.EdgeHint(1020))

	p.SetViewportWidth(800)
	p.PointerMove(at(6000), 790)
	assert.True(t, p.Tick(at(6400)).Changed)

	p.PointerMove(at(8000), 790)
	p.SetViewportWidth(1200)
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge)
}

func TestDragEndDisarms(t *testing.T) {
	p := newNarrow(3)
	p.PointerMove(at(0), 390)
	p.DragEnd()
	assert.False(t, p.Tick(at(1000)).Changed)
}

func TestManualScroll(t *testing.T) {
	p := newNarrow(4)

	assert.Equal(t, Result{Changed: true, Index: 1}, p.ManualScroll(380, 400))
	assert.Equal(t, Result{Changed: true, Index: 2}, p.ManualScroll(600, 400))
	assert.Equal(t, Result{Index: 2}, p.ManualScroll(799, 400))
	assert.Equal(t, Result{Changed: true, Index: 3}, p.ManualScroll(99999, 400))
	assert.Equal(t, Result{Changed: true, Index: 0}, p.ManualScroll(-500, 400))
	assert.Equal(t, Result{Index: 0}, p.ManualScroll(100, 0))
}

func TestManualScrollLeavesCooldownAlone(t *testing.T) {
	p := newNarrow(4)
	p.PointerMove(at(0), 390)
	require.True(t, p.Tick(at(400)).Changed)

	p.ManualScroll(0, 400)
	p.PointerMove(at(500), 390)
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge, "cooldown still running from the auto page")
}

func TestSetBucketCountClamps(t *testing.T) {
	p := newNarrow(4)
	p.ScrollTo(3)
	p.SetBucketCount(2)
	assert.Equal(t, 1, p.Index())

	p.SetBucketCount(0)
	assert.Equal(t, 0, p.Index())
	assert.Equal(t, Result{Index: 0}, p.ScrollTo(5))
}

func TestSetBucketCountDisarmsWithoutNeighbor(t *testing.T) {
	p := newNarrow(3)
	p.ScrollTo(1)
	p.PointerMove(at(0), 390)
	p.SetBucketCount(2)
	edge, _ := p.Armed()
	assert.Equal(t, EdgeNone, edge)
}

func TestEdgeHint(t *testing.T) {
	p := newNarrow(3)
	assert.Equal(t, EdgeLeft, p.EdgeHint(0))
	assert.Equal(t, EdgeLeft, p.EdgeHint(59))
	assert.Equal(t, EdgeNone, p.EdgeHint(60))
	assert.Equal(t, EdgeNone, p.EdgeHint(340))
	assert.Equal(t, EdgeRight, p.EdgeHint(341))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.EdgeFraction = 0.6
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Cooldown = -time.Second
	assert.Error(t, cfg.Validate())
}
