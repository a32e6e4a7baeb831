package section

import (
	"testing"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/geometry"
)

func square(side float64) geometry.Polygon {
	h := side / 2
	return geometry.Polygon{Points: []geometry.Vec2{
		{E: -h, N: -h}, {E: h, N: -h}, {E: h, N: h}, {E: -h, N: h},
	}}
}

func testController() *Controller {
	bounds := geometry.BoundingBox{MinE: -60, MinN: -60, MaxE: 60, MaxN: 60}
	cov := coverage.NewEngine(bounds, 0.5)
	boundaries := Boundaries{
		Field: geometry.PolygonSet{Outer: square(100)},
	}
	tool := &config.ToolConfig{}
	return NewController(1, boundaries, cov, tool)
}

func TestManualButtonOffForcesOff(t *testing.T) {
	c := testController()
	c.MasterOn = true
	c.Sections[0].Button = ButtonOff

	centres := []geometry.Vec2{{E: 0, N: 0}}
	lefts := []geometry.Vec2{{E: -3, N: 0}}
	rights := []geometry.Vec2{{E: 3, N: 0}}

	bitmask := c.Update(centres, lefts, rights, 0, 0, 0, 5, 0.1)
	if bitmask != 0 {
		t.Errorf("expected bitmask 0 with button off, got %b", bitmask)
	}
}

func TestManualButtonOnForcesOnAndMapsImmediately(t *testing.T) {
	c := testController()
	c.MasterOn = true
	c.Sections[0].Button = ButtonOn

	centres := []geometry.Vec2{{E: 0, N: 0}}
	lefts := []geometry.Vec2{{E: -3, N: 0}}
	rights := []geometry.Vec2{{E: 3, N: 0}}

	bitmask := c.Update(centres, lefts, rights, 0, 0, 0, 5, 0.1)
	if bitmask&1 == 0 {
		t.Error("expected section 0 on with button On")
	}
	if !c.Sections[0].mapping {
		t.Error("expected mapping to begin immediately under manual On")
	}
}

func TestMasterOffForcesAllOff(t *testing.T) {
	c := testController()
	c.MasterOn = false
	c.Sections[0].Button = ButtonOn // even manual On is overridden by master off

	centres := []geometry.Vec2{{E: 0, N: 0}}
	lefts := []geometry.Vec2{{E: -3, N: 0}}
	rights := []geometry.Vec2{{E: 3, N: 0}}

	bitmask := c.Update(centres, lefts, rights, 0, 0, 0, 5, 0.1)
	if bitmask != 0 {
		t.Errorf("expected all off when MasterOn=false, got %b", bitmask)
	}
}

// Approximates spec.md §8 scenario 2: section turns off once the
// boundary fraction at the current position drops below 0.95.
func TestOutOfBoundaryForcesOffRegardlessOfLookAhead(t *testing.T) {
	c := testController()
	c.MasterOn = true
	c.Sections[0].Button = ButtonAuto
	c.Sections[0].IsOn = true // pretend it was already on

	// place the section fully outside the 100x100 square
	centres := []geometry.Vec2{{E: 0, N: 60}}
	lefts := []geometry.Vec2{{E: -3, N: 60}}
	rights := []geometry.Vec2{{E: 3, N: 60}}

	bitmask := c.Update(centres, lefts, rights, 0, 0, 0, 5, 0.1)
	if bitmask != 0 {
		t.Errorf("expected section forced off outside boundary, got %b", bitmask)
	}
}

func TestTurnOffStopsMappingPatch(t *testing.T) {
	c := testController()
	c.MasterOn = true
	c.Sections[0].Button = ButtonOn
	centres := []geometry.Vec2{{E: 0, N: 0}}
	lefts := []geometry.Vec2{{E: -3, N: 0}}
	rights := []geometry.Vec2{{E: 3, N: 0}}
	c.Update(centres, lefts, rights, 0, 0, 0, 5, 0.1)

	c.Sections[0].Button = ButtonOff
	c.Update(centres, lefts, rights, 0, 0, 0, 5, 0.1)
	if c.Sections[0].IsOn {
		t.Error("expected section off after button switched to Off")
	}
}

func TestOverlapZeroBeforeAnySweptDistance(t *testing.T) {
	c := testController()
	if got := c.Overlap(); got != 0 {
		t.Errorf("Overlap with no on-distance = %v, want 0", got)
	}
}

func TestOverlapRisesWhenRepeatedlyCoveringSameGround(t *testing.T) {
	c := testController()
	width := 6.0
	c.Tool.WidthMeters = &width

	// drive section 0 down a 10m straight line once: real worked ground.
	c.Coverage.StartMapping(0, geometry.Vec2{E: -3, N: 0}, geometry.Vec2{E: 3, N: 0}, 0)
	c.Coverage.AddCoveragePoint(0, geometry.Vec2{E: -3, N: 10}, geometry.Vec2{E: 3, N: 10})
	c.Coverage.StopMapping(0)

	// on-distance accumulated is double the actual worked length, as if
	// the same 10m strip were crossed twice.
	c.Sections[0].onDistanceM = 20

	got := c.Overlap()
	if got <= 0 {
		t.Errorf("Overlap after double-covering the same ground = %v, want > 0", got)
	}
	if got >= 1 {
		t.Errorf("Overlap = %v, want < 1", got)
	}
}
