package coverage

import (
	"math"
	"testing"

	"github.com/fieldline/groundloop/internal/geometry"
)

func testEngine() *Engine {
	bounds := geometry.BoundingBox{MinE: -50, MinN: -50, MaxE: 50, MaxN: 50}
	return NewEngine(bounds, 0.5)
}

// spec.md §8 idempotence law: StartMapping;StopMapping with no
// AddCoveragePoint creates no patch.
func TestStartStopMappingWithNoPointsCreatesNoPatch(t *testing.T) {
	e := testEngine()
	e.StartMapping(0, geometry.Vec2{E: 0, N: 0}, geometry.Vec2{E: 1, N: 0}, 0)
	e.StopMapping(0)
	if e.TotalWorkedArea() != 0 {
		t.Errorf("expected zero worked area, got %v", e.TotalWorkedArea())
	}
}

func TestAddCoveragePointRejectsTooClose(t *testing.T) {
	e := testEngine()
	e.StartMapping(0, geometry.Vec2{E: 0, N: 0}, geometry.Vec2{E: 1, N: 0}, 0)
	e.AddCoveragePoint(0, geometry.Vec2{E: 0, N: 0.01}, geometry.Vec2{E: 1, N: 0.01}) // too close
	e.AddCoveragePoint(0, geometry.Vec2{E: 0, N: 1}, geometry.Vec2{E: 1, N: 1})        // far enough
	e.StopMapping(0)
	patches := e.patches[0]
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(patches))
	}
	if len(patches[0].Left) != 2 {
		t.Errorf("expected 2 retained vertex pairs (reject the too-close one), got %d", len(patches[0].Left))
	}
}

func TestIsPointCoveredAfterMapping(t *testing.T) {
	e := testEngine()
	e.StartMapping(0, geometry.Vec2{E: -1, N: 0}, geometry.Vec2{E: 1, N: 0}, 0)
	e.AddCoveragePoint(0, geometry.Vec2{E: -1, N: 5}, geometry.Vec2{E: 1, N: 5})
	e.StopMapping(0)

	if !e.IsPointCovered(0, 2.5) {
		t.Error("expected centre of the strip to be covered")
	}
	if e.IsPointCovered(20, 20) {
		t.Error("expected far point to be uncovered")
	}
}

func TestFlushUpdateOnlyOnceTillNextMutation(t *testing.T) {
	e := testEngine()
	e.StartMapping(0, geometry.Vec2{E: 0, N: 0}, geometry.Vec2{E: 1, N: 0}, 0)
	e.AddCoveragePoint(0, geometry.Vec2{E: 0, N: 1}, geometry.Vec2{E: 1, N: 1})
	if !e.FlushUpdate() {
		t.Error("expected dirty flag set after AddCoveragePoint")
	}
	if e.FlushUpdate() {
		t.Error("expected flush to clear the dirty flag")
	}
}

func TestRLESaveLoadRoundTrip(t *testing.T) {
	e := testEngine()
	e.StartMapping(0, geometry.Vec2{E: -2, N: -2}, geometry.Vec2{E: 2, N: -2}, 0)
	e.AddCoveragePoint(0, geometry.Vec2{E: -2, N: 10}, geometry.Vec2{E: 2, N: 10})
	e.StopMapping(0)

	data, err := e.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	e2 := testEngine()
	if err := e2.Load(data); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !e2.IsPointCovered(0, 2) {
		t.Error("expected coverage to survive round trip")
	}
}

func TestTotalWorkedAreaMatchesPatchSum(t *testing.T) {
	e := testEngine()
	e.StartMapping(0, geometry.Vec2{E: -1, N: 0}, geometry.Vec2{E: 1, N: 0}, 0)
	e.AddCoveragePoint(0, geometry.Vec2{E: -1, N: 10}, geometry.Vec2{E: 1, N: 10})
	e.StopMapping(0)

	want := 2.0 * 10.0 // 2m wide x 10m strip
	if math.Abs(e.TotalWorkedArea()-want) > 1e-6 {
		t.Errorf("TotalWorkedArea = %v, want %v", e.TotalWorkedArea(), want)
	}
}
