package guidance

import (
	"math"
	"testing"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/geometry"
)

// spec.md §8 scenario 1: clean straight-line guidance.
func TestScenarioCleanStraightLineGuidance(t *testing.T) {
	track := NewAbLine(geometry.Vec2{E: 0, N: 0}, geometry.Vec2{E: 0, N: 100})
	pivot := geometry.Vec2{E: 0.5, N: 50}

	cfg := config.Empty()
	xte, _, ok := track.CrossTrackError(pivot)
	if !ok {
		t.Fatal("expected valid cross-track computation")
	}
	if math.Abs(xte-0.5) > 1e-6 {
		t.Errorf("xte = %v, want 0.5", xte)
	}

	pp := PurePursuit(&track, pivot, 0, 5, cfg.Vehicle.GetWheelbaseMeters(), &cfg.Vehicle, &cfg.Guidance, false)
	if pp.NoGuidance {
		t.Fatal("expected guidance, got NoGuidance")
	}
	if math.Abs(pp.SteerAngleRad) > cfg.Vehicle.GetMaxSteerAngleRad()+1e-9 {
		t.Errorf("steer angle %v exceeds max %v", pp.SteerAngleRad, cfg.Vehicle.GetMaxSteerAngleRad())
	}
	// Vehicle is east of the line heading north: should steer left (negative)
	// to return to the line.
	if pp.SteerAngleRad >= 0 {
		t.Errorf("expected negative (left) steering toward the line, got %v", pp.SteerAngleRad)
	}

	var state StanleyState
	st := Stanley(&track, pivot, 0, 5, &cfg.Vehicle, &cfg.Guidance, &state)
	if st.NoGuidance {
		t.Fatal("expected guidance, got NoGuidance")
	}
	if st.SteerAngleRad >= 0 {
		t.Errorf("expected Stanley steering < 0 (left), got %v", st.SteerAngleRad)
	}
	if math.Abs(st.SteerAngleRad) > cfg.Vehicle.GetMaxSteerAngleRad()+1e-9 {
		t.Errorf("steer angle %v exceeds max %v", st.SteerAngleRad, cfg.Vehicle.GetMaxSteerAngleRad())
	}
}

func TestTrackTooShortIsInvalid(t *testing.T) {
	track := NewCurve([]geometry.Vec2{{E: 0, N: 0}})
	if track.Valid() {
		t.Error("single-point curve should be invalid")
	}
	cfg := config.Empty()
	res := PurePursuit(&track, geometry.Vec2{}, 0, 1, 2.4, &cfg.Vehicle, &cfg.Guidance, false)
	if !res.NoGuidance {
		t.Error("expected NoGuidance for too-short track")
	}
}

func TestNilTrackIsNoGuidance(t *testing.T) {
	cfg := config.Empty()
	res := PurePursuit(nil, geometry.Vec2{}, 0, 1, 2.4, &cfg.Vehicle, &cfg.Guidance, false)
	if !res.NoGuidance {
		t.Error("expected NoGuidance for nil track")
	}
}

func TestAbFixHeadingDeltaWraps(t *testing.T) {
	got := AbFixHeadingDelta(geometry.DegToRad(10), geometry.DegToRad(370))
	want := geometry.DegToRad(0)
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("AbFixHeadingDelta = %v, want %v", got, want)
	}
}
