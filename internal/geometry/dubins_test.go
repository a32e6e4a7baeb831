package geometry

import (
	"math"
	"testing"
)

// The headings emitted by a Dubins path are continuous: for all
// consecutive samples, the unsigned heading difference is < pi/4
// (spec.md §8).
func TestGenerateHeadingContinuity(t *testing.T) {
	start := Vec3{E: 0, N: 0, Heading: 0}
	goal := Vec3{E: 20, N: 30, Heading: math.Pi}
	path := Generate(start, goal, 8)
	if len(path) < 2 {
		t.Fatalf("expected a dense polyline, got %d samples", len(path))
	}
	for i := 1; i < len(path); i++ {
		diff := math.Abs(WrapRadians(path[i].Heading - path[i-1].Heading))
		if diff >= math.Pi/4 {
			t.Errorf("heading discontinuity at sample %d: %v rad", i, diff)
		}
	}
}

func TestGenerateReachesGoalVicinity(t *testing.T) {
	start := Vec3{E: 0, N: 0, Heading: 0}
	goal := Vec3{E: 50, N: 0, Heading: 0}
	path := Generate(start, goal, 10)
	last := path[len(path)-1]
	if math.Hypot(last.E-goal.E, last.N-goal.N) > 5 {
		t.Errorf("last sample %v too far from goal %v", last, goal)
	}
}
