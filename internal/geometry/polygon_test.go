package geometry

import (
	"math"
	"testing"
)

func square(side float64) Polygon {
	return Polygon{Points: []Vec2{
		{E: 0, N: 0},
		{E: side, N: 0},
		{E: side, N: side},
		{E: 0, N: side},
	}}
}

func TestPointInPolygon(t *testing.T) {
	poly := square(100)
	tests := []struct {
		name string
		p    Vec2
		want bool
	}{
		{"centre", Vec2{E: 50, N: 50}, true},
		{"outside east", Vec2{E: 150, N: 50}, false},
		{"outside west", Vec2{E: -10, N: 50}, false},
		{"corner-ish inside", Vec2{E: 1, N: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(poly, tt.p); got != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

// For all convex polygons P and all points p, SegmentInsideFraction
// with half-width 0 equals 1 iff PointInPolygon(P,p) (spec.md §8).
func TestSegmentInsideFractionDegeneratesToPointInPolygon(t *testing.T) {
	poly := square(50)
	set := PolygonSet{Outer: poly}
	points := []Vec2{{E: 25, N: 25}, {E: -5, N: 25}, {E: 60, N: 60}, {E: 0.1, N: 0.1}}
	for _, p := range points {
		frac := SegmentInsideFraction(set, p, 0, 0)
		inside := PointInPolygon(poly, p)
		wantFrac := 0.0
		if inside {
			wantFrac = 1.0
		}
		if frac != wantFrac {
			t.Errorf("SegmentInsideFraction(%v, halfWidth=0) = %v, want %v (PointInPolygon=%v)", p, frac, wantFrac, inside)
		}
	}
}

func TestSegmentInsideFractionWithHoles(t *testing.T) {
	outer := square(100)
	hole := Polygon{Points: []Vec2{
		{E: 40, N: 40}, {E: 40, N: 60}, {E: 60, N: 60}, {E: 60, N: 40},
	}}
	set := PolygonSet{Outer: outer, Holes: []Polygon{hole}}

	// A wide segment straddling the hole should be partially inside.
	frac := SegmentInsideFraction(set, Vec2{E: 50, N: 50}, 0, 15)
	if frac <= 0 || frac >= 1 {
		t.Errorf("expected a partial fraction straddling the hole, got %v", frac)
	}

	// Fully outside the hole and inside the outer boundary: fully covered.
	frac2 := SegmentInsideFraction(set, Vec2{E: 10, N: 10}, 0, 2)
	if frac2 != 1 {
		t.Errorf("expected full coverage away from the hole, got %v", frac2)
	}
}

func TestPolygonArea(t *testing.T) {
	poly := square(10)
	if got := PolygonArea(poly); math.Abs(got-100) > 1e-9 {
		t.Errorf("PolygonArea(10x10 square) = %v, want 100", got)
	}
}

func TestPolygonOffsetRejectsNearFenceVertices(t *testing.T) {
	poly := square(20)
	fence := Polygon{Points: []Vec2{{E: 10, N: 10}}}
	out := PolygonOffset(poly, fence, 3)
	for _, p := range out.Points {
		if distance2(p, fence.Points[0]) < 3*3*0.999 {
			t.Errorf("offset point %v should have been rejected near fence vertex", p)
		}
	}
}

func TestLineIntersection(t *testing.T) {
	a0, a1 := Vec2{E: 0, N: 0}, Vec2{E: 10, N: 10}
	b0, b1 := Vec2{E: 0, N: 10}, Vec2{E: 10, N: 0}
	p, ok := LineIntersection(a0, a1, b0, b1)
	if !ok {
		t.Fatal("expected an intersection")
	}
	if math.Abs(p.E-5) > 1e-9 || math.Abs(p.N-5) > 1e-9 {
		t.Errorf("LineIntersection = %v, want (5,5)", p)
	}

	_, ok = LineIntersection(Vec2{E: 0, N: 0}, Vec2{E: 1, N: 0}, Vec2{E: 0, N: 5}, Vec2{E: 1, N: 5})
	if ok {
		t.Error("parallel segments should not intersect")
	}
}

func TestPointInTurnArea(t *testing.T) {
	outer := square(100)
	hole := Polygon{Points: []Vec2{{E: 10, N: 10}, {E: 10, N: 20}, {E: 20, N: 20}, {E: 20, N: 10}}}
	lines := []Polygon{outer, hole}
	driveThru := []bool{false, true}

	if got := PointInTurnArea(lines, driveThru, Vec2{E: 50, N: 50}); got != 0 {
		t.Errorf("expected outer index 0, got %v", got)
	}
	if got := PointInTurnArea(lines, driveThru, Vec2{E: 15, N: 15}); got != 1 {
		t.Errorf("expected hole index 1, got %v", got)
	}
	if got := PointInTurnArea(lines, driveThru, Vec2{E: -5, N: -5}); got != -1 {
		t.Errorf("expected outside (-1), got %v", got)
	}
}
