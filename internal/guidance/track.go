// Package guidance implements the unified Pure-Pursuit/Stanley
// steering laws over A→B lines and curves (spec.md §4.6).
package guidance

import (
	"math"

	"github.com/fieldline/groundloop/internal/geometry"
)

// Kind tags a Track's variant (design note 9: tagged variant replacing
// inheritance).
type Kind int

const (
	KindAbLine Kind = iota
	KindCurve
)

// Track is a tagged variant: AbLine{A,B,Heading} or Curve{Points}.
// Operations dispatch on Kind.
type Track struct {
	Kind    Kind
	A, B    geometry.Vec2
	Heading float64 // radians, for AbLine

	Points []geometry.Vec2 // for Curve

	// lastNearIndex centres the curve near-point search window
	// (curveSearchWindow), avoiding jumps across self-loops.
	lastNearIndex int
}

const curveSearchWindow = 40

// NewAbLine builds an AbLine track; heading is derived from A→B.
func NewAbLine(a, b geometry.Vec2) Track {
	h := math.Atan2(b.E-a.E, b.N-a.N)
	return Track{Kind: KindAbLine, A: a, B: b, Heading: h}
}

// NewCurve builds a Curve track from an ordered point list.
func NewCurve(points []geometry.Vec2) Track {
	return Track{Kind: KindCurve, Points: points}
}

// Valid reports whether the track has enough geometry to guide on
// (spec.md §4.6 failure mode: "track too short").
func (t *Track) Valid() bool {
	switch t.Kind {
	case KindAbLine:
		return t.A != t.B
	case KindCurve:
		return len(t.Points) >= 2
	}
	return false
}

// CrossTrackError returns the signed perpendicular distance from pivot
// to the track (positive = pivot to the right of travel direction),
// and the local heading of the nearest track segment.
func (t *Track) CrossTrackError(pivot geometry.Vec2) (xte, segHeading float64, ok bool) {
	switch t.Kind {
	case KindAbLine:
		return abLineXTE(t.A, t.B, pivot)
	case KindCurve:
		return t.curveXTE(pivot)
	}
	return 0, 0, false
}

func abLineXTE(a, b, pivot geometry.Vec2) (xte, heading float64, ok bool) {
	dir := geometry.Vec2{E: b.E - a.E, N: b.N - a.N}
	length := dir.Length()
	if length < 1e-9 {
		return 0, 0, false
	}
	dir = dir.Scale(1 / length)
	rel := geometry.Vec2{E: pivot.E - a.E, N: pivot.N - a.N}
	// cross product z of dir x rel: positive = rel is to the left of dir
	// in an (E,N) frame where heading 0 = north; negate to get
	// "positive = right" per spec.md convention.
	cross := dir.E*rel.N - dir.N*rel.E
	return -cross, math.Atan2(dir.E, dir.N), true
}

// curveXTE finds the nearest two consecutive curve points within a
// local search window around the last known index, then computes
// signed perpendicular distance to that segment.
func (t *Track) curveXTE(pivot geometry.Vec2) (xte, heading float64, ok bool) {
	if len(t.Points) < 2 {
		return 0, 0, false
	}
	lo := t.lastNearIndex - curveSearchWindow
	hi := t.lastNearIndex + curveSearchWindow
	if lo < 0 {
		lo = 0
	}
	if hi > len(t.Points)-1 {
		hi = len(t.Points) - 1
	}
	if t.lastNearIndex == 0 {
		lo, hi = 0, len(t.Points)-1
	}

	best := -1
	bestDist := math.MaxFloat64
	for i := lo; i < hi; i++ {
		d := pivot.DistanceTo(t.Points[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	t.lastNearIndex = best
	a := t.Points[best]
	var b geometry.Vec2
	if best+1 < len(t.Points) {
		b = t.Points[best+1]
	} else {
		b = t.Points[best-1]
		a, b = b, a
	}
	return abLineXTE(a, b, pivot)
}

// Reset clears curve near-point search state; call when re-engaging.
func (t *Track) Reset() { t.lastNearIndex = 0 }

const pointsFromSampleCount = 200

// PointsFrom samples points ahead of pos along the track in travel
// direction, satisfying internal/uturn.TrackSampler for turn-entry
// detection.
func (t *Track) PointsFrom(pos geometry.Vec2) []geometry.Vec2 {
	switch t.Kind {
	case KindAbLine:
		dir := geometry.Heading2(t.Heading)
		pts := make([]geometry.Vec2, pointsFromSampleCount)
		for i := range pts {
			d := float64(i)
			pts[i] = geometry.Vec2{E: pos.E + dir.E*d, N: pos.N + dir.N*d}
		}
		return pts
	case KindCurve:
		if len(t.Points) == 0 {
			return nil
		}
		best := 0
		bestDist := math.MaxFloat64
		for i, p := range t.Points {
			if d := pos.DistanceTo(p); d < bestDist {
				bestDist = d
				best = i
			}
		}
		return t.Points[best:]
	}
	return nil
}
