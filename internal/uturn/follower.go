package uturn

import (
	"math"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/guidance"
)

// Follower applies either Stanley or Pure-Pursuit to a synthesised
// turn path (spec.md §4.7's "U-turn follower").
type Follower struct {
	track         guidance.Track
	usesStanley   bool
	stanleyState  guidance.StanleyState
	kStyleReverse bool
}

// NewFollower builds a Follower over a synthesised path. kStyleReverse
// marks a K-style reverse leg, which always completes immediately per
// spec.md §4.7.
func NewFollower(path []geometry.Vec3, useStanley bool, kStyleReverse bool) *Follower {
	pts := make([]geometry.Vec2, len(path))
	for i, p := range path {
		pts[i] = geometry.Vec2{E: p.E, N: p.N}
	}
	return &Follower{track: guidance.NewCurve(pts), usesStanley: useStanley, kStyleReverse: kStyleReverse}
}

// Step evaluates one guidance cycle and reports whether the follower
// has completed the path.
func (f *Follower) Step(pivot geometry.Vec2, headingRad, speedMPS float64, veh *config.VehicleConfig, guide *config.GuidanceConfig) (guidance.Result, bool) {
	if f.kStyleReverse {
		return guidance.Result{}, true
	}

	nearestIdx := f.nearestIndex(pivot)
	n := len(f.track.Points)

	var res guidance.Result
	if f.usesStanley {
		res = guidance.Stanley(&f.track, pivot, headingRad, speedMPS, veh, guide, &f.stanleyState)
	} else {
		res = guidance.PurePursuit(&f.track, pivot, headingRad, speedMPS, veh.GetWheelbaseMeters(), veh, guide, true)
	}

	if f.usesStanley {
		nearestDist := pivot.DistanceTo(f.track.Points[nearestIdx])
		if nearestDist > 4 {
			return res, true
		}
		if nearestIdx >= n-1 {
			return res, true
		}
		return res, false
	}

	distToPivot := pivot.DistanceTo(f.track.Points[nearestIdx])
	if nearestIdx > 0 && distToPivot > 2 {
		return res, true
	}
	if nearestIdx >= n-1 && nearestIdx > n/2 {
		return res, true
	}
	return res, false
}

func (f *Follower) nearestIndex(pivot geometry.Vec2) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, p := range f.track.Points {
		d := pivot.DistanceTo(p)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
