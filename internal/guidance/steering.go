package guidance

import (
	"math"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/geometry"
)

// Result is the outcome of a single guidance evaluation.
type Result struct {
	SteerAngleRad float64
	CrossTrackM   float64
	NoGuidance    bool
}

// PurePursuit implements spec.md §4.6's Pure-Pursuit law.
func PurePursuit(track *Track, pivot geometry.Vec2, headingRad, speedMPS, wheelbase float64, veh *config.VehicleConfig, guide *config.GuidanceConfig, isUTurn bool) Result {
	if track == nil || !track.Valid() {
		return Result{NoGuidance: true}
	}
	xte, segHeading, ok := track.CrossTrackError(pivot)
	if !ok {
		return Result{NoGuidance: true}
	}

	absXte := math.Abs(xte)
	hold := veh.GetLookAheadHoldMeters()
	acquire := hold * veh.GetGoalPointAcquireFactor()
	var k float64
	switch {
	case absXte <= 0.1:
		k = hold
	case absXte >= 0.4:
		k = acquire
	default:
		frac := (absXte - 0.1) / (0.4 - 0.1)
		k = hold + frac*(acquire-hold)
	}

	lookAhead := speedMPS*0.05*veh.GetGoalPointLookAheadMul()*k + k
	if min := guide.GetMinLookAheadMeters(); lookAhead < min {
		lookAhead = min
	}

	goal := geometry.Vec2{
		E: pivot.E + math.Sin(segHeading)*lookAhead,
		N: pivot.N + math.Cos(segHeading)*lookAhead,
	}
	// project cross-track offset onto the goal point so the pursuit
	// point actually sits on the track, not just along its heading.
	perp := geometry.PerpRight(segHeading)
	goal.E -= perp.E * xte
	goal.N -= perp.N * xte

	dx := goal.E - pivot.E
	dy := goal.N - pivot.N
	dist2 := dx*dx + dy*dy
	if dist2 < 1e-9 {
		return Result{CrossTrackM: xte}
	}

	curvatureTerm := 2 * (dx*math.Cos(headingRad) + dy*math.Sin(headingRad)) * wheelbase / dist2
	delta := math.Atan(curvatureTerm)

	maxSteer := veh.GetMaxSteerAngleRad()
	delta = clamp(delta, -maxSteer, maxSteer)
	if isUTurn {
		delta *= veh.GetUTurnCompensation()
	}

	return Result{SteerAngleRad: delta, CrossTrackM: xte}
}

// Stanley implements spec.md §4.6's Stanley law. state must persist
// across calls for the same track/vehicle to track the dead-zone
// delay.
func Stanley(track *Track, pivot geometry.Vec2, headingRad, speedMPS float64, veh *config.VehicleConfig, guide *config.GuidanceConfig, state *StanleyState) Result {
	if track == nil || !track.Valid() {
		return Result{NoGuidance: true}
	}
	xte, segHeading, ok := track.CrossTrackError(pivot)
	if !ok {
		return Result{NoGuidance: true}
	}

	headingErr := clamp(AbFixHeadingDelta(segHeading, headingRad), -0.74, 0.74)
	crossTerm := clamp(math.Atan(veh.GetStanleyCrossTrackGain()*xte/(speedMPS*0.27778+1)), -0.74, 0.74)
	delta := -(veh.GetStanleyHeadingGain()*headingErr + crossTerm)

	dz := guide.GetDeadZoneRad()
	if dz > 0 && math.Abs(xte) <= dz {
		state.CyclesInZone++
		if state.CyclesInZone > guide.GetDeadZoneDelayCycles() {
			delta = 0
		}
	} else {
		state.CyclesInZone = 0
	}

	delta = clamp(delta, -veh.GetMaxSteerAngleRad(), veh.GetMaxSteerAngleRad())
	return Result{SteerAngleRad: delta, CrossTrackM: xte}
}

// StanleyState is the per-track dead-zone counter for Stanley.
type StanleyState struct {
	CyclesInZone int
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
