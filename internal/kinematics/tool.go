// Package kinematics computes implement/tool position from the
// vehicle pivot (spec.md §4.5): rigid-mount, single-trailed, and
// tow-between-tank.
package kinematics

import (
	"math"

	"github.com/fieldline/groundloop/internal/geometry"
)

// Mode selects the kinematic model.
type Mode int

const (
	ModeRigid Mode = iota
	ModeSingleTrailed
	ModeTowBetweenTank
)

// Tool holds the implement's kinematic state, mutated in place each
// cycle by Update (spec.md §5: single owner, no concurrent mutation).
type Tool struct {
	Mode Mode

	HitchLengthMeters    float64
	TrailingHitchMeters  float64
	TankHitchMeters       float64
	ToolOffsetMeters      float64
	WidthMeters           float64
	SectionWidthsMeters   []float64

	// headingRad is the tool's own smoothed heading, updated as a
	// first-order angular lag behind the pivot heading (or, for
	// tow-between-tank, behind the tank heading in tankHeadingRad).
	headingRad     float64
	tankHeadingRad float64
	initialised    bool

	CentreE, CentreN float64
}

// clampRate bounds how far the trailing heading can move per update,
// approximating the angular first-order filter via a per-cycle step
// limited by hitch geometry (longer hitch ⇒ slower response).
func clampRate(hitchMeters float64) float64 {
	if hitchMeters <= 0 {
		return math.Pi // effectively unclamped
	}
	// Shorter hitches respond faster; this is a simple 1/L shaped gain,
	// tuned so a 1m cycle step at typical 10Hz/typical speed tracks
	// smoothly without overshoot.
	return math.Min(math.Pi, 1.5/hitchMeters)
}

func lag(current, target, maxStep float64) float64 {
	delta := geometry.WrapRadians(target - current)
	if delta > maxStep {
		delta = maxStep
	} else if delta < -maxStep {
		delta = -maxStep
	}
	return geometry.WrapRadians(current + delta)
}

// Update advances the tool's position given the current pivot position
// and heading (radians).
func (t *Tool) Update(pivotE, pivotN, pivotHeadingRad float64) {
	switch t.Mode {
	case ModeRigid:
		t.headingRad = pivotHeadingRad
		dir := geometry.Heading2(pivotHeadingRad)
		t.CentreE = pivotE + dir.E*t.HitchLengthMeters
		t.CentreN = pivotN + dir.N*t.HitchLengthMeters

	case ModeSingleTrailed:
		if !t.initialised {
			t.headingRad = pivotHeadingRad
			t.initialised = true
		}
		hitchDir := geometry.Heading2(pivotHeadingRad)
		hitchE := pivotE - hitchDir.E*t.HitchLengthMeters
		hitchN := pivotN - hitchDir.N*t.HitchLengthMeters
		t.headingRad = lag(t.headingRad, pivotHeadingRad, clampRate(t.TrailingHitchMeters))
		dir := geometry.Heading2(t.headingRad)
		t.CentreE = hitchE - dir.E*t.TrailingHitchMeters
		t.CentreN = hitchN - dir.N*t.TrailingHitchMeters

	case ModeTowBetweenTank:
		if !t.initialised {
			t.headingRad = pivotHeadingRad
			t.tankHeadingRad = pivotHeadingRad
			t.initialised = true
		}
		t.tankHeadingRad = lag(t.tankHeadingRad, pivotHeadingRad, clampRate(t.TankHitchMeters))
		tankE := pivotE - geometry.Heading2(pivotHeadingRad).E*t.TankHitchMeters
		tankN := pivotN - geometry.Heading2(pivotHeadingRad).N*t.TankHitchMeters

		t.headingRad = lag(t.headingRad, t.tankHeadingRad, clampRate(t.TrailingHitchMeters))
		toolDir := geometry.Heading2(t.headingRad)
		t.CentreE = tankE - toolDir.E*t.TrailingHitchMeters
		t.CentreN = tankN - toolDir.N*t.TrailingHitchMeters
	}
}

// ResetTrailingState snaps the implement directly behind the tractor,
// discarding accumulated lag. Idempotent (spec.md §4.5).
func (t *Tool) ResetTrailingState(pivotHeadingRad float64) {
	t.headingRad = pivotHeadingRad
	t.tankHeadingRad = pivotHeadingRad
	t.initialised = true
}

// LeftRightEdges returns the tool's left and right edge centre points,
// symmetric about CentreE/CentreN along the perpendicular to heading,
// offset by ToolOffsetMeters.
func (t *Tool) LeftRightEdges() (left, right geometry.Vec2) {
	perp := geometry.PerpRight(t.headingRad)
	half := t.WidthMeters / 2
	offE := perp.E * t.ToolOffsetMeters
	offN := perp.N * t.ToolOffsetMeters
	cE, cN := t.CentreE+offE, t.CentreN+offN
	left = geometry.Vec2{E: cE - perp.E*half, N: cN - perp.N*half}
	right = geometry.Vec2{E: cE + perp.E*half, N: cN + perp.N*half}
	return left, right
}

// SectionEdges returns, for each configured section width, its centre
// and left/right edges, laid out left-to-right across the tool.
func (t *Tool) SectionEdges() (centres, lefts, rights []geometry.Vec2) {
	perp := geometry.PerpRight(t.headingRad)
	offE := perp.E * t.ToolOffsetMeters
	offN := perp.N * t.ToolOffsetMeters
	cE, cN := t.CentreE+offE, t.CentreN+offN

	total := 0.0
	for _, w := range t.SectionWidthsMeters {
		total += w
	}
	// leftmost edge of the whole tool
	leftEdgeE := cE - perp.E*(total/2)
	leftEdgeN := cN - perp.N*(total/2)

	cursor := 0.0
	for _, w := range t.SectionWidthsMeters {
		startE := leftEdgeE + perp.E*cursor
		startN := leftEdgeN + perp.N*cursor
		endE := leftEdgeE + perp.E*(cursor+w)
		endN := leftEdgeN + perp.N*(cursor+w)
		midE := (startE + endE) / 2
		midN := (startN + endN) / 2
		centres = append(centres, geometry.Vec2{E: midE, N: midN})
		lefts = append(lefts, geometry.Vec2{E: startE, N: startN})
		rights = append(rights, geometry.Vec2{E: endE, N: endN})
		cursor += w
	}
	return centres, lefts, rights
}

// Heading returns the tool's current smoothed heading in radians.
func (t *Tool) Heading() float64 { return t.headingRad }
