// Package geometry implements the pure value-type math shared by the
// rest of the ground loop: 2D/3D vectors, polygon containment and
// offsetting, segment coverage fraction, and Dubins path synthesis.
//
// Every operation here is a pure function over plain values — per
// design note 9 ("Replacing exception control flow"), geometry never
// fails and never allocates goroutine-shared state.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is an easting/northing pair in the local tangent-plane frame
// established by geoproj.Origin. It carries no identity.
type Vec2 struct {
	E, N float64
}

// Vec3 adds a heading in radians to Vec2, used wherever a pose (not
// just a position) is required — turn-path samples, boundary vertices.
type Vec3 struct {
	E, N, Heading float64
}

func (v Vec2) r2() r2.Vec { return r2.Vec{X: v.E, Y: v.N} }

func fromR2(p r2.Vec) Vec2 { return Vec2{E: p.X, N: p.Y} }

// Add returns v+w.
func (v Vec2) Add(w Vec2) Vec2 { return fromR2(r2.Add(v.r2(), w.r2())) }

// Sub returns v-w.
func (v Vec2) Sub(w Vec2) Vec2 { return fromR2(r2.Sub(v.r2(), w.r2())) }

// Scale returns f*v.
func (v Vec2) Scale(f float64) Vec2 { return fromR2(r2.Scale(f, v.r2())) }

// Dot returns the dot product v·w.
func (v Vec2) Dot(w Vec2) float64 { return r2.Dot(v.r2(), w.r2()) }

// Length returns the Euclidean length of v.
func (v Vec2) Length() float64 { return math.Hypot(v.E, v.N) }

// DistanceTo returns the Euclidean distance between v and w.
func (v Vec2) DistanceTo(w Vec2) float64 { return v.Sub(w).Length() }

// Heading2 returns the unit vector for a heading in radians, in the
// convention used throughout this module: 0 radians points north
// (increasing N), positive rotation is clockwise toward east.
func Heading2(h float64) Vec2 { return Vec2{E: math.Sin(h), N: math.Cos(h)} }

// PerpRight returns the unit vector perpendicular to, and to the right
// of, a direction of travel at heading h (radians).
func PerpRight(h float64) Vec2 { return Heading2(h + math.Pi/2) }

// WrapRadians normalises an angle to (-pi, pi].
func WrapRadians(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// WrapDegrees normalises a heading in degrees to [0, 360) using a
// deterministic wrap, so repeated blending never jitters across the
// 0/360 discontinuity (spec.md §4.1 numerical policy).
func WrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// DegToRad converts a heading in degrees (0..360, clockwise from
// north) to radians in the same convention used by Heading2.
func DegToRad(d float64) float64 { return d * math.Pi / 180 }

// RadToDeg is the inverse of DegToRad, wrapped to [0,360).
func RadToDeg(r float64) float64 { return WrapDegrees(r * 180 / math.Pi) }
