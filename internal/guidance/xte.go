package guidance

import "github.com/fieldline/groundloop/internal/geometry"

// AbFixHeadingDelta performs the heading-delta range reduction used by
// curve/AB nudging. Its double reduction (first to (-π,π], then to
// (-π/2,π/2]) is unusual and was flagged as an open question (spec.md
// §9): preserved byte-identically rather than re-derived, until a
// maintainer confirms the intended behaviour.
func AbFixHeadingDelta(a, b float64) float64 {
	d := geometry.WrapRadians(a - b)
	for d > geometry.DegToRad(90) {
		d -= geometry.DegToRad(180)
	}
	for d <= -geometry.DegToRad(90) {
		d += geometry.DegToRad(180)
	}
	return d
}
