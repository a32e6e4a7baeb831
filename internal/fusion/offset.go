// Package fusion implements antenna-to-pivot translation and the
// heading-fusion cascade (spec.md §4.4).
package fusion

import "math"

// AntennaToPivot returns the pivot position given the antenna easting/
// northing, vehicle heading h (radians), fore/aft offset aP (positive
// = antenna ahead of pivot) and lateral offset aO (positive = antenna
// right of pivot). Skipped (identity) when both offsets are below 1mm,
// per spec.md §4.4.
func AntennaToPivot(antennaE, antennaN, h, aP, aO float64) (pivotE, pivotN float64) {
	if math.Abs(aP) < 1e-3 && math.Abs(aO) < 1e-3 {
		return antennaE, antennaN
	}
	e := antennaE - math.Sin(h)*aP - math.Sin(h+math.Pi/2)*aO
	n := antennaN - math.Cos(h)*aP - math.Cos(h+math.Pi/2)*aO
	return e, n
}

// PivotToAntenna is the exact inverse of AntennaToPivot, used by the
// round-trip invariant in spec.md §8.
func PivotToAntenna(pivotE, pivotN, h, aP, aO float64) (antennaE, antennaN float64) {
	if math.Abs(aP) < 1e-3 && math.Abs(aO) < 1e-3 {
		return pivotE, pivotN
	}
	e := pivotE + math.Sin(h)*aP + math.Sin(h+math.Pi/2)*aO
	n := pivotN + math.Cos(h)*aP + math.Cos(h+math.Pi/2)*aO
	return e, n
}
