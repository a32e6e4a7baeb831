// Package geoproj establishes a local tangent plane at a field origin
// and converts WGS-84 coordinates to and from it using an
// equirectangular approximation (spec.md §4.2).
package geoproj

import "math"

const earthRadiusMeters = 6378137.0

// Origin is the fixed reference point of a field's local plane. For a
// fixed origin the Local/Geodetic mapping is affine, invertible, and
// continuous (spec.md §8).
type Origin struct {
	LatDeg, LonDeg float64

	cosLat float64
}

// NewOrigin constructs an Origin and precomputes the latitude scale
// factor used by both directions of the projection.
func NewOrigin(latDeg, lonDeg float64) Origin {
	return Origin{LatDeg: latDeg, LonDeg: lonDeg, cosLat: math.Cos(latDeg * math.Pi / 180)}
}

// Local converts a WGS-84 latitude/longitude to local easting/northing
// metres relative to o.
func (o Origin) Local(latDeg, lonDeg float64) (easting, northing float64) {
	dLat := (latDeg - o.LatDeg) * math.Pi / 180
	dLon := (lonDeg - o.LonDeg) * math.Pi / 180
	northing = dLat * earthRadiusMeters
	easting = dLon * earthRadiusMeters * o.cosLat
	return easting, northing
}

// Geodetic is the inverse of Local.
func (o Origin) Geodetic(easting, northing float64) (latDeg, lonDeg float64) {
	dLat := northing / earthRadiusMeters
	dLon := easting / (earthRadiusMeters * o.cosLat)
	latDeg = o.LatDeg + dLat*180/math.Pi
	lonDeg = o.LonDeg + dLon*180/math.Pi
	return latDeg, lonDeg
}
