package fusion

import (
	"math"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/geometry"
)

// PriorFix carries the previous cycle's position, used by the fix-to-
// fix heading fallback in stages 1 and 2 of the cascade.
type PriorFix struct {
	Easting, Northing float64
	Valid             bool
}

// Inputs bundles everything the heading cascade (spec.md §4.4) reads
// for a single cycle.
type Inputs struct {
	RawHeadingDeg float64
	IMUHeadingDeg float64
	IMUValid      bool
	SpeedMPS      float64
	Easting       float64
	Northing      float64
	DualGPS       bool
	Prior         PriorFix
}

// ResolveHeading runs the first three stages of the heading cascade
// (dual-GPS, fix-to-fix, IMU blend) and returns the final heading in
// degrees, [0,360). The fix-quality gating stage is FixQualityGate.
func ResolveHeading(in Inputs, conn *config.ConnectionsConfig) float64 {
	h := geometry.WrapDegrees(in.RawHeadingDeg)

	if in.DualGPS {
		h = geometry.WrapDegrees(h + conn.GetDualHeadingOffsetDeg())
		if in.SpeedMPS < conn.GetDualSwitchSpeedMPS() && in.Prior.Valid {
			if d := distance(in.Easting, in.Northing, in.Prior.Easting, in.Prior.Northing); d >= conn.GetFixToFixDistanceMeters() {
				h = geometry.WrapDegrees(fixToFixHeadingDeg(in.Prior.Easting, in.Prior.Northing, in.Easting, in.Northing))
			}
		}
	} else {
		if in.Prior.Valid {
			if d := distance(in.Easting, in.Northing, in.Prior.Easting, in.Prior.Northing); d >= conn.GetMinGPSStepMeters() {
				h = geometry.WrapDegrees(fixToFixHeadingDeg(in.Prior.Easting, in.Prior.Northing, in.Easting, in.Northing))
			}
		}
	}

	if in.IMUValid {
		w := conn.GetHeadingFusionWeight()
		if w > 0 && w < 1 {
			delta := wrapSigned180(in.IMUHeadingDeg - h)
			h = geometry.WrapDegrees(h + delta*(1-w))
		}
	}

	return h
}

// FixQualityGate applies the rate-limit stage: fixes failing quality,
// HDOP, or differential-age thresholds are rejected. A maxDiffAge of 0
// means no differential correction is allowed, i.e. any fix carrying
// nonzero differential age is rejected; it does not reject every fix.
func FixQualityGate(fixQuality int, hdop, diffAge float64, conn *config.ConnectionsConfig) bool {
	if fixQuality < conn.GetMinFixQuality() {
		return false
	}
	if hdop > conn.GetMaxHDOP() {
		return false
	}
	maxAge := conn.GetMaxDiffAgeSeconds()
	if maxAge == 0 {
		if diffAge > 0 {
			return false
		}
	} else if diffAge > maxAge {
		return false
	}
	return true
}

func distance(e1, n1, e2, n2 float64) float64 {
	return math.Hypot(e1-e2, n1-n2)
}

func fixToFixHeadingDeg(e1, n1, e2, n2 float64) float64 {
	de := e2 - e1
	dn := n2 - n1
	// 0deg = north, clockwise positive.
	return geometry.RadToDeg(math.Atan2(de, dn))
}

// wrapSigned180 normalises a degree delta into (-180,180].
func wrapSigned180(d float64) float64 {
	for d <= -180 {
		d += 360
	}
	for d > 180 {
		d -= 360
	}
	return d
}
