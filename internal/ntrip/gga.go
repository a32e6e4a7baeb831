package ntrip

import (
	"fmt"
	"math"
	"time"
)

// GGAParams describes the fix used to synthesise a periodic GGA
// upload to the caster (spec.md §6).
type GGAParams struct {
	Time       time.Time
	LatDeg     float64
	LonDeg     float64
	FixQuality int
	NumSats    int
	HDOP       float64 // not written: the sentence carries a fixed 1.0 HDOP field
	AltitudeM  float64
}

// SynthesizeGGA builds the exact sentence spec.md §6 names:
// $GPGGA,hhmmss.ff,ddmm.mmmm,{N|S},dddmm.mmmm,{E|W},q,ss,1.0,aa.a,M,0.0,M,,*HH
func SynthesizeGGA(p GGAParams) string {
	lat, latHemi := formatDMS(p.LatDeg, 2)
	lon, lonHemi := formatDMS(p.LonDeg, 3)

	body := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,%d,%02d,1.0,%.1f,M,0.0,M,,",
		p.Time.UTC().Format("150405.00"), lat, latHemi, lon, lonHemi,
		p.FixQuality, p.NumSats, p.AltitudeM)

	cs := byte(0)
	for _, c := range []byte(body) {
		cs ^= c
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

// formatDMS renders |v| as ddmm.mmmm (degrees field width degWidth)
// and returns the hemisphere letter for the given axis (2 = latitude,
// 3 = longitude, matching nmea.parseDMS's split convention).
func formatDMS(v float64, degWidth int) (string, string) {
	var hemi string
	if degWidth == 2 {
		if v < 0 {
			hemi = "S"
		} else {
			hemi = "N"
		}
	} else {
		if v < 0 {
			hemi = "W"
		} else {
			hemi = "E"
		}
	}
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := (v - deg) * 60

	format := "%02.0f%07.4f"
	if degWidth == 3 {
		format = "%03.0f%07.4f"
	}
	return fmt.Sprintf(format, deg, minutes), hemi
}
