// Package state holds the pipeline's shared, mutation-in-place working
// record (spec.md §3): Position and VehicleState. A single owner (the
// pipeline coordinator, C10) mutates a VehicleState per GPS cycle; no
// concurrent mutation is permitted (spec.md §5).
package state

// Position is derived fresh each GPS cycle and is conceptually
// immutable once populated — the parser below always overwrites every
// field rather than merging.
type Position struct {
	LatDeg, LonDeg, AltMeters float64
	Easting, Northing         float64
	SpeedMPS                  float64
	HeadingDeg                float64 // 0..360, clockwise from north
}

// VehicleState is the pipeline's single working record, mutated in
// place per cycle by its one owner (spec.md §3, §5).
type VehicleState struct {
	Position Position

	FixQuality       int
	Satellites       int
	HDOP             float64
	DiffAgeSeconds   float64
	RollDeg          float64
	PitchDeg         float64
	YawRateDegPerSec float64
	IMUValid         bool

	HeadingRad    float64 // pre-computed from Position.HeadingDeg
	CrossTrackM   float64
	SteerAngleRad float64
	DistanceToTurnM float64
	SectionBitmask  uint16

	// IsValid distinguishes cycles with a good, gated fix from cycles
	// carried forward on stale/rejected data (spec.md §7).
	IsValid bool

	// Latency timestamps, all unix nanoseconds; zero means "not yet
	// stamped this cycle".
	ParseStartNanos    int64
	ParseEndNanos      int64
	GuidanceEndNanos   int64

	// ParseFailures counts dropped NMEA frames across the lifetime of
	// this VehicleState (spec.md §4.3).
	ParseFailures int
	// ConsecutiveBadFixes counts fixes rejected by the C4 quality gate
	// since the last accepted fix (spec.md §4.4, §8 scenario 5).
	ConsecutiveBadFixes int
	// GuidanceMisses counts cycles where C6 reverted to "no guidance"
	// after repeated near-point search failure (spec.md §4.6).
	GuidanceMisses int
}

// Reset zeroes the mutable cycle-local fields without discarding the
// lifetime counters (ParseFailures, ConsecutiveBadFixes, GuidanceMisses).
func (s *VehicleState) Reset() {
	prevFailures := s.ParseFailures
	prevBadFixes := s.ConsecutiveBadFixes
	prevMisses := s.GuidanceMisses
	*s = VehicleState{}
	s.ParseFailures = prevFailures
	s.ConsecutiveBadFixes = prevBadFixes
	s.GuidanceMisses = prevMisses
}
