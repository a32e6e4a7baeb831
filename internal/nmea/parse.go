// Package nmea implements a zero-copy parser for the $PANDA and $PAOGI
// sentence families (spec.md §4.3, §6). Both families are
// behaviourally identical; parse operates on a borrowed byte span and
// writes directly into a caller-owned state.VehicleState.
package nmea

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/state"
)

// Sentinel errors, checked with errors.Is, per spec.md §7's closed
// error-kind set.
var (
	ErrInvalidHeader  = errors.New("nmea: invalid header")
	ErrBadChecksum    = errors.New("nmea: bad checksum")
	ErrTooFewFields   = errors.New("nmea: too few fields")
	ErrInvalidField   = errors.New("nmea: invalid field")
)

const knotsToMPS = 0.514444

var headers = [][]byte{[]byte("$PANDA"), []byte("$PAOGI")}

// Parse validates and parses a single NMEA line (without trailing
// CRLF) and writes the result into st. On any failure, st is left
// unchanged except for its ParseFailures counter, which is always
// incremented on failure (spec.md §4.3 contract).
func Parse(line []byte, st *state.VehicleState) error {
	if err := parse(line, st); err != nil {
		st.ParseFailures++
		return err
	}
	return nil
}

func parse(line []byte, st *state.VehicleState) error {
	line = bytes.TrimRight(line, "\r\n")

	matched := false
	for _, h := range headers {
		if bytes.HasPrefix(line, h) {
			matched = true
			break
		}
	}
	if !matched {
		return ErrInvalidHeader
	}

	star := bytes.LastIndexByte(line, '*')
	if star < 0 || star+3 > len(line) {
		return ErrBadChecksum
	}
	if !checksumOK(line, star) {
		return ErrBadChecksum
	}

	body := line[1:star] // strip leading '$', trailing '*HH'
	fields := bytes.Split(body, []byte(","))
	// fields[0] is the sentence name; data fields are 1..15 per spec.md §4.3.
	if len(fields) < 16 {
		return ErrTooFewFields
	}

	latDeg, err := parseDMS(fields[2], fields[3])
	if err != nil {
		return ErrInvalidField
	}
	lonDeg, err := parseDMS(fields[4], fields[5])
	if err != nil {
		return ErrInvalidField
	}
	fixQuality, err := parseInt(fields[6])
	if err != nil {
		return ErrInvalidField
	}
	satellites, err := parseInt(fields[7])
	if err != nil {
		return ErrInvalidField
	}
	hdop, err := parseFloat(fields[8])
	if err != nil {
		return ErrInvalidField
	}
	altitude, err := parseFloat(fields[9])
	if err != nil {
		return ErrInvalidField
	}
	diffAge, err := parseFloat(fields[10])
	if err != nil {
		return ErrInvalidField
	}
	speedKnots, err := parseFloat(fields[11])
	if err != nil {
		return ErrInvalidField
	}
	headingDeg, err := parseFloat(fields[12])
	if err != nil {
		return ErrInvalidField
	}

	// IMU fields (13..15) are optional: validity requires all three to
	// be present and numeric (spec.md §4.3).
	imuValid := true
	roll, err := parseFloat(fields[13])
	if err != nil {
		imuValid = false
	}
	pitch, err := parseFloat(fields[14])
	if err != nil {
		imuValid = false
	}
	yawRate, err := parseFloat(fields[15])
	if err != nil {
		imuValid = false
	}

	st.Position.LatDeg = latDeg
	st.Position.LonDeg = lonDeg
	st.Position.AltMeters = altitude
	st.Position.SpeedMPS = speedKnots * knotsToMPS
	st.Position.HeadingDeg = geometry.WrapDegrees(headingDeg)
	st.FixQuality = fixQuality
	st.Satellites = satellites
	st.HDOP = hdop
	st.DiffAgeSeconds = diffAge
	st.RollDeg = roll
	st.PitchDeg = pitch
	st.YawRateDegPerSec = yawRate
	st.IMUValid = imuValid
	st.HeadingRad = geometry.DegToRad(st.Position.HeadingDeg)
	return nil
}

// checksumOK verifies the XOR of all bytes strictly between '$' and
// '*' against the two-digit hex value following '*', case-insensitive.
func checksumOK(line []byte, star int) bool {
	expected, err := strconv.ParseUint(string(line[star+1:star+3]), 16, 8)
	if err != nil {
		return false
	}
	cs := byte(0)
	for _, c := range line[1:star] {
		cs ^= c
	}
	return cs == byte(expected)
}

func parseDMS(value, hemisphere []byte) (float64, error) {
	if len(value) == 0 || len(hemisphere) != 1 {
		return 0, ErrInvalidField
	}
	h := hemisphere[0]
	splitAt := 2
	if h == 'E' || h == 'W' {
		splitAt = 3
	}
	if len(value) < splitAt {
		return 0, ErrInvalidField
	}
	deg, err := parseFloat(value[:splitAt])
	if err != nil {
		return 0, err
	}
	minutes, err := parseFloat(value[splitAt:])
	if err != nil {
		return 0, err
	}
	v := deg + minutes/60
	if h == 'S' || h == 'W' {
		v = -v
	}
	return v, nil
}

func parseFloat(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, ErrInvalidField
	}
	return strconv.ParseFloat(string(b), 64)
}

func parseInt(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, ErrInvalidField
	}
	v, err := strconv.ParseInt(string(b), 10, 32)
	return int(v), err
}
