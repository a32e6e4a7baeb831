package nmea

import (
	"fmt"
	"testing"

	"github.com/fieldline/groundloop/internal/state"
)

// buildSentence computes a correct checksum for body (without leading
// '$' and trailing '*HH') and returns a full $PANDA line.
func buildSentence(body string) string {
	cs := byte(0)
	for _, c := range []byte(body) {
		cs ^= c
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

const sampleBody = "PANDA,123519.00,4807.038,N,01131.000,E,4,08,0.9,10.0,1.5,5.0,90.0,1.1,0.5,0.2"

func TestParseValidSentence(t *testing.T) {
	line := buildSentence(sampleBody)
	var st state.VehicleState
	if err := Parse([]byte(line), &st); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if st.FixQuality != 4 {
		t.Errorf("FixQuality = %d, want 4", st.FixQuality)
	}
	if st.Satellites != 8 {
		t.Errorf("Satellites = %d, want 8", st.Satellites)
	}
	wantSpeed := 5.0 * knotsToMPS
	if diff := st.Position.SpeedMPS - wantSpeed; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SpeedMPS = %v, want %v", st.Position.SpeedMPS, wantSpeed)
	}
	if !st.IMUValid {
		t.Error("expected IMUValid = true")
	}
	if st.ParseFailures != 0 {
		t.Errorf("ParseFailures = %d, want 0", st.ParseFailures)
	}
}

func TestParsePAOGIIdenticalSemantics(t *testing.T) {
	body := "PAOGI,123519.00,4807.038,N,01131.000,E,4,08,0.9,10.0,1.5,5.0,90.0,1.1,0.5,0.2"
	line := buildSentence(body)
	var st state.VehicleState
	if err := Parse([]byte(line), &st); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if st.FixQuality != 4 {
		t.Errorf("FixQuality = %d, want 4", st.FixQuality)
	}
}

// Universal invariant (spec.md §8): parse succeeds iff the XOR of
// bytes between '$' and '*' equals the trailing checksum.
func TestChecksumInvariant(t *testing.T) {
	good := buildSentence(sampleBody)
	var st state.VehicleState
	if err := Parse([]byte(good), &st); err != nil {
		t.Fatalf("expected success with correct checksum: %v", err)
	}

	bad := good[:len(good)-2] + "00"
	if bad == good {
		bad = good[:len(good)-2] + "FF"
	}
	var st2 state.VehicleState
	err := Parse([]byte(bad), &st2)
	if err != ErrBadChecksum {
		t.Errorf("expected ErrBadChecksum, got %v", err)
	}
	if st2.ParseFailures != 1 {
		t.Errorf("ParseFailures = %d, want 1", st2.ParseFailures)
	}
	if st2.FixQuality != 0 {
		t.Error("state should be unchanged on failure except for the counter")
	}
}

func TestParseTooFewFields(t *testing.T) {
	line := buildSentence("PANDA,123519.00,4807.038,N")
	var st state.VehicleState
	if err := Parse([]byte(line), &st); err != ErrTooFewFields {
		t.Errorf("expected ErrTooFewFields, got %v", err)
	}
}

func TestParseInvalidHeader(t *testing.T) {
	line := buildSentence(sampleBody[:0] + "GPGGA,123519.00")
	var st state.VehicleState
	if err := Parse([]byte(line), &st); err != ErrInvalidHeader {
		t.Errorf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestParseMissingIMUFieldsInvalidatesIMUOnly(t *testing.T) {
	body := "PANDA,123519.00,4807.038,N,01131.000,E,4,08,0.9,10.0,1.5,5.0,90.0,,,"
	line := buildSentence(body)
	var st state.VehicleState
	if err := Parse([]byte(line), &st); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if st.IMUValid {
		t.Error("expected IMUValid = false when fields 13..15 are blank")
	}
	if st.FixQuality != 4 {
		t.Error("non-IMU fields should still have parsed successfully")
	}
}
