// Package transport implements the hardware module UDP transport
// (spec.md §6): PGN-tagged frames carrying the section bitmask and
// steering command outbound, broadcast on port 8888 (subnet .255) and
// received on 9999.
package transport

import (
	"encoding/binary"
	"fmt"
)

// SectionSteerPGN tags the one outbound frame this module emits: the
// per-cycle section bitmask plus steering command.
const SectionSteerPGN uint32 = 0xFE49

// frameLen is PGN(4) + bitmask(2) + steer(4).
const frameLen = 4 + 2 + 4

// ErrShortFrame is returned when a received datagram is too small to
// contain a full PGN header and payload.
var ErrShortFrame = fmt.Errorf("transport: frame shorter than expected")

// ErrUnknownPGN is returned when a received frame carries a PGN this
// module does not decode.
var ErrUnknownPGN = fmt.Errorf("transport: unrecognised PGN")

// Frame is the decoded payload of a SectionSteerPGN datagram.
type Frame struct {
	SectionBitmask    uint16
	SteerCentidegrees int32
}

// Encode renders f as a SectionSteerPGN datagram.
func Encode(f Frame) []byte {
	buf := make([]byte, frameLen)
	binary.BigEndian.PutUint32(buf[0:4], SectionSteerPGN)
	binary.BigEndian.PutUint16(buf[4:6], f.SectionBitmask)
	binary.BigEndian.PutUint32(buf[6:10], uint32(f.SteerCentidegrees))
	return buf
}

// Decode parses a received datagram, validating its PGN tag.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < frameLen {
		return Frame{}, ErrShortFrame
	}
	pgn := binary.BigEndian.Uint32(buf[0:4])
	if pgn != SectionSteerPGN {
		return Frame{}, fmt.Errorf("%w: %#x", ErrUnknownPGN, pgn)
	}
	return Frame{
		SectionBitmask:    binary.BigEndian.Uint16(buf[4:6]),
		SteerCentidegrees: int32(binary.BigEndian.Uint32(buf[6:10])),
	}, nil
}
