package fieldstore

import (
	"fmt"

	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/guidance"
)

// TrackLine is one on-disk guidance track: either an A→B line or a
// curve, matching guidance.Track's tagged-variant shape (spec.md §6).
type TrackLine struct {
	Name       string
	Heading    float64 // radians
	A, B       geometry.Vec2
	Nudge      float64
	Mode       int
	Visible    bool
	CurvePoint []geometry.Vec3
}

const trackLinesFileName = "TrackLines.txt"

// WriteTrackLines serialises TrackLines.txt.
func (s *Store) WriteTrackLines(tracks []TrackLine) error {
	b := append([]byte{}, "$TrackLines\n"...)
	for _, t := range tracks {
		b = append(b, t.Name+"\n"...)
		b = append(b, formatHeading(t.Heading)+"\n"...)
		b = append(b, fmt.Sprintf("%s,%s\n", formatE(t.A.E), formatE(t.A.N))...)
		b = append(b, fmt.Sprintf("%s,%s\n", formatE(t.B.E), formatE(t.B.N))...)
		b = append(b, formatE(t.Nudge)+"\n"...)
		b = append(b, fmt.Sprintf("%d\n", t.Mode)...)
		b = append(b, fmt.Sprintf("%t\n", t.Visible)...)
		b = append(b, fmt.Sprintf("%d\n", len(t.CurvePoint))...)
		for _, p := range t.CurvePoint {
			b = append(b, fmt.Sprintf("%s,%s,%s\n", formatE(p.E), formatE(p.N), formatHeading(p.Heading))...)
		}
	}
	return s.writeFile(trackLinesFileName, b)
}

// ReadTrackLines parses TrackLines.txt.
func (s *Store) ReadTrackLines() ([]TrackLine, error) {
	data, err := s.readFile(trackLinesFileName)
	if err != nil {
		return nil, err
	}
	r := newLineReader(data)
	if err := r.expect("$TrackLines"); err != nil {
		return nil, err
	}

	var tracks []TrackLine
	for r.pos < len(r.lines) {
		var t TrackLine
		if t.Name, err = r.next(); err != nil {
			return nil, err
		}
		if t.Heading, err = r.nextFloat(); err != nil {
			return nil, err
		}

		aLine, err := r.next()
		if err != nil {
			return nil, err
		}
		aParts, err := fields(aLine, 2)
		if err != nil {
			return nil, err
		}
		if t.A.E, err = parseFloat(aParts[0]); err != nil {
			return nil, err
		}
		if t.A.N, err = parseFloat(aParts[1]); err != nil {
			return nil, err
		}

		bLine, err := r.next()
		if err != nil {
			return nil, err
		}
		bParts, err := fields(bLine, 2)
		if err != nil {
			return nil, err
		}
		if t.B.E, err = parseFloat(bParts[0]); err != nil {
			return nil, err
		}
		if t.B.N, err = parseFloat(bParts[1]); err != nil {
			return nil, err
		}

		if t.Nudge, err = r.nextFloat(); err != nil {
			return nil, err
		}
		if t.Mode, err = r.nextInt(); err != nil {
			return nil, err
		}
		if t.Visible, err = r.nextBool(); err != nil {
			return nil, err
		}
		n, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		t.CurvePoint = make([]geometry.Vec3, 0, n)
		for i := 0; i < n; i++ {
			line, err := r.next()
			if err != nil {
				return nil, err
			}
			parts, err := fields(line, 3)
			if err != nil {
				return nil, err
			}
			e, err := parseFloat(parts[0])
			if err != nil {
				return nil, err
			}
			north, err := parseFloat(parts[1])
			if err != nil {
				return nil, err
			}
			h, err := parseFloat(parts[2])
			if err != nil {
				return nil, err
			}
			t.CurvePoint = append(t.CurvePoint, geometry.Vec3{E: e, N: north, Heading: h})
		}

		tracks = append(tracks, t)
	}
	return tracks, nil
}

// ToTrack converts an on-disk TrackLine to a guidance.Track: an AbLine
// when there are no curve points, a Curve otherwise.
func (t TrackLine) ToTrack() guidance.Track {
	if len(t.CurvePoint) == 0 {
		return guidance.NewAbLine(t.A, t.B)
	}
	pts := make([]geometry.Vec2, len(t.CurvePoint))
	for i, p := range t.CurvePoint {
		pts[i] = geometry.Vec2{E: p.E, N: p.N}
	}
	return guidance.NewCurve(pts)
}
