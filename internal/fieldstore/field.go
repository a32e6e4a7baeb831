package fieldstore

import (
	"fmt"
	"strconv"
	"time"
)

// FieldInfo is the content of Field.txt: identity, local-origin
// offsets, and the start fix used to establish geoproj.Origin.
type FieldInfo struct {
	Timestamp      time.Time
	Name           string
	OffsetX        float64
	OffsetY        float64
	Convergence    float64
	StartLatitude  float64
	StartLongitude float64
}

const fieldFileName = "Field.txt"

// WriteFieldInfo serialises Field.txt.
func (s *Store) WriteFieldInfo(f FieldInfo) error {
	var b []byte
	b = append(b, f.Timestamp.UTC().Format(time.RFC3339)+"\n"...)
	b = append(b, "$FieldDir\n"...)
	b = append(b, f.Name+"\n"...)
	b = append(b, "$Offsets\n"...)
	b = append(b, fmt.Sprintf("%s,%s\n", formatE(f.OffsetX), formatE(f.OffsetY))...)
	b = append(b, "Convergence\n"...)
	b = append(b, strconv.FormatFloat(f.Convergence, 'f', 5, 64)+"\n"...)
	b = append(b, "StartFix\n"...)
	b = append(b, fmt.Sprintf("%s,%s\n", formatLatLon(f.StartLatitude), formatLatLon(f.StartLongitude))...)
	return s.writeFile(fieldFileName, b)
}

// ReadFieldInfo parses Field.txt.
func (s *Store) ReadFieldInfo() (FieldInfo, error) {
	var f FieldInfo
	data, err := s.readFile(fieldFileName)
	if err != nil {
		return f, err
	}
	r := newLineReader(data)

	tsLine, err := r.next()
	if err != nil {
		return f, err
	}
	ts, err := time.Parse(time.RFC3339, tsLine)
	if err != nil {
		return f, fmt.Errorf("fieldstore: bad timestamp %q: %w", tsLine, err)
	}
	f.Timestamp = ts

	if err := r.expect("$FieldDir"); err != nil {
		return f, err
	}
	name, err := r.next()
	if err != nil {
		return f, err
	}
	f.Name = name

	if err := r.expect("$Offsets"); err != nil {
		return f, err
	}
	offLine, err := r.next()
	if err != nil {
		return f, err
	}
	offParts, err := fields(offLine, 2)
	if err != nil {
		return f, err
	}
	if f.OffsetX, err = parseFloat(offParts[0]); err != nil {
		return f, err
	}
	if f.OffsetY, err = parseFloat(offParts[1]); err != nil {
		return f, err
	}

	if err := r.expect("Convergence"); err != nil {
		return f, err
	}
	if f.Convergence, err = r.nextFloat(); err != nil {
		return f, err
	}

	if err := r.expect("StartFix"); err != nil {
		return f, err
	}
	fixLine, err := r.next()
	if err != nil {
		return f, err
	}
	fixParts, err := fields(fixLine, 2)
	if err != nil {
		return f, err
	}
	if f.StartLatitude, err = parseFloat(fixParts[0]); err != nil {
		return f, err
	}
	if f.StartLongitude, err = parseFloat(fixParts[1]); err != nil {
		return f, err
	}

	return f, nil
}
