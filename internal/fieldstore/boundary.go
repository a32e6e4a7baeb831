package fieldstore

import (
	"fmt"

	"github.com/fieldline/groundloop/internal/geometry"
)

// BoundaryPolygon is one on-disk polygon block: a drive-through flag
// plus per-vertex easting/northing/heading (spec.md §6).
type BoundaryPolygon struct {
	IsDriveThru bool
	Points      []geometry.Vec3
}

const (
	boundaryFileName = "Boundary.txt"
	headlandFileName = "Headland.Txt"
)

func writePolygonBlock(b []byte, poly BoundaryPolygon) []byte {
	b = append(b, fmt.Sprintf("%t\n", poly.IsDriveThru)...)
	b = append(b, fmt.Sprintf("%d\n", len(poly.Points))...)
	for _, p := range poly.Points {
		b = append(b, fmt.Sprintf("%s,%s,%s\n", formatE(p.E), formatE(p.N), formatHeading(p.Heading))...)
	}
	return b
}

func readPolygonBlock(r *lineReader) (BoundaryPolygon, error) {
	var poly BoundaryPolygon

	driveThru, err := r.nextBool()
	if err != nil {
		return poly, err
	}
	poly.IsDriveThru = driveThru

	// Legacy writers may duplicate the drive-through flag; accept and
	// skip a second boolean line before the point count.
	n, err := r.nextInt()
	if err != nil {
		r.pos--
		n2, err2 := r.nextBool()
		if err2 != nil {
			return poly, err
		}
		poly.IsDriveThru = n2
		n, err = r.nextInt()
		if err != nil {
			return poly, err
		}
	}

	poly.Points = make([]geometry.Vec3, 0, n)
	for i := 0; i < n; i++ {
		line, err := r.next()
		if err != nil {
			return poly, err
		}
		parts, err := fields(line, 3)
		if err != nil {
			return poly, err
		}
		e, err := parseFloat(parts[0])
		if err != nil {
			return poly, err
		}
		north, err := parseFloat(parts[1])
		if err != nil {
			return poly, err
		}
		h, err := parseFloat(parts[2])
		if err != nil {
			return poly, err
		}
		poly.Points = append(poly.Points, geometry.Vec3{E: e, N: north, Heading: h})
	}
	return poly, nil
}

// WriteBoundary serialises Boundary.txt: one or more polygon blocks
// (outer plus holes).
func (s *Store) WriteBoundary(polys []BoundaryPolygon) error {
	b := append([]byte{}, "$Boundary\n"...)
	for _, poly := range polys {
		b = writePolygonBlock(b, poly)
	}
	return s.writeFile(boundaryFileName, b)
}

// ReadBoundary parses Boundary.txt.
func (s *Store) ReadBoundary() ([]BoundaryPolygon, error) {
	data, err := s.readFile(boundaryFileName)
	if err != nil {
		return nil, err
	}
	r := newLineReader(data)
	if err := r.expect("$Boundary"); err != nil {
		return nil, err
	}
	var polys []BoundaryPolygon
	for r.pos < len(r.lines) {
		poly, err := readPolygonBlock(r)
		if err != nil {
			return nil, err
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

// WriteHeadland serialises Headland.Txt: a single polygon block using
// the same encoding as Boundary.txt.
func (s *Store) WriteHeadland(poly BoundaryPolygon) error {
	b := append([]byte{}, "$Headland\n"...)
	b = writePolygonBlock(b, poly)
	return s.writeFile(headlandFileName, b)
}

// ReadHeadland parses Headland.Txt.
func (s *Store) ReadHeadland() (BoundaryPolygon, error) {
	data, err := s.readFile(headlandFileName)
	if err != nil {
		return BoundaryPolygon{}, err
	}
	r := newLineReader(data)
	if err := r.expect("$Headland"); err != nil {
		return BoundaryPolygon{}, err
	}
	return readPolygonBlock(r)
}

// ToPolygon converts the on-disk representation to geometry.Polygon,
// discarding per-vertex heading (not part of the in-memory geometry
// type).
func (poly BoundaryPolygon) ToPolygon() geometry.Polygon {
	pts := make([]geometry.Vec2, len(poly.Points))
	for i, p := range poly.Points {
		pts[i] = geometry.Vec2{E: p.E, N: p.N}
	}
	return geometry.Polygon{Points: pts}
}
