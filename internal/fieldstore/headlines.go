package fieldstore

import (
	"fmt"

	"github.com/fieldline/groundloop/internal/geometry"
)

// HeadlinePath is one on-disk headland travel path: a sequence of
// points the vehicle follows between worked passes (spec.md §6).
type HeadlinePath struct {
	Name         string
	MoveDistance float64
	Mode         int
	APointIndex  int
	Points       []geometry.Vec2
}

const headlinesFileName = "Headlines.txt"

// WriteHeadlines serialises Headlines.txt.
func (s *Store) WriteHeadlines(paths []HeadlinePath) error {
	b := append([]byte{}, "$HeadLines\n"...)
	for _, p := range paths {
		b = append(b, p.Name+"\n"...)
		b = append(b, formatE(p.MoveDistance)+"\n"...)
		b = append(b, fmt.Sprintf("%d\n", p.Mode)...)
		b = append(b, fmt.Sprintf("%d\n", p.APointIndex)...)
		b = append(b, fmt.Sprintf("%d\n", len(p.Points))...)
		for _, pt := range p.Points {
			b = append(b, fmt.Sprintf("%s,%s\n", formatE(pt.E), formatE(pt.N))...)
		}
	}
	return s.writeFile(headlinesFileName, b)
}

// ReadHeadlines parses Headlines.txt.
func (s *Store) ReadHeadlines() ([]HeadlinePath, error) {
	data, err := s.readFile(headlinesFileName)
	if err != nil {
		return nil, err
	}
	r := newLineReader(data)
	if err := r.expect("$HeadLines"); err != nil {
		return nil, err
	}

	var paths []HeadlinePath
	for r.pos < len(r.lines) {
		var p HeadlinePath
		if p.Name, err = r.next(); err != nil {
			return nil, err
		}
		if p.MoveDistance, err = r.nextFloat(); err != nil {
			return nil, err
		}
		if p.Mode, err = r.nextInt(); err != nil {
			return nil, err
		}
		if p.APointIndex, err = r.nextInt(); err != nil {
			return nil, err
		}
		n, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		p.Points = make([]geometry.Vec2, 0, n)
		for i := 0; i < n; i++ {
			line, err := r.next()
			if err != nil {
				return nil, err
			}
			parts, err := fields(line, 2)
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
			p.Points = append(p.Points, geometry.Vec2{E: e, N: north})
		}
		paths = append(paths, p)
	}
	return paths, nil
}
