package fieldstore

import "fmt"

// BackPic is the background-image georeference (spec.md §6).
type BackPic struct {
	Enabled    bool
	MaxE, MinE float64
	MaxN, MinN float64
}

const backPicFileName = "BackPic.Txt"

// WriteBackPic serialises BackPic.Txt.
func (s *Store) WriteBackPic(bp BackPic) error {
	b := append([]byte{}, "$BackPic\n"...)
	b = append(b, fmt.Sprintf("%t\n", bp.Enabled)...)
	b = append(b, formatE(bp.MaxE)+"\n"...)
	b = append(b, formatE(bp.MinE)+"\n"...)
	b = append(b, formatE(bp.MaxN)+"\n"...)
	b = append(b, formatE(bp.MinN)+"\n"...)
	return s.writeFile(backPicFileName, b)
}

// ReadBackPic parses BackPic.Txt.
func (s *Store) ReadBackPic() (BackPic, error) {
	var bp BackPic
	data, err := s.readFile(backPicFileName)
	if err != nil {
		return bp, err
	}
	r := newLineReader(data)
	if err := r.expect("$BackPic"); err != nil {
		return bp, err
	}
	if bp.Enabled, err = r.nextBool(); err != nil {
		return bp, err
	}
	if bp.MaxE, err = r.nextFloat(); err != nil {
		return bp, err
	}
	if bp.MinE, err = r.nextFloat(); err != nil {
		return bp, err
	}
	if bp.MaxN, err = r.nextFloat(); err != nil {
		return bp, err
	}
	if bp.MinN, err = r.nextFloat(); err != nil {
		return bp, err
	}
	return bp, nil
}
