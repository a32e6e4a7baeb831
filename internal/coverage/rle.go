package coverage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Save encodes the cell grid as a run-length-encoded bit array over
// [0,width)x[0,height) relative to e.Bounds (spec.md §4.8, §6
// Coverage.bin).
func (e *Engine) Save() ([]byte, error) {
	width := int(math.Ceil((e.Bounds.MaxE - e.Bounds.MinE) / e.CellSizeM))
	height := int(math.Ceil((e.Bounds.MaxN - e.Bounds.MinN) / e.CellSizeM))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("coverage: invalid grid bounds")
	}

	bits := make([]bool, width*height)
	for k, v := range e.grid {
		if !v || k.X < 0 || k.Y < 0 || k.X >= width || k.Y >= height {
			continue
		}
		bits[k.Y*width+k.X] = true
	}

	var buf bytes.Buffer
	header := struct {
		Width, Height int32
		CellSizeCM    int32
		MinECM, MinNCM int32
	}{
		Width:      int32(width),
		Height:     int32(height),
		CellSizeCM: int32(e.CellSizeM * 100),
		MinECM:     int32(e.Bounds.MinE * 100),
		MinNCM:     int32(e.Bounds.MinN * 100),
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}

	// RLE: alternating run lengths starting with a (possibly zero) run
	// of unset bits, each run length a varint.
	runs := encodeRuns(bits)
	for _, r := range runs {
		var tmp [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(tmp[:], uint64(r))
		buf.Write(tmp[:n])
	}
	return buf.Bytes(), nil
}

func encodeRuns(bits []bool) []int {
	runs := make([]int, 0, 64)
	cur := false
	count := 0
	for _, b := range bits {
		if b == cur {
			count++
			continue
		}
		runs = append(runs, count)
		cur = b
		count = 1
	}
	runs = append(runs, count)
	return runs
}

// Load restores the cell grid from an RLE-encoded buffer produced by
// Save. Cells outside the engine's declared field bounds are silently
// discarded (spec.md §4.8).
func (e *Engine) Load(data []byte) error {
	r := bytes.NewReader(data)
	var header struct {
		Width, Height  int32
		CellSizeCM     int32
		MinECM, MinNCM int32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("coverage: failed to read header: %w", err)
	}

	width := int(header.Width)
	total := int(header.Width) * int(header.Height)
	if total <= 0 {
		return fmt.Errorf("coverage: invalid stored grid dimensions")
	}

	e.grid = make(map[cellKey]bool, total/8+1)

	idx := 0
	cur := false
	for idx < total {
		run, err := binary.ReadUvarint(r)
		if err != nil {
			return fmt.Errorf("coverage: truncated run-length stream: %w", err)
		}
		if cur {
			for i := 0; i < int(run) && idx < total; i++ {
				x := idx % width
				y := idx / width
				east := e.Bounds.MinE + (float64(x)+0.5)*e.CellSizeM
				north := e.Bounds.MinN + (float64(y)+0.5)*e.CellSizeM
				if east >= e.Bounds.MinE && east <= e.Bounds.MaxE && north >= e.Bounds.MinN && north <= e.Bounds.MaxN {
					e.grid[cellKey{X: x, Y: y}] = true
				}
				idx++
			}
		} else {
			idx += int(run)
		}
		cur = !cur
	}
	return nil
}
