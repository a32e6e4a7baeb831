// Command coverageplot renders a field directory's Coverage.bin as a
// PNG scatter of worked cells, grounded on teacher's
// internal/lidar/monitor/gridplotter.go (gonum.org/v1/plot rendering
// of a sampled grid to PNG), repointed at internal/coverage's cell
// grid instead of a lidar background grid.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/fieldstore"
	"github.com/fieldline/groundloop/internal/geometry"
)

func main() {
	dir := flag.String("dir", ".", "field directory containing Boundary.txt and Coverage.bin")
	cellSize := flag.Float64("cellsize", 0.25, "cell size in meters, must match the run that wrote Coverage.bin")
	out := flag.String("out", "coverage.png", "output PNG path")
	flag.Parse()

	if err := run(*dir, *cellSize, *out); err != nil {
		log.Fatalf("coverageplot: %v", err)
	}
}

func run(dir string, cellSize float64, out string) error {
	store := fieldstore.New(dir)

	boundaries, err := store.ReadBoundary()
	if err != nil {
		return fmt.Errorf("read boundary: %w", err)
	}
	bounds, err := unionBounds(boundaries)
	if err != nil {
		return err
	}

	eng := coverage.NewEngine(bounds, cellSize)
	if err := store.ReadCoverage(eng); err != nil {
		return fmt.Errorf("read coverage: %w", err)
	}

	return renderPNG(eng, out)
}

func unionBounds(polys []fieldstore.BoundaryPolygon) (geometry.BoundingBox, error) {
	if len(polys) == 0 {
		return geometry.BoundingBox{}, fmt.Errorf("field has no boundary polygons")
	}
	bb := polys[0].ToPolygon().Bounds()
	for _, p := range polys[1:] {
		b := p.ToPolygon().Bounds()
		if b.MinE < bb.MinE {
			bb.MinE = b.MinE
		}
		if b.MinN < bb.MinN {
			bb.MinN = b.MinN
		}
		if b.MaxE > bb.MaxE {
			bb.MaxE = b.MaxE
		}
		if b.MaxN > bb.MaxN {
			bb.MaxN = b.MaxN
		}
	}
	return bb, nil
}

func renderPNG(eng *coverage.Engine, out string) error {
	cells := eng.CoveredCells()

	p := plot.New()
	p.Title.Text = "Worked area coverage"
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"

	pts := make(plotter.XYs, len(cells))
	for i, c := range cells {
		pts[i] = plotter.XY{X: c.E, Y: c.N}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.2)
	p.Add(scatter)

	if err := os.MkdirAll(parentDir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, out); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
