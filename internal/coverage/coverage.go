// Package coverage implements the triangle-strip patch engine and its
// cell-grid bitmap export (spec.md §4.8). Coverage patches are owned
// exclusively by Engine; queries return borrows, and snapshot export
// copies into the bitmap cell buffer (spec.md §9 "Ownership for
// coverage").
package coverage

import (
	"math"

	"github.com/google/uuid"

	"github.com/fieldline/groundloop/internal/geometry"
)

// minPointSpacingSq is the squared minimum spacing between consecutive
// coverage points within a patch, √0.0144m (spec.md §4.8).
const minPointSpacingSq = 0.0144

// Patch is a triangle-strip: ordered (left,right) vertex pairs.
type Patch struct {
	ID          uuid.UUID
	Zone        int
	Colour      uint32
	Left, Right []geometry.Vec2
	open        bool
}

// Area returns the total triangulated area of the strip.
func (p *Patch) Area() float64 {
	area := 0.0
	for i := 0; i+1 < len(p.Left); i++ {
		area += triArea(p.Left[i], p.Right[i], p.Left[i+1])
		area += triArea(p.Right[i], p.Right[i+1], p.Left[i+1])
	}
	return area
}

func triArea(a, b, c geometry.Vec2) float64 {
	return math.Abs((b.E-a.E)*(c.N-a.N)-(c.E-a.E)*(b.N-a.N)) / 2
}

func (p *Patch) polygon() geometry.PolygonSet {
	n := len(p.Left)
	pts := make([]geometry.Vec2, 0, 2*n)
	pts = append(pts, p.Left...)
	for i := n - 1; i >= 0; i-- {
		pts = append(pts, p.Right[i])
	}
	return geometry.PolygonSet{Outer: geometry.Polygon{Points: pts}}
}

// Engine holds every zone's patches plus a fixed-bounds cell grid for
// bitmap export.
type Engine struct {
	Bounds     geometry.BoundingBox
	CellSizeM  float64
	patches    map[int][]*Patch
	open       map[int]*Patch
	grid       map[cellKey]bool
	dirty      bool
}

type cellKey struct{ X, Y int }

// NewEngine creates an Engine bounded to bounds with the given cell
// size in meters.
func NewEngine(bounds geometry.BoundingBox, cellSizeM float64) *Engine {
	return &Engine{
		Bounds:    bounds,
		CellSizeM: cellSizeM,
		patches:   make(map[int][]*Patch),
		open:      make(map[int]*Patch),
		grid:      make(map[cellKey]bool),
	}
}

// StartMapping opens a new patch for zone, seeded with one vertex
// pair.
func (e *Engine) StartMapping(zone int, left, right geometry.Vec2, colour uint32) {
	p := &Patch{ID: uuid.New(), Zone: zone, Colour: colour, open: true}
	p.Left = append(p.Left, left)
	p.Right = append(p.Right, right)
	e.open[zone] = p
	e.dirty = true
}

// AddCoveragePoint appends a vertex pair to the open patch for zone,
// iff Euclidean distance from the previous pair's centre is ≥√0.0144m.
func (e *Engine) AddCoveragePoint(zone int, left, right geometry.Vec2) {
	p, ok := e.open[zone]
	if !ok || !p.open {
		return
	}
	n := len(p.Left)
	if n > 0 {
		prevCentre := midpoint(p.Left[n-1], p.Right[n-1])
		centre := midpoint(left, right)
		if distSq(prevCentre, centre) < minPointSpacingSq {
			return
		}
	}
	p.Left = append(p.Left, left)
	p.Right = append(p.Right, right)
	e.markCells(p, n)
	e.dirty = true
}

// StopMapping closes the open patch for zone. A patch with fewer than
// two vertex pairs (StartMapping with no AddCoveragePoint) produces no
// retained patch, per spec.md §8's idempotence law.
func (e *Engine) StopMapping(zone int) {
	p, ok := e.open[zone]
	if !ok {
		return
	}
	delete(e.open, zone)
	p.open = false
	e.dirty = true
	if len(p.Left) >= 2 {
		e.patches[zone] = append(e.patches[zone], p)
	}
}

func midpoint(a, b geometry.Vec2) geometry.Vec2 {
	return geometry.Vec2{E: (a.E + b.E) / 2, N: (a.N + b.N) / 2}
}

func distSq(a, b geometry.Vec2) float64 {
	de, dn := a.E-b.E, a.N-b.N
	return de*de + dn*dn
}

// IsPointCovered scans the cells enclosing (e,n) for recorded coverage.
func (e *Engine) IsPointCovered(east, north float64) bool {
	k := e.cellFor(east, north)
	return e.grid[k]
}

// SegmentCoverage projects a perpendicular segment at centre+heading*
// lookAhead and returns the fraction of that segment lying within any
// existing patch, sampled at ≥8 interior points.
func (e *Engine) SegmentCoverage(centre geometry.Vec2, heading, halfWidth, lookAhead float64) float64 {
	projected := geometry.Vec2{
		E: centre.E + math.Sin(heading)*lookAhead,
		N: centre.N + math.Cos(heading)*lookAhead,
	}
	return e.segmentCoverageAt(projected, heading, halfWidth)
}

func (e *Engine) segmentCoverageAt(centre geometry.Vec2, heading, halfWidth float64) float64 {
	const samples = 65 // ≥8 required; matches geometry.SegmentInsideFraction's resolution
	if halfWidth <= 0 {
		return boolToFrac(e.IsPointCovered(centre.E, centre.N))
	}
	perp := geometry.PerpRight(heading)
	covered := 0
	for i := 0; i < samples; i++ {
		t := -halfWidth + 2*halfWidth*float64(i)/float64(samples-1)
		p := geometry.Vec2{E: centre.E + perp.E*t, N: centre.N + perp.N*t}
		if e.IsPointCovered(p.E, p.N) {
			covered++
		}
	}
	return float64(covered) / float64(samples)
}

func boolToFrac(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// SegmentCoverageMulti returns (current, look-on, look-off) coverage
// fractions for the segments at centre, centre+heading*lookOnDist and
// centre+heading*lookOffDist. Each segment is sampled in its own
// segmentCoverageAt pass; no samples are shared between the three.
func (e *Engine) SegmentCoverageMulti(centre geometry.Vec2, heading, halfWidth, lookOnDist, lookOffDist float64) (current, lookOn, lookOff float64) {
	current = e.segmentCoverageAt(centre, heading, halfWidth)
	onPoint := geometry.Vec2{E: centre.E + math.Sin(heading)*lookOnDist, N: centre.N + math.Cos(heading)*lookOnDist}
	offPoint := geometry.Vec2{E: centre.E + math.Sin(heading)*lookOffDist, N: centre.N + math.Cos(heading)*lookOffDist}
	lookOn = e.segmentCoverageAt(onPoint, heading, halfWidth)
	lookOff = e.segmentCoverageAt(offPoint, heading, halfWidth)
	return current, lookOn, lookOff
}

// FlushUpdate reports whether any mutating operation has occurred
// since the previous flush, clearing the dirty flag. Callers emit one
// aggregated update event iff this returns true.
func (e *Engine) FlushUpdate() bool {
	if !e.dirty {
		return false
	}
	e.dirty = false
	return true
}

// TotalWorkedArea sums every patch's triangulated area across all
// zones, matching spec.md §8's invariant against the patch areas.
// Overlapping passes are each counted, so this exceeds the true
// covered ground area whenever sections re-cover the same cells.
func (e *Engine) TotalWorkedArea() float64 {
	total := 0.0
	for _, zonePatches := range e.patches {
		for _, p := range zonePatches {
			total += p.Area()
		}
	}
	return total
}

// DedupedCoverageArea returns the true covered ground area, counting
// each worked cell once regardless of how many patches overlap it.
func (e *Engine) DedupedCoverageArea() float64 {
	return float64(len(e.grid)) * e.CellSizeM * e.CellSizeM
}

func (e *Engine) cellFor(east, north float64) cellKey {
	return cellKey{
		X: int(math.Floor((east - e.Bounds.MinE) / e.CellSizeM)),
		Y: int(math.Floor((north - e.Bounds.MinN) / e.CellSizeM)),
	}
}

// markCells rasterises the quad formed by the patch's segment
// n-1..n into the cell grid, used by IsPointCovered/SegmentCoverage.
func (e *Engine) markCells(p *Patch, n int) {
	if n == 0 {
		return
	}
	quad := geometry.PolygonSet{Outer: geometry.Polygon{Points: []geometry.Vec2{
		p.Left[n-1], p.Right[n-1], p.Right[n], p.Left[n],
	}}}
	box := geometry.Polygon{Points: quad.Outer.Points}.Bounds()
	minX := int(math.Floor((box.MinE - e.Bounds.MinE) / e.CellSizeM))
	maxX := int(math.Floor((box.MaxE - e.Bounds.MinE) / e.CellSizeM))
	minY := int(math.Floor((box.MinN - e.Bounds.MinN) / e.CellSizeM))
	maxY := int(math.Floor((box.MaxN - e.Bounds.MinN) / e.CellSizeM))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			cellCentre := geometry.Vec2{
				E: e.Bounds.MinE + (float64(x)+0.5)*e.CellSizeM,
				N: e.Bounds.MinN + (float64(y)+0.5)*e.CellSizeM,
			}
			if geometry.PointInSet(quad, cellCentre) {
				e.grid[cellKey{X: x, Y: y}] = true
			}
		}
	}
}

// CoveredCells returns the centre point of every worked cell in the
// grid, for dashboard rendering. Callers must not mutate the result.
func (e *Engine) CoveredCells() []geometry.Vec2 {
	pts := make([]geometry.Vec2, 0, len(e.grid))
	for k := range e.grid {
		pts = append(pts, geometry.Vec2{
			E: e.Bounds.MinE + (float64(k.X)+0.5)*e.CellSizeM,
			N: e.Bounds.MinN + (float64(k.Y)+0.5)*e.CellSizeM,
		})
	}
	return pts
}

// Zones returns the zone indices with at least one closed patch.
func (e *Engine) Zones() []int {
	zones := make([]int, 0, len(e.patches))
	for zone := range e.patches {
		zones = append(zones, zone)
	}
	return zones
}
