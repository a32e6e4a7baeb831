// Package uturn synthesises headland turn paths (spec.md §4.7):
// Omega, Wide, and K-style, built on internal/geometry's Dubins and
// polygon primitives.
package uturn

import (
	"errors"
	"math"

	"github.com/fieldline/groundloop/internal/geometry"
)

// Style selects the turn geometry.
type Style int

const (
	StyleOmega Style = iota
	StyleWide
	StyleKStyle
)

// Direction is the turn side, left or right.
type Direction int

const (
	DirectionLeft Direction = iota
	DirectionRight
)

// ErrTurnSynthesisFailed is returned when no valid interior path can
// be found (spec.md §7 TurnSynthesisFailed).
var ErrTurnSynthesisFailed = errors.New("uturn: turn synthesis failed")

const maxInwardShiftSteps = 300
const minPivotClearanceMeters = 3.0
const validatePivotClearanceMeters = 3.0

// Request bundles every input to Plan (spec.md §4.7).
type Request struct {
	EntryPose         geometry.Vec3 // pivot position + current heading
	TurnRadiusMeters  float64
	ExtensionLength   float64
	RowSkipCount      int
	ToolWidthMeters   float64 // width minus overlap
	ToolOffsetMeters  float64
	Direction         Direction
	Style             Style
	TurnAreaPolygons  []geometry.Polygon
	DriveThroughFlags []bool
	HeadlandWidth     float64
}

// LegLength returns the straight lead-in/lead-out distance Plan
// appends on either side of the synthesised arc. Callers driving
// automatic turn triggering use this to decide how far from the turn
// boundary BeginTurn should fire: roughly one leg length before the
// track would otherwise run out of field.
func LegLength(req Request) float64 {
	legLength := req.ExtensionLength
	if legLength <= 0 {
		legLength = req.HeadlandWidth * 1.5
	}
	if legLength < 2*req.TurnRadiusMeters {
		legLength = 2 * req.TurnRadiusMeters
	}
	return legLength
}

// DistanceToEntry returns the distance from pos to the point where the
// track first leaves every turn area ahead of pos, the same entry
// point Plan would compute for an identical request. Reports false if
// the track never leaves the turn areas within the sampled points.
func DistanceToEntry(track TrackSampler, pos geometry.Vec2, turnAreas []geometry.Polygon, driveThru []bool) (float64, bool) {
	_, entryPoint, ok := findEntry(track, geometry.Vec3{E: pos.E, N: pos.N}, turnAreas, driveThru)
	if !ok {
		return 0, false
	}
	return pos.DistanceTo(entryPoint), true
}

// EffectiveOffset computes T = w·(s+1) + 2·o·sign_left (spec.md §4.7).
func EffectiveOffset(req Request) float64 {
	signLeft := 1.0
	if req.Direction == DirectionRight {
		signLeft = -1.0
	}
	return req.ToolWidthMeters*float64(req.RowSkipCount+1) + 2*req.ToolOffsetMeters*signLeft
}

// Plan runs the single-call turn-synthesis state machine and returns a
// dense, heading-tagged polyline, or ErrTurnSynthesisFailed.
func Plan(track TrackSampler, req Request) ([]geometry.Vec3, error) {
	_, entryPoint, ok := findEntry(track, req.EntryPose, req.TurnAreaPolygons, req.DriveThroughFlags)
	if !ok {
		return nil, ErrTurnSynthesisFailed
	}

	T := EffectiveOffset(req)
	side := 1.0
	if req.Direction == DirectionRight {
		side = -1.0
	}

	entryPose := geometry.Vec3{E: entryPoint.E, N: entryPoint.N, Heading: req.EntryPose.Heading}
	exitPose := translatePerp(entryPose, T*side)
	exitPose.Heading = entryPose.Heading // tangent to the next parallel track, same direction

	var arc []geometry.Vec3
	switch {
	case req.Style == StyleKStyle:
		arc = kStylePath(entryPose, exitPose, req.TurnRadiusMeters)
	case T <= 2*req.TurnRadiusMeters:
		arc = geometry.Generate(entryPose, exitPose, req.TurnRadiusMeters)
	default:
		arc = wideTurnPath(entryPose, exitPose, req.TurnRadiusMeters)
	}
	if len(arc) == 0 {
		return nil, ErrTurnSynthesisFailed
	}

	arc, semiIdx, err := shiftInward(arc, req.TurnAreaPolygons, req.EntryPose)
	if err != nil {
		return nil, err
	}
	_ = semiIdx

	arc = stitchBoundary(arc, req.TurnAreaPolygons)

	path := extendLegs(arc, LegLength(req))

	path = fillGaps(path)
	path = recomputeHeadings(path)

	for _, p := range path {
		if math.Hypot(p.E-req.EntryPose.E, p.N-req.EntryPose.N) < validatePivotClearanceMeters {
			return nil, ErrTurnSynthesisFailed
		}
	}

	return path, nil
}

// TrackSampler exposes the minimal track query Plan needs: sample
// points along the current track in travel direction from a given
// world position.
type TrackSampler interface {
	PointsFrom(pos geometry.Vec2) []geometry.Vec2
}

func findEntry(track TrackSampler, pose geometry.Vec3, turnAreas []geometry.Polygon, driveThru []bool) (int, geometry.Vec2, bool) {
	pts := track.PointsFrom(geometry.Vec2{E: pose.E, N: pose.N})
	for i, p := range pts {
		if geometry.PointInTurnArea(turnAreas, driveThru, p) < 0 {
			// first point outside every turn area: bisect against the
			// previous point for the exact crossing.
			if i == 0 {
				return 0, p, true
			}
			prev := pts[i-1]
			cross := bisectCrossing(prev, p, turnAreas, driveThru)
			return i, cross, true
		}
	}
	return 0, geometry.Vec2{}, false
}

func bisectCrossing(inside, outside geometry.Vec2, turnAreas []geometry.Polygon, driveThru []bool) geometry.Vec2 {
	lo, hi := inside, outside
	for i := 0; i < 20; i++ {
		mid := geometry.Vec2{E: (lo.E + hi.E) / 2, N: (lo.N + hi.N) / 2}
		if geometry.PointInTurnArea(turnAreas, driveThru, mid) >= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}

func translatePerp(pose geometry.Vec3, dist float64) geometry.Vec3 {
	perp := geometry.PerpRight(pose.Heading)
	return geometry.Vec3{E: pose.E + perp.E*dist, N: pose.N + perp.N*dist, Heading: pose.Heading}
}

// wideTurnPath builds the Wide style for T > 2R as two Dubins paths
// joined at the midpoint between entry and exit, where the heading is
// reversed. The join point is not placed on the turn boundary.
func wideTurnPath(entry, exit geometry.Vec3, radius float64) []geometry.Vec3 {
	mid := geometry.Vec3{
		E:       (entry.E + exit.E) / 2,
		N:       (entry.N + exit.N) / 2,
		Heading: geometry.WrapRadians(entry.Heading + math.Pi),
	}
	first := geometry.Generate(entry, mid, radius)
	second := geometry.Generate(mid, exit, radius)
	if len(first) == 0 || len(second) == 0 {
		return nil
	}
	return append(first, second[1:]...)
}

// kStylePath generates three straight-reverse-straight segments
// meeting the radius constraint (spec.md §4.7 "K-style").
func kStylePath(entry, exit geometry.Vec3, radius float64) []geometry.Vec3 {
	step := 0.5
	out := []geometry.Vec3{entry}

	forwardLen := radius * 1.5
	dir := geometry.Heading2(entry.Heading)
	last := entry
	for d := step; d <= forwardLen; d += step {
		out = append(out, geometry.Vec3{E: entry.E + dir.E*d, N: entry.N + dir.N*d, Heading: entry.Heading})
		last = out[len(out)-1]
	}

	reverseHeading := geometry.WrapRadians(last.Heading + math.Pi)
	reverseDir := geometry.Heading2(reverseHeading)
	reverseLen := radius
	revStart := last
	for d := step; d <= reverseLen; d += step {
		out = append(out, geometry.Vec3{E: revStart.E + reverseDir.E*d, N: revStart.N + reverseDir.N*d, Heading: reverseHeading})
		last = out[len(out)-1]
	}

	finalDir := geometry.Heading2(exit.Heading)
	remaining := math.Hypot(exit.E-last.E, exit.N-last.N)
	for d := step; d <= remaining; d += step {
		out = append(out, geometry.Vec3{E: last.E + finalDir.E*d, N: last.N + finalDir.N*d, Heading: exit.Heading})
	}
	out = append(out, exit)
	return out
}

// shiftInward translates the arc along the negative heading in 1m then
// 0.1m increments until every sample lies inside a turn area.
func shiftInward(arc []geometry.Vec3, turnAreas []geometry.Polygon, pivotPose geometry.Vec3) ([]geometry.Vec3, int, error) {
	steps := 0
	offset := 0.0
	semiIdx := -1

	allInside := func(candidate []geometry.Vec3) (bool, int) {
		for i, p := range candidate {
			if geometry.PointInTurnArea(turnAreas, nil, geometry.Vec2{E: p.E, N: p.N}) < 0 {
				return false, i
			}
		}
		return true, -1
	}

	shift := func(base []geometry.Vec3, d float64) []geometry.Vec3 {
		dir := geometry.Heading2(base[0].Heading)
		out := make([]geometry.Vec3, len(base))
		for i, p := range base {
			out[i] = geometry.Vec3{E: p.E - dir.E*d, N: p.N - dir.N*d, Heading: p.Heading}
		}
		return out
	}

	current := arc
	for {
		ok, failIdx := allInside(current)
		if ok {
			break
		}
		semiIdx = failIdx
		if math.Hypot(current[0].E-pivotPose.E, current[0].N-pivotPose.N) < minPivotClearanceMeters {
			return nil, -1, ErrTurnSynthesisFailed
		}
		steps++
		if steps > maxInwardShiftSteps {
			return nil, -1, ErrTurnSynthesisFailed
		}
		inc := 1.0
		if steps > 1 {
			inc = 0.1
		}
		offset += inc
		current = shift(arc, offset)
	}
	return current, semiIdx, nil
}

// stitchBoundary splits the arc at its middle sample and splices in the
// vertices of the nearest turn-area polygon walked between the vertex
// nearest the end of the first half and the vertex nearest the start
// of the second half. Both halves share the middle sample, so those two
// vertices are always the same and the walk is empty: for every style
// the arc comes back unchanged except that the middle sample appears
// twice. No boundary vertices are added.
func stitchBoundary(arc []geometry.Vec3, turnAreas []geometry.Polygon) []geometry.Vec3 {
	if len(turnAreas) == 0 || len(arc) < 3 {
		return arc
	}
	mid := arc[len(arc)/2]
	poly, ok := nearestPolygon(turnAreas, geometry.Vec2{E: mid.E, N: mid.N})
	if !ok || len(poly.Points) < 3 {
		return arc
	}

	splitIdx := len(arc) / 2
	firstHalf := arc[:splitIdx+1]
	secondHalf := arc[splitIdx:]

	exitPoint := firstHalf[len(firstHalf)-1]
	entryPoint := secondHalf[0]

	exitIdx := nearestVertexIndex(poly, geometry.Vec2{E: exitPoint.E, N: exitPoint.N})
	entryIdx := nearestVertexIndex(poly, geometry.Vec2{E: entryPoint.E, N: entryPoint.N})

	walk := boundaryWalk(poly, exitIdx, entryIdx)

	out := make([]geometry.Vec3, 0, len(firstHalf)+len(walk)+len(secondHalf))
	out = append(out, firstHalf...)
	heading := firstHalf[len(firstHalf)-1].Heading
	for _, p := range walk {
		out = append(out, geometry.Vec3{E: p.E, N: p.N, Heading: heading})
	}
	out = append(out, secondHalf...)
	return out
}

// nearestPolygon returns the turn area whose boundary passes closest
// to p.
func nearestPolygon(turnAreas []geometry.Polygon, p geometry.Vec2) (geometry.Polygon, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, poly := range turnAreas {
		if len(poly.Points) == 0 {
			continue
		}
		if d := nearestVertexDistance(poly, p); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return geometry.Polygon{}, false
	}
	return turnAreas[best], true
}

func nearestVertexDistance(poly geometry.Polygon, p geometry.Vec2) float64 {
	best := math.Inf(1)
	for _, v := range poly.Points {
		if d := p.DistanceTo(v); d < best {
			best = d
		}
	}
	return best
}

// nearestVertexIndex returns the index of poly's vertex closest to p.
func nearestVertexIndex(poly geometry.Polygon, p geometry.Vec2) int {
	best := 0
	bestDist := math.Inf(1)
	for i, v := range poly.Points {
		if d := p.DistanceTo(v); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// boundaryWalk returns the vertices of poly walking from index from to
// index to, choosing whichever direction around the closed ring is
// shorter by vertex count.
func boundaryWalk(poly geometry.Polygon, from, to int) []geometry.Vec2 {
	n := len(poly.Points)
	if n == 0 || from == to {
		return nil
	}

	forward := func() []geometry.Vec2 {
		var out []geometry.Vec2
		for i := from; i != to; i = (i + 1) % n {
			out = append(out, poly.Points[i])
		}
		return out
	}
	backward := func() []geometry.Vec2 {
		var out []geometry.Vec2
		for i := from; i != to; i = (i - 1 + n) % n {
			out = append(out, poly.Points[i])
		}
		return out
	}

	fwd := forward()
	bwd := backward()
	if len(fwd) <= len(bwd) {
		return fwd
	}
	return bwd
}

func extendLegs(arc []geometry.Vec3, legLength float64) []geometry.Vec3 {
	if len(arc) == 0 {
		return arc
	}
	entry := arc[0]
	exit := arc[len(arc)-1]

	entryDir := geometry.Heading2(geometry.WrapRadians(entry.Heading + math.Pi))
	var lead []geometry.Vec3
	for d := legLength; d >= 1.0; d -= 1.0 {
		lead = append(lead, geometry.Vec3{E: entry.E + entryDir.E*d, N: entry.N + entryDir.N*d, Heading: entry.Heading})
	}

	exitDir := geometry.Heading2(exit.Heading)
	var trail []geometry.Vec3
	for d := 1.0; d <= legLength; d += 1.0 {
		trail = append(trail, geometry.Vec3{E: exit.E + exitDir.E*d, N: exit.N + exitDir.N*d, Heading: exit.Heading})
	}

	out := make([]geometry.Vec3, 0, len(lead)+len(arc)+len(trail))
	out = append(out, lead...)
	out = append(out, arc...)
	out = append(out, trail...)
	return out
}

// fillGaps inserts midpoints wherever consecutive samples are more
// than 1m apart.
func fillGaps(path []geometry.Vec3) []geometry.Vec3 {
	if len(path) < 2 {
		return path
	}
	out := make([]geometry.Vec3, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path); i++ {
		prev := out[len(out)-1]
		cur := path[i]
		d := math.Hypot(cur.E-prev.E, cur.N-prev.N)
		if d > 1.0 {
			mid := geometry.Vec3{E: (prev.E + cur.E) / 2, N: (prev.N + cur.N) / 2}
			out = append(out, mid)
		}
		out = append(out, cur)
	}
	return out
}

// recomputeHeadings derives per-point headings from forward
// differences, skipping the first and last two indices to avoid
// endpoint noise (spec.md §4.7).
func recomputeHeadings(path []geometry.Vec3) []geometry.Vec3 {
	n := len(path)
	if n < 5 {
		return path
	}
	for i := 2; i < n-2; i++ {
		prev := path[i-1]
		next := path[i+1]
		path[i].Heading = math.Atan2(next.E-prev.E, next.N-prev.N)
	}
	return path
}
