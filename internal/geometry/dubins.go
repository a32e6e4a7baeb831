package geometry

import "math"

// dubinsPathType enumerates the six canonical Dubins word types.
type dubinsPathType int

const (
	lsl dubinsPathType = iota
	rsr
	lsr
	rsl
	rlr
	lrl
)

type dubinsCandidate struct {
	kind   dubinsPathType
	t, p, q float64
	length float64
}

// Generate returns a dense polyline of (easting, northing, heading)
// samples along the shortest Dubins path from start to goal with
// minimum turn radius radius, sampled at step 0.1*radius per
// spec.md §4.1.
func Generate(start, goal Vec3, radius float64) []Vec3 {
	if radius <= 0 {
		radius = 1
	}
	best, ok := shortestDubins(start, goal, radius)
	if !ok {
		// Degenerate (coincident poses): emit just the two endpoints.
		return []Vec3{start, goal}
	}
	step := 0.1 * radius
	return sampleDubins(start, radius, best, step)
}

func shortestDubins(start, goal Vec3, radius float64) (dubinsCandidate, bool) {
	dx := goal.E - start.E
	dn := goal.N - start.N
	d := math.Hypot(dx, dn) / radius
	if d == 0 && WrapRadians(goal.Heading-start.Heading) == 0 {
		return dubinsCandidate{}, false
	}

	// theta measured in the same heading convention as Heading2: 0 = north,
	// clockwise positive. Convert to a standard math-angle frame (0 = east,
	// counter-clockwise positive) for the classic Dubins derivation.
	theta := math.Atan2(dn, dx)
	a := WrapRadians(headingToMathAngle(start.Heading) - theta)
	b := WrapRadians(headingToMathAngle(goal.Heading) - theta)

	candidates := []dubinsCandidate{}
	if c, ok := lslPath(a, b, d); ok {
		candidates = append(candidates, c)
	}
	if c, ok := rsrPath(a, b, d); ok {
		candidates = append(candidates, c)
	}
	if c, ok := lsrPath(a, b, d); ok {
		candidates = append(candidates, c)
	}
	if c, ok := rslPath(a, b, d); ok {
		candidates = append(candidates, c)
	}
	if c, ok := rlrPath(a, b, d); ok {
		candidates = append(candidates, c)
	}
	if c, ok := lrlPath(a, b, d); ok {
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return dubinsCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.length < best.length {
			best = c
		}
	}
	return best, true
}

func headingToMathAngle(h float64) float64 { return math.Pi/2 - h }

func lslPath(a, b, d float64) (dubinsCandidate, bool) {
	tmp := d + math.Sin(a) - math.Sin(b)
	pSq := 2 + d*d - 2*math.Cos(a-b) + 2*d*(math.Sin(a)-math.Sin(b))
	if pSq < 0 {
		return dubinsCandidate{}, false
	}
	p := math.Sqrt(pSq)
	t := WrapRadians(math.Atan2(math.Cos(b)-math.Cos(a), tmp) - a)
	if t < 0 {
		t += 2 * math.Pi
	}
	q := WrapRadians(b - a - t)
	if q < 0 {
		q += 2 * math.Pi
	}
	return dubinsCandidate{kind: lsl, t: t, p: p, q: q, length: t + p + q}, true
}

func rsrPath(a, b, d float64) (dubinsCandidate, bool) {
	tmp := d - math.Sin(a) + math.Sin(b)
	pSq := 2 + d*d - 2*math.Cos(a-b) - 2*d*(math.Sin(a)-math.Sin(b))
	if pSq < 0 {
		return dubinsCandidate{}, false
	}
	p := math.Sqrt(pSq)
	t := WrapRadians(a - math.Atan2(math.Cos(a)-math.Cos(b), tmp))
	if t < 0 {
		t += 2 * math.Pi
	}
	q := WrapRadians(a - b - t)
	if q < 0 {
		q += 2 * math.Pi
	}
	return dubinsCandidate{kind: rsr, t: t, p: p, q: q, length: t + p + q}, true
}

func lsrPath(a, b, d float64) (dubinsCandidate, bool) {
	pSq := -2 + d*d + 2*math.Cos(a-b) + 2*d*(math.Sin(a)+math.Sin(b))
	if pSq < 0 {
		return dubinsCandidate{}, false
	}
	p := math.Sqrt(pSq)
	tmp := math.Atan2(-math.Cos(a)-math.Cos(b), d+math.Sin(a)+math.Sin(b)) - math.Atan2(-2, p)
	t := WrapRadians(tmp - a)
	if t < 0 {
		t += 2 * math.Pi
	}
	q := WrapRadians(tmp - b)
	if q < 0 {
		q += 2 * math.Pi
	}
	return dubinsCandidate{kind: lsr, t: t, p: p, q: q, length: t + p + q}, true
}

func rslPath(a, b, d float64) (dubinsCandidate, bool) {
	pSq := d*d - 2 + 2*math.Cos(a-b) - 2*d*(math.Sin(a)+math.Sin(b))
	if pSq < 0 {
		return dubinsCandidate{}, false
	}
	p := math.Sqrt(pSq)
	t := WrapRadians(a - math.Atan2(math.Cos(a)+math.Cos(b), d-math.Sin(a)-math.Sin(b)) + math.Atan2(2, p))
	if t < 0 {
		t += 2 * math.Pi
	}
	q := WrapRadians(b - a + t)
	if q < 0 {
		q += 2 * math.Pi
	}
	return dubinsCandidate{kind: rsl, t: t, p: p, q: q, length: t + p + q}, true
}

func rlrPath(a, b, d float64) (dubinsCandidate, bool) {
	tmp := (6 - d*d + 2*math.Cos(a-b) + 2*d*(math.Sin(a)-math.Sin(b))) / 8
	if math.Abs(tmp) > 1 {
		return dubinsCandidate{}, false
	}
	p := 2*math.Pi - math.Acos(tmp)
	t := WrapRadians(a - math.Atan2(math.Cos(a)-math.Cos(b), d-math.Sin(a)+math.Sin(b)) + p/2)
	if t < 0 {
		t += 2 * math.Pi
	}
	q := WrapRadians(a - b - t + p)
	if q < 0 {
		q += 2 * math.Pi
	}
	return dubinsCandidate{kind: rlr, t: t, p: p, q: q, length: t + p + q}, true
}

func lrlPath(a, b, d float64) (dubinsCandidate, bool) {
	tmp := (6 - d*d + 2*math.Cos(a-b) - 2*d*(math.Sin(a)-math.Sin(b))) / 8
	if math.Abs(tmp) > 1 {
		return dubinsCandidate{}, false
	}
	p := 2*math.Pi - math.Acos(tmp)
	t := WrapRadians(-a + math.Atan2(-math.Cos(a)+math.Cos(b), d+math.Sin(a)-math.Sin(b)) + p/2)
	if t < 0 {
		t += 2 * math.Pi
	}
	q := WrapRadians(b - a - t + p)
	if q < 0 {
		q += 2 * math.Pi
	}
	return dubinsCandidate{kind: lrl, t: t, p: p, q: q, length: t + p + q}, true
}

// sampleDubins walks the three arc/line segments of cand and returns
// dense (E,N,heading) samples at the requested step in metres
// (cand's segment lengths are radius-normalised and scaled by radius
// here).
func sampleDubins(start Vec3, radius float64, cand dubinsCandidate, step float64) []Vec3 {
	segLens := [3]float64{cand.t, cand.p, cand.q}
	var segTypes [3]rune
	switch cand.kind {
	case lsl:
		segTypes = [3]rune{'L', 'S', 'L'}
	case rsr:
		segTypes = [3]rune{'R', 'S', 'R'}
	case lsr:
		segTypes = [3]rune{'L', 'S', 'R'}
	case rsl:
		segTypes = [3]rune{'R', 'S', 'L'}
	case rlr:
		segTypes = [3]rune{'R', 'L', 'R'}
	case lrl:
		segTypes = [3]rune{'L', 'R', 'L'}
	}

	totalNorm := segLens[0] + segLens[1] + segLens[2]
	totalLen := totalNorm * radius
	nSamples := int(totalLen/step) + 2

	out := make([]Vec3, 0, nSamples)
	e, n, h := start.E, start.N, start.Heading

	sampled := 0.0
	for segIdx, segLen := range segLens {
		segLenWorld := segLen * radius
		kind := segTypes[segIdx]
		travelled := 0.0
		for travelled < segLenWorld {
			d := math.Min(step, segLenWorld-travelled)
			e, n, h = advance(e, n, h, d, radius, kind)
			travelled += d
			sampled += d
			out = append(out, Vec3{E: e, N: n, Heading: h})
		}
	}
	if len(out) == 0 {
		out = append(out, start)
	}
	return out
}

// advance moves one small step d along a segment of the given kind
// ('L' left arc, 'R' right arc, 'S' straight) at the given radius.
func advance(e, n, h, d, radius float64, kind rune) (float64, float64, float64) {
	switch kind {
	case 'S':
		dir := Heading2(h)
		return e + dir.E*d, n + dir.N*d, h
	case 'L':
		dTheta := d / radius
		// centre is to the left of heading
		left := PerpRight(h).Scale(-radius)
		cx, cy := e+left.E, n+left.N
		newH := h - dTheta
		back := PerpRight(newH).Scale(radius)
		return cx + back.E, cy + back.N, WrapRadians(newH)
	case 'R':
		dTheta := d / radius
		right := PerpRight(h).Scale(radius)
		cx, cy := e+right.E, n+right.N
		newH := h + dTheta
		back := PerpRight(newH).Scale(-radius)
		return cx + back.E, cy + back.N, WrapRadians(newH)
	}
	return e, n, h
}
