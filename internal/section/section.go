// Package section implements the per-section on/off state machine
// (spec.md §4.9): boundary/headland/coverage look-ahead checks, on/off
// timers, mapping-delay-decoupled coverage recording, and manual
// button overrides.
package section

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/geometry"
)

// ButtonState is the three-way manual override per section.
type ButtonState int

const (
	ButtonOff ButtonState = iota
	ButtonAuto
	ButtonOn
)

const sectionOnDelayCycles = 2
const mappingOnDelayCycles = 3

// State is one section's control state (spec.md §3 SectionControlState).
type State struct {
	Index  int
	Button ButtonState

	IsOn bool

	onCounter  int
	offCounter int

	mapping        bool
	mappingCounter int
	mappingStarted bool

	CachedBoundaryOK bool
	CachedCoverage   float64

	onDistanceM float64
}

// Boundaries bundles the outer field boundary and inner headland used
// for containment checks.
type Boundaries struct {
	Field    geometry.PolygonSet
	Headland geometry.PolygonSet
}

// Controller drives every section for one vehicle/tool pair.
type Controller struct {
	Sections  []*State
	Boundaries Boundaries
	Coverage  *coverage.Engine
	Tool      *config.ToolConfig

	MasterOn bool

	prevHeadingRad float64
	haveHeading    bool
}

// NewController builds a Controller with n sections, all starting
// Auto/off.
func NewController(n int, boundaries Boundaries, cov *coverage.Engine, tool *config.ToolConfig) *Controller {
	sections := make([]*State, n)
	for i := range sections {
		sections[i] = &State{Index: i, Button: ButtonAuto}
	}
	return &Controller{Sections: sections, Boundaries: boundaries, Coverage: cov, Tool: tool}
}

// predictedCentre projects centre forward by dist using either a
// midpoint-averaged heading (small turn rate) or arc geometry,
// per spec.md §4.9.3.
func predictedCentre(centre geometry.Vec2, headingRad, yawRateRadPerSec, speedMPS, dist, prevHeadingRad float64, haveHeading bool) geometry.Vec2 {
	if dist <= 0 {
		return centre
	}
	dtheta := 0.0
	if haveHeading {
		dtheta = geometry.WrapRadians(headingRad - prevHeadingRad)
	}
	if math.Abs(dtheta) < 0.5 {
		avgHeading := headingRad
		if haveHeading {
			avgHeading = stat.CircularMean([]float64{prevHeadingRad, headingRad}, nil)
		}
		dir := geometry.Heading2(avgHeading)
		return geometry.Vec2{E: centre.E + dir.E*dist, N: centre.N + dir.N*dist}
	}

	if math.Abs(yawRateRadPerSec) < 1e-6 {
		dir := geometry.Heading2(headingRad)
		return geometry.Vec2{E: centre.E + dir.E*dist, N: centre.N + dir.N*dist}
	}
	radius := speedMPS / math.Abs(yawRateRadPerSec)
	turn := dist / radius
	if yawRateRadPerSec < 0 {
		turn = -turn
	}
	newHeading := headingRad + turn
	// approximate arc displacement via chord between start and end
	// headings, consistent with spec.md's arc-geometry fallback.
	chordHeading := (headingRad + newHeading) / 2
	dir := geometry.Heading2(chordHeading)
	chordLen := 2 * radius * math.Sin(turn/2)
	return geometry.Vec2{E: centre.E + dir.E*chordLen, N: centre.N + dir.N*chordLen}
}

// headlandContainment reports whether p lies within the working area
// after shrinking the headland boundary inward by penetration meters
// (used for the speed-dependent look-on headland check).
func headlandContainment(headland geometry.PolygonSet, p geometry.Vec2, penetration float64) bool {
	if len(headland.Outer.Points) == 0 {
		return false
	}
	if penetration <= 0 {
		return geometry.PointInSet(headland, p)
	}
	shrunk := geometry.PolygonOffset(headland.Outer, headland.Outer, -penetration)
	return geometry.PointInPolygon(shrunk, p)
}

// Update runs one cycle for every section given the tool's per-section
// centres/edges, current heading, yaw rate, and speed. dtSeconds is the
// elapsed time since the previous cycle, used to integrate on-distance
// for Overlap. Returns the section bitmask (bit i = section i on).
func (c *Controller) Update(centres, lefts, rights []geometry.Vec2, toolHeadingRad, vehicleHeadingRad, yawRateRadPerSec, speedMPS, dtSeconds float64) uint16 {
	var bitmask uint16
	toolHeadingDiffDeg := math.Abs(geometry.RadToDeg(geometry.WrapRadians(toolHeadingRad - vehicleHeadingRad)))
	yawRatePerUpdateDeg := math.Abs(geometry.RadToDeg(yawRateRadPerSec)) * 0.1 // nominal 10Hz cycle

	dOn := speedMPS * c.Tool.GetLookAheadOnSeconds()
	dOff := speedMPS * c.Tool.GetLookAheadOffSeconds()
	penetrationOn := 0.30 + speedMPS*0.2

	for i, s := range c.Sections {
		if i >= len(centres) {
			break
		}
		centre, left, right := centres[i], lefts[i], rights[i]
		halfWidth := left.DistanceTo(right) / 2

		if !c.MasterOn || s.Button == ButtonOff {
			c.turnOff(s)
			continue
		}
		if s.Button == ButtonOn {
			c.forceOn(s)
			bitmask |= 1 << uint(i)
			continue
		}

		onPoint := predictedCentre(centre, toolHeadingRad, yawRateRadPerSec, speedMPS, dOn, c.prevHeadingRad, c.haveHeading)
		offPoint := predictedCentre(centre, toolHeadingRad, yawRateRadPerSec, speedMPS, dOff, c.prevHeadingRad, c.haveHeading)

		currentBoundary := geometry.SegmentInsideFraction(c.Boundaries.Field, centre, toolHeadingRad, halfWidth)
		onBoundary := geometry.SegmentInsideFraction(c.Boundaries.Field, onPoint, toolHeadingRad, halfWidth)
		offBoundary := geometry.SegmentInsideFraction(c.Boundaries.Field, offPoint, toolHeadingRad, halfWidth)

		onInHeadland := headlandContainment(c.Boundaries.Headland, onPoint, penetrationOn)
		offInHeadland := headlandContainment(c.Boundaries.Headland, offPoint, 0)

		_, lookOnCovered, lookOffCovered := c.Coverage.SegmentCoverageMulti(centre, toolHeadingRad, halfWidth, dOn, dOff)
		minCoverage := c.Tool.GetMinCoverageFraction()

		s.CachedBoundaryOK = currentBoundary >= 0.95
		s.CachedCoverage = lookOnCovered

		if !s.CachedBoundaryOK {
			c.turnOff(s)
			continue
		}

		margin := c.Tool.GetCoverageMarginMeters()
		if margin > 0 {
			if toolHeadingDiffDeg <= 3 && yawRatePerUpdateDeg <= 1.1 {
				expandedOK := marginExpandedInsideBoundary(c.Boundaries.Field, centre, toolHeadingRad, halfWidth+margin)
				if !expandedOK {
					c.turnOff(s)
					continue
				}
			}
		}

		shouldOn := lookOnCovered < minCoverage && onBoundary >= 0.50 && !onInHeadland
		shouldOff := lookOffCovered >= minCoverage || offBoundary < 0.50 || offInHeadland

		if shouldOn && !shouldOff {
			s.onCounter++
			s.offCounter = 0
			if s.onCounter > sectionOnDelayCycles {
				c.turnOn(s)
			}
		} else if shouldOff {
			s.offCounter++
			s.onCounter = 0
			if s.offCounter > int(c.Tool.GetTurnOffDelaySeconds()*10) {
				c.turnOff(s)
			}
		}

		if s.IsOn {
			bitmask |= 1 << uint(i)
			if dtSeconds > 0 {
				s.onDistanceM += speedMPS * dtSeconds
			}
			if s.mapping {
				s.mappingCounter++
				if s.mappingCounter > mappingOnDelayCycles {
					if yawRatePerUpdateDeg > 4.5 {
						// drop: instantaneous yaw too high, would distort the triangle.
					} else if !s.mappingStarted {
						perp := geometry.PerpRight(vehicleHeadingRad)
						straightLeft := geometry.Vec2{E: centre.E - perp.E*halfWidth, N: centre.N - perp.N*halfWidth}
						straightRight := geometry.Vec2{E: centre.E + perp.E*halfWidth, N: centre.N + perp.N*halfWidth}
						c.Coverage.StartMapping(i, straightLeft, straightRight, 0)
						s.mappingStarted = true
					} else {
						recordLeft, recordRight := left, right
						if margin > 0 && toolHeadingDiffDeg <= 3 && yawRatePerUpdateDeg <= 1.1 {
							recordLeft, recordRight = expandEdges(left, right, margin)
						}
						c.Coverage.AddCoveragePoint(i, recordLeft, recordRight)
					}
				}
			}
		}
	}

	c.prevHeadingRad = toolHeadingRad
	c.haveHeading = true
	return bitmask
}

func (c *Controller) turnOn(s *State) {
	if !s.IsOn {
		s.IsOn = true
		s.mapping = true
		s.mappingCounter = 0
		s.mappingStarted = false
	}
}

func (c *Controller) forceOn(s *State) {
	if !s.IsOn {
		s.IsOn = true
		s.mapping = true
		s.mappingCounter = mappingOnDelayCycles // manual on begins mapping immediately
		s.mappingStarted = false
	}
}

func (c *Controller) turnOff(s *State) {
	if s.IsOn {
		c.Coverage.StopMapping(s.Index)
	}
	s.IsOn = false
	s.mapping = false
	s.mappingCounter = 0
	s.mappingStarted = false
	s.onCounter = 0
	s.offCounter = 0
}

func expandEdges(left, right geometry.Vec2, margin float64) (geometry.Vec2, geometry.Vec2) {
	dir := geometry.Vec2{E: right.E - left.E, N: right.N - left.N}
	l := dir.Length()
	if l < 1e-9 {
		return left, right
	}
	unit := dir.Scale(1 / l)
	return geometry.Vec2{E: left.E - unit.E*margin, N: left.N - unit.N*margin},
		geometry.Vec2{E: right.E + unit.E*margin, N: right.N + unit.N*margin}
}

func marginExpandedInsideBoundary(field geometry.PolygonSet, centre geometry.Vec2, heading, halfWidth float64) bool {
	return geometry.SegmentInsideFraction(field, centre, heading, halfWidth) >= 0.95
}

// Overlap reports the fraction of swept area that was re-covered,
// replacing spec.md's CalculateOverlap placeholder (95% constant).
// Swept area is each section's integrated on-distance times its
// width: the ground that would have been worked if no two passes ever
// touched. The coverage engine's deduped grid area counts each worked
// cell once no matter how many passes crossed it, so the shortfall
// between swept and deduped area is exactly the re-covered ground.
func (c *Controller) Overlap() float64 {
	widths := c.Tool.GetSectionWidthsMeters()
	swept := 0.0
	for i, s := range c.Sections {
		width := c.Tool.GetWidthMeters()
		if i < len(widths) {
			width = widths[i]
		}
		swept += s.onDistanceM * width
	}
	if swept <= 0 {
		return 0
	}
	actual := c.Coverage.DedupedCoverageArea()
	if actual >= swept {
		return 0
	}
	return (swept - actual) / swept
}
