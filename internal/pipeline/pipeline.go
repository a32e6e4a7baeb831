// Package pipeline implements the GPS-cycle coordinator (spec.md
// §4.10, §5): drives C3→C4→C5→(C6|C7)→C9 on each arriving GPS buffer,
// emits a transport frame, and publishes an immutable snapshot for
// observers.
package pipeline

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/fusion"
	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/guidance"
	"github.com/fieldline/groundloop/internal/kinematics"
	"github.com/fieldline/groundloop/internal/nmea"
	"github.com/fieldline/groundloop/internal/section"
	"github.com/fieldline/groundloop/internal/state"
	"github.com/fieldline/groundloop/internal/uturn"
)

// Snapshot is the immutable, pull-based view of pipeline state
// published at the end of each cycle (spec.md §9 "Replacing
// event-driven UI notifications").
type Snapshot struct {
	Vehicle        state.VehicleState
	SectionBitmask uint16
	SteerAngleRad  float64
	CycleSeq       uint64
	IsValid        bool
}

// LatencyMetrics holds per-kind cumulative counters plus a rolling
// window of total cycle latency (spec.md §4.10, §7).
type LatencyMetrics struct {
	mu sync.Mutex

	ParseFailures       uint64
	FixBelowMinimum     uint64
	NoGuidanceCycles    uint64
	TurnSynthesisFailed uint64
	TransportSendFailed uint64

	window     [10]time.Duration
	windowNext int
	windowFull bool
}

func (m *LatencyMetrics) record(total time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window[m.windowNext] = total
	m.windowNext = (m.windowNext + 1) % len(m.window)
	if m.windowNext == 0 {
		m.windowFull = true
	}
}

// RollingAverage returns the mean total cycle latency over the last
// (up to) 10 cycles.
func (m *LatencyMetrics) RollingAverage() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.windowNext
	if m.windowFull {
		n = len(m.window)
	}
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += m.window[i]
	}
	return sum / time.Duration(n)
}

// TransportSink emits the per-cycle steering+section frame to the
// hardware module collaborator (spec.md §6).
type TransportSink interface {
	SendFrame(steerCentidegrees int32, sectionBitmask uint16) error
}

// Config bundles every collaborator the Coordinator drives, mirroring
// the teacher's *Config-struct-of-collaborators wiring pattern.
type Config struct {
	Core      *config.CoreConfig
	Tool      *kinematics.Tool
	Section   *section.Controller
	Coverage  *coverage.Engine
	Transport TransportSink

	Origin func(latDeg, lonDeg float64) (easting, northing float64)

	// TurnAreas is the headland geometry automatic U-turn triggering
	// plans against; nil disables automatic turns entirely (spec.md
	// §4.7, C7).
	TurnAreas *TurnAreas

	// BroadcastCapacity bounds the push-based observer channel; the
	// oldest snapshot is dropped when full (spec.md §9).
	BroadcastCapacity int
}

// TurnAreas bundles the headland polygons and per-polygon drive-through
// flags used both to detect an approaching headland and to synthesise
// the turn itself (spec.md §4.7).
type TurnAreas struct {
	Polygons      []geometry.Polygon
	DriveThrough  []bool
	HeadlandWidth float64
}

func uturnStyle(s string) uturn.Style {
	switch s {
	case config.StyleWide:
		return uturn.StyleWide
	case config.StyleKStyle:
		return uturn.StyleKStyle
	default:
		return uturn.StyleOmega
	}
}

// Coordinator is the single owner of VehicleState, the coverage
// engine, and the section controller (spec.md §5): it must not
// suspend, and only I/O tasks (outside this type) suspend.
type Coordinator struct {
	cfg *Config

	vehicle state.VehicleState
	track   *guidance.Track
	turn    *uturn.Follower
	engaged bool
	turning bool

	// nextTurnDir alternates left/right across successive automatic
	// turns, matching the back-and-forth headland pattern a field is
	// worked in.
	nextTurnDir uturn.Direction

	stanleyState guidance.StanleyState
	priorFix     fusion.PriorFix
	lastCycle    time.Time

	snapshot atomic.Pointer[Snapshot]
	metrics  LatencyMetrics
	cycleSeq uint64

	broadcast chan Snapshot
	stopped   atomic.Bool
}

// NewCoordinator builds a Coordinator over the given collaborators.
func NewCoordinator(cfg *Config) *Coordinator {
	cap := cfg.BroadcastCapacity
	if cap <= 0 {
		cap = 16
	}
	return &Coordinator{cfg: cfg, broadcast: make(chan Snapshot, cap)}
}

// Engage sets the current guidance track and clears turn mode.
func (c *Coordinator) Engage(track guidance.Track) {
	track.Reset()
	c.track = &track
	c.engaged = true
	c.turning = false
}

// Disengage clears the current track; steering holds at 0.
func (c *Coordinator) Disengage() {
	c.engaged = false
	c.track = nil
	c.turning = false
	c.turn = nil
}

// BeginTurn switches the coordinator into U-turn follow mode.
func (c *Coordinator) BeginTurn(f *uturn.Follower) {
	c.turn = f
	c.turning = true
}

// Stop marks the coordinator stopped; the in-progress cycle still
// completes (spec.md §5 cancellation policy).
func (c *Coordinator) Stop() { c.stopped.Store(true) }

// Broadcast returns the push-based observer channel (spec.md §9).
func (c *Coordinator) Broadcast() <-chan Snapshot { return c.broadcast }

// LatestSnapshot returns the most recently published snapshot for
// pull-based observers.
func (c *Coordinator) LatestSnapshot() *Snapshot { return c.snapshot.Load() }

// Metrics returns the coordinator's latency/error metrics.
func (c *Coordinator) Metrics() *LatencyMetrics { return &c.metrics }

// ProcessGpsBuffer is the single entry point driving one GPS cycle
// (spec.md §4.10). buf is an owned byte buffer from the receiver
// collaborator.
func (c *Coordinator) ProcessGpsBuffer(buf []byte) {
	cycleStart := time.Now()
	c.vehicle.Reset()
	c.vehicle.ParseStartNanos = cycleStart.UnixNano()

	if err := nmea.Parse(buf, &c.vehicle); err != nil {
		c.vehicle.ParseEndNanos = time.Now().UnixNano()
		atomic.AddUint64(&c.metrics.ParseFailures, 1)
		opsf("dropped frame: %v", err)
		c.publish(cycleStart)
		return
	}
	c.vehicle.ParseEndNanos = time.Now().UnixNano()

	c.runCycle(cycleStart)
}

// SimulatedPosition is a synthetic fix for ProcessSimulatedPosition
// (spec.md §6), bypassing NMEA parsing for simulation and playback
// tooling that already has a position/heading/speed in hand.
type SimulatedPosition struct {
	LatDeg, LonDeg   float64
	SpeedMPS         float64
	HeadingDeg       float64 // 0..360, clockwise from north
	YawRateDegPerSec float64
	FixQuality       int
	HDOP             float64
	DiffAgeSeconds   float64
	IMUValid         bool
}

// ProcessSimulatedPosition drives one cycle from a synthetic fix
// instead of a parsed NMEA buffer (spec.md §6's `ProcessSimulatedPosition`
// CLI surface), sharing every stage after fix acquisition with
// ProcessGpsBuffer.
func (c *Coordinator) ProcessSimulatedPosition(pos SimulatedPosition) {
	cycleStart := time.Now()
	c.vehicle.Reset()
	c.vehicle.ParseStartNanos = cycleStart.UnixNano()

	c.vehicle.Position.LatDeg = pos.LatDeg
	c.vehicle.Position.LonDeg = pos.LonDeg
	c.vehicle.Position.SpeedMPS = pos.SpeedMPS
	c.vehicle.Position.HeadingDeg = pos.HeadingDeg
	c.vehicle.YawRateDegPerSec = pos.YawRateDegPerSec
	c.vehicle.FixQuality = pos.FixQuality
	c.vehicle.HDOP = pos.HDOP
	c.vehicle.DiffAgeSeconds = pos.DiffAgeSeconds
	c.vehicle.IMUValid = pos.IMUValid

	c.vehicle.ParseEndNanos = time.Now().UnixNano()

	c.runCycle(cycleStart)
}

// runCycle drives C4 through C9 and transport emission over whatever
// fix ProcessGpsBuffer or ProcessSimulatedPosition populated onto
// c.vehicle.
func (c *Coordinator) runCycle(cycleStart time.Time) {
	conn := &c.cfg.Core.Connections
	gated := fusion.FixQualityGate(c.vehicle.FixQuality, c.vehicle.HDOP, c.vehicle.DiffAgeSeconds, conn)
	if !gated {
		c.vehicle.ConsecutiveBadFixes++
		c.vehicle.IsValid = false
		if c.vehicle.ConsecutiveBadFixes%10 == 1 {
			opsf("fix below minimum thresholds (quality=%d hdop=%.2f diffAge=%.1f), ConsecutiveBadFixes=%d",
				c.vehicle.FixQuality, c.vehicle.HDOP, c.vehicle.DiffAgeSeconds, c.vehicle.ConsecutiveBadFixes)
		}
		c.publish(cycleStart)
		return
	}
	c.vehicle.ConsecutiveBadFixes = 0
	c.vehicle.IsValid = true

	easting, northing := c.cfg.Origin(c.vehicle.Position.LatDeg, c.vehicle.Position.LonDeg)
	c.vehicle.Position.Easting = easting
	c.vehicle.Position.Northing = northing

	headingDeg := fusion.ResolveHeading(fusion.Inputs{
		RawHeadingDeg: c.vehicle.Position.HeadingDeg,
		IMUHeadingDeg: c.vehicle.Position.HeadingDeg, // IMU yaw not separately modelled on VehicleState
		IMUValid:      c.vehicle.IMUValid,
		SpeedMPS:      c.vehicle.Position.SpeedMPS,
		Easting:       easting,
		Northing:      northing,
		DualGPS:       conn.GetDualGPS(),
		Prior:         c.priorFix,
	}, conn)
	c.vehicle.Position.HeadingDeg = headingDeg
	c.vehicle.HeadingRad = geometry.DegToRad(headingDeg)
	c.priorFix = fusion.PriorFix{Easting: easting, Northing: northing, Valid: true}

	pivotE, pivotN := fusion.AntennaToPivot(easting, northing, c.vehicle.HeadingRad,
		c.cfg.Core.Vehicle.GetAntennaForeAftMeters(), c.cfg.Core.Vehicle.GetAntennaLateralMeters())

	c.cfg.Tool.Update(pivotE, pivotN, c.vehicle.HeadingRad)

	if c.engaged && !c.turning && c.track != nil {
		c.maybeBeginTurn(geometry.Vec2{E: pivotE, N: pivotN})
	}

	var steerRad float64
	if c.turning && c.turn != nil {
		res, done := c.turn.Step(geometry.Vec2{E: pivotE, N: pivotN}, c.vehicle.HeadingRad, c.vehicle.Position.SpeedMPS,
			&c.cfg.Core.Vehicle, &c.cfg.Core.Guidance)
		steerRad = res.SteerAngleRad
		c.vehicle.CrossTrackM = res.CrossTrackM
		if done {
			c.turning = false
			c.turn = nil
		}
	} else if c.engaged && c.track != nil {
		var res guidance.Result
		switch c.cfg.Core.Guidance.GetAlgorithm() {
		case config.AlgorithmStanley:
			res = guidance.Stanley(c.track, geometry.Vec2{E: pivotE, N: pivotN}, c.vehicle.HeadingRad,
				c.vehicle.Position.SpeedMPS, &c.cfg.Core.Vehicle, &c.cfg.Core.Guidance, &c.stanleyState)
		default:
			res = guidance.PurePursuit(c.track, geometry.Vec2{E: pivotE, N: pivotN}, c.vehicle.HeadingRad,
				c.vehicle.Position.SpeedMPS, c.cfg.Core.Vehicle.GetWheelbaseMeters(), &c.cfg.Core.Vehicle, &c.cfg.Core.Guidance, false)
		}
		if res.NoGuidance {
			c.vehicle.GuidanceMisses++
			atomic.AddUint64(&c.metrics.NoGuidanceCycles, 1)
		} else {
			steerRad = res.SteerAngleRad
			c.vehicle.CrossTrackM = res.CrossTrackM
		}
	}
	c.vehicle.SteerAngleRad = steerRad
	c.vehicle.GuidanceEndNanos = time.Now().UnixNano()

	centres, lefts, rights := c.cfg.Tool.SectionEdges()
	yawRateRad := geometry.DegToRad(c.vehicle.YawRateDegPerSec)
	dtSeconds := 0.1 // nominal 10Hz cycle; first cycle has no prior timestamp
	if !c.lastCycle.IsZero() {
		dtSeconds = cycleStart.Sub(c.lastCycle).Seconds()
	}
	c.lastCycle = cycleStart
	bitmask := c.cfg.Section.Update(centres, lefts, rights, c.cfg.Tool.Heading(), c.vehicle.HeadingRad, yawRateRad, c.vehicle.Position.SpeedMPS, dtSeconds)
	c.vehicle.SectionBitmask = bitmask
	c.cfg.Coverage.FlushUpdate()

	if c.cfg.Transport != nil {
		// steerRad is signed (negative = left); RadToDeg wraps to [0,360) and
		// would destroy that sign, so convert directly instead.
		steerCentidegrees := int32(steerRad * 180 / math.Pi * 100)
		if err := c.cfg.Transport.SendFrame(steerCentidegrees, bitmask); err != nil {
			atomic.AddUint64(&c.metrics.TransportSendFailed, 1)
			opsf("transport send failed: %v", err)
		}
	}

	c.publish(cycleStart)
}

// maybeBeginTurn detects an approaching headland and, once within one
// turn leg's length of it, synthesises and enters the U-turn (spec.md
// §4.7, C7). A no-op when TurnAreas isn't configured, the track hasn't
// reached a turn boundary, or synthesis fails (logged and retried next
// cycle, since the vehicle is still converging on the boundary).
func (c *Coordinator) maybeBeginTurn(pivot geometry.Vec2) {
	areas := c.cfg.TurnAreas
	if areas == nil || len(areas.Polygons) == 0 {
		return
	}

	req := uturn.Request{
		EntryPose:         geometry.Vec3{E: pivot.E, N: pivot.N, Heading: c.vehicle.HeadingRad},
		TurnRadiusMeters:  c.cfg.Core.UTurn.GetRadiusMeters(),
		ExtensionLength:   c.cfg.Core.UTurn.GetExtensionLengthMeters(),
		RowSkipCount:      c.cfg.Core.UTurn.GetSkipWidthCount(),
		ToolWidthMeters:   c.cfg.Core.Tool.GetWidthMeters() - c.cfg.Core.Tool.GetOverlapMeters(),
		ToolOffsetMeters:  c.cfg.Core.Tool.GetOffsetMeters(),
		Direction:         c.nextTurnDir,
		Style:             uturnStyle(c.cfg.Core.UTurn.GetStyle()),
		TurnAreaPolygons:  areas.Polygons,
		DriveThroughFlags: areas.DriveThrough,
		HeadlandWidth:     areas.HeadlandWidth,
	}

	dist, ok := uturn.DistanceToEntry(c.track, pivot, areas.Polygons, areas.DriveThrough)
	if !ok {
		return
	}
	c.vehicle.DistanceToTurnM = dist
	if dist > uturn.LegLength(req) {
		return
	}

	path, err := uturn.Plan(c.track, req)
	if err != nil {
		atomic.AddUint64(&c.metrics.TurnSynthesisFailed, 1)
		opsf("turn synthesis failed: %v", err)
		return
	}

	useStanley := c.cfg.Core.Guidance.GetAlgorithm() == config.AlgorithmStanley
	c.BeginTurn(uturn.NewFollower(path, useStanley, false))
	if c.nextTurnDir == uturn.DirectionLeft {
		c.nextTurnDir = uturn.DirectionRight
	} else {
		c.nextTurnDir = uturn.DirectionLeft
	}
}

func (c *Coordinator) publish(cycleStart time.Time) {
	total := time.Since(cycleStart)
	c.metrics.record(total)
	c.cycleSeq++

	snap := Snapshot{
		Vehicle:        c.vehicle,
		SectionBitmask: c.vehicle.SectionBitmask,
		SteerAngleRad:  c.vehicle.SteerAngleRad,
		CycleSeq:       c.cycleSeq,
		IsValid:        c.vehicle.IsValid,
	}
	c.snapshot.Store(&snap)

	select {
	case c.broadcast <- snap:
	default:
		select {
		case <-c.broadcast:
		default:
		}
		select {
		case c.broadcast <- snap:
		default:
		}
	}

	tracef("cycle=%d total=%s valid=%v steer=%.4f bitmask=%016b", c.cycleSeq, total, snap.IsValid, snap.SteerAngleRad, snap.SectionBitmask)
}
