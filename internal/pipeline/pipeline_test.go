package pipeline

import (
	"fmt"
	"testing"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/guidance"
	"github.com/fieldline/groundloop/internal/kinematics"
	"github.com/fieldline/groundloop/internal/section"
)

func buildSentence(body string) string {
	cs := byte(0)
	for _, c := range []byte(body) {
		cs ^= c
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func testConfig() *Config {
	cfg := config.Empty()
	minQ := 4
	cfg.Connections.MinFixQuality = &minQ

	tool := &kinematics.Tool{Mode: kinematics.ModeRigid, WidthMeters: 6, SectionWidthsMeters: []float64{6}}

	bounds := geometry.BoundingBox{MinE: -200, MinN: -200, MaxE: 200, MaxN: 200}
	cov := coverage.NewEngine(bounds, 0.5)
	square := geometry.Polygon{Points: []geometry.Vec2{
		{E: -100, N: -100}, {E: 100, N: -100}, {E: 100, N: 100}, {E: -100, N: 100},
	}}
	sc := section.NewController(1, section.Boundaries{Field: geometry.PolygonSet{Outer: square}}, cov, &cfg.Tool)
	sc.MasterOn = true

	return &Config{
		Core:     cfg,
		Tool:     tool,
		Section:  sc,
		Coverage: cov,
		Origin: func(lat, lon float64) (float64, float64) {
			return (lon - 11.5) * 100000, (lat - 48.1) * 100000
		},
		BroadcastCapacity: 4,
	}
}

// spec.md §8 scenario 5: fix-quality gate.
func TestFixQualityGateScenario(t *testing.T) {
	coord := NewCoordinator(testConfig())
	body := "PANDA,123519.00,4807.038,N,01131.000,E,1,08,0.9,10.0,1.5,5.0,90.0,1.1,0.5,0.2"
	line := buildSentence(body)

	coord.ProcessGpsBuffer([]byte(line))

	snap := coord.LatestSnapshot()
	if snap == nil {
		t.Fatal("expected a published snapshot")
	}
	if snap.IsValid {
		t.Error("expected IsValid=false for fix_quality=1 below minFixQuality=4")
	}
	if snap.Vehicle.ConsecutiveBadFixes != 1 {
		t.Errorf("ConsecutiveBadFixes = %d, want 1", snap.Vehicle.ConsecutiveBadFixes)
	}
}

func TestValidFixPublishesSnapshotAndLatency(t *testing.T) {
	coord := NewCoordinator(testConfig())
	body := "PANDA,123519.00,4807.038,N,01131.000,E,4,08,0.9,10.0,1.5,5.0,0.0,1.1,0.5,0.2"
	line := buildSentence(body)

	coord.ProcessGpsBuffer([]byte(line))

	snap := coord.LatestSnapshot()
	if snap == nil {
		t.Fatal("expected a published snapshot")
	}
	if !snap.IsValid {
		t.Error("expected IsValid=true for a good fix")
	}
	if coord.Metrics().RollingAverage() < 0 {
		t.Error("expected non-negative rolling average latency")
	}
}

func TestBadChecksumIncrementsParseFailures(t *testing.T) {
	coord := NewCoordinator(testConfig())
	bad := "$PANDA,bad*00"
	coord.ProcessGpsBuffer([]byte(bad))
	if coord.Metrics().ParseFailures != 1 {
		t.Errorf("ParseFailures = %d, want 1", coord.Metrics().ParseFailures)
	}
}

func TestProcessSimulatedPositionPublishesValidSnapshot(t *testing.T) {
	coord := NewCoordinator(testConfig())
	coord.ProcessSimulatedPosition(SimulatedPosition{
		LatDeg:     48.1,
		LonDeg:     11.5,
		SpeedMPS:   2,
		HeadingDeg: 0,
		FixQuality: 4,
		HDOP:       0.9,
	})

	snap := coord.LatestSnapshot()
	if snap == nil {
		t.Fatal("expected a published snapshot")
	}
	if !snap.IsValid {
		t.Error("expected IsValid=true for a simulated fix passing the quality gate")
	}
}

// spec.md §4.7, §8 scenario 4: approaching a headland on an engaged
// track automatically plans and enters a U-turn.
func TestEngagedVehicleAutoEntersTurnModeNearHeadland(t *testing.T) {
	cfg := testConfig()
	radius := 8.0
	cfg.Core.UTurn.RadiusMeters = &radius
	turnArea := geometry.Polygon{Points: []geometry.Vec2{
		{E: -50, N: -50}, {E: 50, N: -50}, {E: 50, N: 50}, {E: -50, N: 50},
	}}
	cfg.TurnAreas = &TurnAreas{
		Polygons:     []geometry.Polygon{turnArea},
		DriveThrough: []bool{false},
	}

	coord := NewCoordinator(cfg)
	track := guidance.NewAbLine(geometry.Vec2{E: 0, N: 0}, geometry.Vec2{E: 0, N: 100})
	coord.Engage(track)

	// pivot at (0,40): 10m south of the N=50 headland boundary, well
	// within the leg length a radius-8 Omega turn would use (16m).
	coord.ProcessSimulatedPosition(SimulatedPosition{
		LatDeg:     48.1 + 40.0/100000,
		LonDeg:     11.5,
		SpeedMPS:   2,
		HeadingDeg: 0,
		FixQuality: 4,
		HDOP:       0.9,
	})

	snap := coord.LatestSnapshot()
	if snap == nil {
		t.Fatal("expected a published snapshot")
	}
	if snap.Vehicle.DistanceToTurnM <= 0 {
		t.Errorf("DistanceToTurnM = %v, want > 0", snap.Vehicle.DistanceToTurnM)
	}
	if !coord.turning {
		t.Error("expected coordinator to auto-enter turn mode near the headland")
	}
	if coord.turn == nil {
		t.Error("expected a turn follower to be installed")
	}
}
