package fieldstore

import (
	"errors"
	"testing"
	"time"

	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/geometry"
)

func samplePolygon(driveThru bool) BoundaryPolygon {
	return BoundaryPolygon{
		IsDriveThru: driveThru,
		Points: []geometry.Vec3{
			{E: 0.123, N: 0.456, Heading: 1.23456},
			{E: 100.001, N: -50.999, Heading: 0.00001},
			{E: 10, N: 10, Heading: 3.14159},
		},
	}
}

// spec.md §8: serialise(deserialise(x)) == x for Boundary.txt.
func TestBoundaryRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := []BoundaryPolygon{samplePolygon(true), samplePolygon(false)}

	if err := s.WriteBoundary(want); err != nil {
		t.Fatalf("WriteBoundary: %v", err)
	}
	got, err := s.ReadBoundary()
	if err != nil {
		t.Fatalf("ReadBoundary: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d polygons, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].IsDriveThru != want[i].IsDriveThru {
			t.Errorf("polygon %d: IsDriveThru = %v, want %v", i, got[i].IsDriveThru, want[i].IsDriveThru)
		}
		for j := range want[i].Points {
			wp, gp := want[i].Points[j], got[i].Points[j]
			if wp.E != gp.E || wp.N != gp.N || wp.Heading != gp.Heading {
				t.Errorf("polygon %d point %d = %+v, want %+v", i, j, gp, wp)
			}
		}
	}
}

func TestHeadlandRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := samplePolygon(false)

	if err := s.WriteHeadland(want); err != nil {
		t.Fatalf("WriteHeadland: %v", err)
	}
	got, err := s.ReadHeadland()
	if err != nil {
		t.Fatalf("ReadHeadland: %v", err)
	}
	if len(got.Points) != len(want.Points) {
		t.Fatalf("got %d points, want %d", len(got.Points), len(want.Points))
	}
}

func TestBackPicRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := BackPic{Enabled: true, MaxE: 120.5, MinE: -10.25, MaxN: 300.125, MinN: -5}

	if err := s.WriteBackPic(want); err != nil {
		t.Fatalf("WriteBackPic: %v", err)
	}
	got, err := s.ReadBackPic()
	if err != nil {
		t.Fatalf("ReadBackPic: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTrackLinesRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := []TrackLine{
		{
			Name:    "AB-1",
			Heading: 0.78539,
			A:       geometry.Vec2{E: 0, N: 0},
			B:       geometry.Vec2{E: 10, N: 10},
			Nudge:   0.05,
			Mode:    1,
			Visible: true,
		},
		{
			Name:    "Curve-1",
			Heading: 0,
			Mode:    2,
			Visible: false,
			CurvePoint: []geometry.Vec3{
				{E: 0, N: 0, Heading: 0},
				{E: 1, N: 2, Heading: 0.1},
			},
		},
	}

	if err := s.WriteTrackLines(want); err != nil {
		t.Fatalf("WriteTrackLines: %v", err)
	}
	got, err := s.ReadTrackLines()
	if err != nil {
		t.Fatalf("ReadTrackLines: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tracks, want %d", len(got), len(want))
	}
	if got[0].Name != want[0].Name || got[0].B != want[0].B {
		t.Errorf("track 0 = %+v, want %+v", got[0], want[0])
	}
	if len(got[1].CurvePoint) != len(want[1].CurvePoint) {
		t.Errorf("track 1 curve points = %d, want %d", len(got[1].CurvePoint), len(want[1].CurvePoint))
	}
}

func TestHeadlinesRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := []HeadlinePath{
		{
			Name:         "Headland-1",
			MoveDistance: 6.0,
			Mode:         0,
			APointIndex:  3,
			Points: []geometry.Vec2{
				{E: 0, N: 0}, {E: 5, N: 0}, {E: 5, N: 5},
			},
		},
	}

	if err := s.WriteHeadlines(want); err != nil {
		t.Fatalf("WriteHeadlines: %v", err)
	}
	got, err := s.ReadHeadlines()
	if err != nil {
		t.Fatalf("ReadHeadlines: %v", err)
	}
	if len(got) != 1 || len(got[0].Points) != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestFieldInfoRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	want := FieldInfo{
		Timestamp:      time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC),
		Name:           "North 40",
		OffsetX:        1.5,
		OffsetY:        -2.25,
		Convergence:    0.001,
		StartLatitude:  48.12345678,
		StartLongitude: 11.23456789,
	}
	if err := s.WriteFieldInfo(want); err != nil {
		t.Fatalf("WriteFieldInfo: %v", err)
	}
	got, err := s.ReadFieldInfo()
	if err != nil {
		t.Fatalf("ReadFieldInfo: %v", err)
	}
	if got.Name != want.Name || !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCoverageRoundTripThroughStore(t *testing.T) {
	s := New(t.TempDir())
	bounds := geometry.BoundingBox{MinE: 0, MinN: 0, MaxE: 10, MaxN: 10}
	eng := coverage.NewEngine(bounds, 1.0)
	eng.StartMapping(0, geometry.Vec2{E: 1, N: 1}, geometry.Vec2{E: 2, N: 1}, 0xFF00FF)
	eng.AddCoveragePoint(0, geometry.Vec2{E: 1, N: 3}, geometry.Vec2{E: 2, N: 3})
	eng.StopMapping(0)

	if err := s.WriteCoverage(eng); err != nil {
		t.Fatalf("WriteCoverage: %v", err)
	}

	loaded := coverage.NewEngine(bounds, 1.0)
	if err := s.ReadCoverage(loaded); err != nil {
		t.Fatalf("ReadCoverage: %v", err)
	}
	if !loaded.IsPointCovered(1.5, 2) {
		t.Error("expected loaded engine to report the mapped cell as covered")
	}
}

func TestReadMissingFileReturnsPersistenceError(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.ReadFieldInfo()
	if err == nil {
		t.Fatal("expected an error for a missing Field.txt")
	}
	var perr *ErrPersistenceIO
	if !errors.As(err, &perr) {
		t.Errorf("expected *ErrPersistenceIO, got %T: %v", err, err)
	}
}
