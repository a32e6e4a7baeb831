package webadmin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/pipeline"
)

func testMux() *Mux {
	eng := coverage.NewEngine(geometry.BoundingBox{MinE: 0, MinN: 0, MaxE: 10, MaxN: 10}, 0.5)
	eng.StartMapping(0, geometry.Vec2{E: 1, N: 1}, geometry.Vec2{E: 2, N: 1}, 0xFF00FF)
	eng.AddCoveragePoint(0, geometry.Vec2{E: 1, N: 3}, geometry.Vec2{E: 2, N: 3})
	eng.StopMapping(0)

	return &Mux{
		Coordinator: pipeline.NewCoordinator(&pipeline.Config{}),
		Coverage:    eng,
	}
}

func TestAttachRegistersDebugRoutes(t *testing.T) {
	m := testMux()
	mux := http.NewServeMux()
	m.Attach(mux)

	for _, path := range []string{"/debug/coverage-map", "/debug/snapshot", "/debug/dashboard"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code == http.StatusNotFound {
			t.Errorf("path %s not registered", path)
		}
	}
}

func TestHandleCoverageMapRendersHTML(t *testing.T) {
	m := testMux()
	req := httptest.NewRequest(http.MethodGet, "/debug/coverage-map?max_points=100", nil)
	rec := httptest.NewRecorder()
	m.handleCoverageMap(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html prefix", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected non-empty rendered body")
	}
}

func TestHandleSnapshotWithoutPublishedSnapshotReturns503(t *testing.T) {
	m := testMux()
	req := httptest.NewRequest(http.MethodGet, "/debug/snapshot", nil)
	rec := httptest.NewRecorder()
	m.handleSnapshot(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleDashboardEscapesQuery(t *testing.T) {
	m := testMux()
	req := httptest.NewRequest(http.MethodGet, "/debug/dashboard?sensor=<script>", nil)
	rec := httptest.NewRecorder()
	m.HandleDashboard(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("dashboard body contains unescaped query value")
	}
}
