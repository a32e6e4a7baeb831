// Package webadmin mounts the debug/admin HTTP surface (spec.md §6's
// ambient observability surface): a live coverage dashboard plus
// whatever collaborator routes are attached. Grounded on teacher's
// AttachAdminRoutes(*http.ServeMux) convention, used throughout
// internal/serialmux and internal/db.
package webadmin

import (
	"net/http"

	"tailscale.com/tsweb"

	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/pipeline"
)

// AdminRouteAttacher is implemented by any collaborator exposing its
// own debug routes (internal/receiver.GPS, internal/telemetry.DB).
type AdminRouteAttacher interface {
	AttachAdminRoutes(*http.ServeMux)
}

// Mux bundles everything needed to serve the admin surface.
type Mux struct {
	Coordinator *pipeline.Coordinator
	Coverage    *coverage.Engine
}

// Attach mounts the coverage dashboard and cycle snapshot endpoints,
// plus any collaborator-owned routes, onto mux under /debug/.
func (m *Mux) Attach(mux *http.ServeMux, collaborators ...AdminRouteAttacher) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("coverage-map", "live worked-area coverage map", m.handleCoverageMap)
	debug.HandleFunc("snapshot", "latest pipeline snapshot (JSON)", m.handleSnapshot)
	debug.HandleFunc("dashboard", "iframe dashboard embedding the coverage map", m.HandleDashboard)

	for _, c := range collaborators {
		c.AttachAdminRoutes(mux)
	}
}
