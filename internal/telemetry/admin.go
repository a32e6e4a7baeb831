package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts a live-SQL debug console and a JSON error
// counter dump, mirroring the teacher's internal/db.DB.AttachAdminRoutes.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("telemetry: failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://telemetry.db", db.DB, &tailsql.DBOptions{
		Label: "Groundloop telemetry",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("error-counters", "Per-kind cycle error counts (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counters, err := db.ErrorCounters()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to load error counters: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counters)
	}))
}
