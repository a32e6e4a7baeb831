package webadmin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleCoverageMap renders the worked-area cell grid as a scatter
// plot, grounded on teacher's handleBackgroundGridPolar in
// internal/lidar/monitor/echarts_handlers.go: downsample by stride,
// build scatter data, paint with a visual-map colour ramp.
func (m *Mux) handleCoverageMap(w http.ResponseWriter, r *http.Request) {
	maxPoints := 8000
	if v := r.URL.Query().Get("max_points"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxPoints = n
		}
	}

	cells := m.Coverage.CoveredCells()
	stride := 1
	if len(cells) > maxPoints {
		stride = len(cells) / maxPoints
	}

	data := make([]opts.ScatterData, 0, maxPoints)
	for i := 0; i < len(cells); i += stride {
		data = append(data, opts.ScatterData{Value: [2]float64{cells[i].E, cells[i].N}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "groundloop coverage map",
			Theme:     "dark",
			Width:     "1024px",
			Height:    "768px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Worked area"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "East (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "North (m)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("covered", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("render coverage map: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// handleSnapshot dumps the coordinator's latest published Snapshot and
// rolling latency average as JSON.
func (m *Mux) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := m.Coordinator.LatestSnapshot()
	if snap == nil {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	out := struct {
		Snapshot       interface{} `json:"snapshot"`
		RollingLatency string      `json:"rolling_latency"`
	}{
		Snapshot:       snap,
		RollingLatency: m.Coordinator.Metrics().RollingAverage().String(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// dashboardHTML is an iframe shell embedding the coverage map,
// mirroring teacher's handleLidarDebugDashboard Sprintf-template
// pattern. %s is the (escaped) query string forwarded to the embed.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head><title>groundloop admin dashboard</title></head>
<body style="margin:0;background:#111">
  <iframe src="/debug/coverage-map%s" style="width:100%%;height:100vh;border:0"></iframe>
</body>
</html>
`

// HandleDashboard serves the iframe-based admin dashboard shell.
func (m *Mux) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	qs := ""
	if r.URL.RawQuery != "" {
		qs = "?" + html.EscapeString(r.URL.RawQuery)
	}
	fmt.Fprintf(w, dashboardHTML, qs)
}
