// Command groundloopd is the field-guidance service: it wires the
// serial GPS receiver, the config/fusion/kinematics/guidance/uturn
// pipeline, the UDP steering/section transport, the optional NTRIP
// correction stream, the SQLite telemetry store, and the admin debug
// HTTP surface into one running process, grounded on teacher's root
// main.go (flag parsing, signal.NotifyContext, sync.WaitGroup
// collaborator goroutines, graceful HTTP shutdown).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fieldline/groundloop/internal/config"
	"github.com/fieldline/groundloop/internal/coverage"
	"github.com/fieldline/groundloop/internal/fieldstore"
	"github.com/fieldline/groundloop/internal/geometry"
	"github.com/fieldline/groundloop/internal/geoproj"
	"github.com/fieldline/groundloop/internal/kinematics"
	"github.com/fieldline/groundloop/internal/ntrip"
	"github.com/fieldline/groundloop/internal/pipeline"
	"github.com/fieldline/groundloop/internal/receiver"
	"github.com/fieldline/groundloop/internal/section"
	"github.com/fieldline/groundloop/internal/telemetry"
	"github.com/fieldline/groundloop/internal/transport"
	"github.com/fieldline/groundloop/internal/webadmin"
)

var (
	devMode       = flag.Bool("dev", false, "run against a recorded NMEA fixture instead of a physical serial port")
	fixturePath   = flag.String("fixture", "fixtures/nmea.log", "NMEA fixture file used in -dev mode")
	configPath    = flag.String("config", "", "path to core.defaults.json (omit to run with built-in defaults)")
	fieldDir      = flag.String("field-dir", ".", "field directory (Boundary.txt, Headland.Txt, TrackLines.txt, Coverage.bin, ...)")
	serialDevice  = flag.String("serial-device", "/dev/ttyGPS0", "serial device for the GPS receiver")
	baudRate      = flag.Int("baud", 115200, "serial baud rate")
	listen        = flag.String("listen", ":8080", "admin HTTP listen address")
	telemetryPath = flag.String("telemetry-db", "telemetry.db", "SQLite diagnostics database path")
	cellSizeM     = flag.Float64("cell-size", 0.25, "coverage grid cell size in meters")
	sectionCount  = flag.Int("sections", 6, "number of implement sections")

	broadcastAddr = flag.String("broadcast-addr", "255.255.255.255", "UDP subnet broadcast address for steering/section frames")
	broadcastPort = flag.Int("broadcast-port", transport.DefaultBroadcastPort, "UDP port for steering/section frames")
	statusPort    = flag.Int("status-port", transport.DefaultReceivePort, "UDP port to receive implement status frames on")

	ntripHost = flag.String("ntrip-host", "", "NTRIP caster host (blank disables the NTRIP correction stream)")
	ntripPort = flag.Int("ntrip-port", 2101, "NTRIP caster port")
	ntripMnt  = flag.String("ntrip-mount", "", "NTRIP mount point")
	ntripUser = flag.String("ntrip-user", "", "NTRIP basic-auth user")
	ntripPass = flag.String("ntrip-pass", "", "NTRIP basic-auth password")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalf("groundloopd: %v", err)
	}
}

func run() error {
	pipeline.SetLogWriters(os.Stderr, os.Stderr, nil)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store := fieldstore.New(*fieldDir)

	origin, err := loadOrigin(store)
	if err != nil {
		return fmt.Errorf("establish field origin: %w", err)
	}

	boundaries, covEngine, turnAreas, err := loadFieldGeometry(store)
	if err != nil {
		return fmt.Errorf("load field geometry: %w", err)
	}

	tool := buildTool(&cfg.Tool)
	sectionCtl := section.NewController(*sectionCount, boundaries, covEngine, &cfg.Tool)

	var gps *receiver.GPS
	if *devMode {
		data, err := os.ReadFile(*fixturePath)
		if err != nil {
			return fmt.Errorf("read fixture: %w", err)
		}
		gps = receiver.NewGPS(newFixturePort(data))
	} else {
		gps, err = receiver.Open(*serialDevice, *baudRate)
		if err != nil {
			return fmt.Errorf("open serial receiver: %w", err)
		}
	}
	defer gps.Close()

	broadcaster, err := transport.NewBroadcaster(*broadcastAddr, *broadcastPort)
	if err != nil {
		return fmt.Errorf("create UDP broadcaster: %w", err)
	}
	defer broadcaster.Close()

	coordCfg := &pipeline.Config{
		Core:      cfg,
		Tool:      tool,
		Section:   sectionCtl,
		Coverage:  covEngine,
		Transport: broadcaster,
		Origin:    origin.Local,
		TurnAreas: turnAreas,
	}
	coordinator := pipeline.NewCoordinator(coordCfg)

	if err := engageFirstTrackLine(store, coordinator); err != nil {
		log.Printf("no track line engaged at startup: %v", err)
	}

	db, err := telemetry.Open(*telemetryPath)
	if err != nil {
		return fmt.Errorf("open telemetry store: %w", err)
	}
	defer db.Close()

	statusListener, err := transport.Listen(*statusPort, telemetryStatusSink{db: db})
	if err != nil {
		return fmt.Errorf("open status listener: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		broadcaster.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gps.Monitor(ctx, coordinator); err != nil && err != context.Canceled {
			log.Printf("receiver monitor terminated: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := statusListener.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("status listener terminated: %v", err)
		}
	}()

	if *ntripHost != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNTRIP(ctx, gps, db)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		recordLatencySamples(ctx, db, coordinator)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runHTTPServer(ctx, coordinator, covEngine, gps, db)
	}()

	wg.Wait()

	if err := store.WriteCoverage(covEngine); err != nil {
		log.Printf("failed to persist coverage on shutdown: %v", err)
	}

	log.Println("groundloopd: graceful shutdown complete")
	return nil
}

func loadConfig() (*config.CoreConfig, error) {
	if *configPath == "" {
		return config.Empty(), nil
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadOrigin(store *fieldstore.Store) (geoproj.Origin, error) {
	info, err := store.ReadFieldInfo()
	if err != nil {
		return geoproj.Origin{}, err
	}
	return geoproj.NewOrigin(info.StartLatitude, info.StartLongitude), nil
}

func loadFieldGeometry(store *fieldstore.Store) (section.Boundaries, *coverage.Engine, *pipeline.TurnAreas, error) {
	polys, err := store.ReadBoundary()
	if err != nil {
		return section.Boundaries{}, nil, nil, fmt.Errorf("read boundary: %w", err)
	}
	if len(polys) == 0 {
		return section.Boundaries{}, nil, nil, fmt.Errorf("field has no boundary polygons")
	}

	bounds := polys[0].ToPolygon().Bounds()
	outer := geometry.PolygonSet{Outer: polys[0].ToPolygon()}
	turnPolys := make([]geometry.Polygon, 0, len(polys))
	driveThru := make([]bool, 0, len(polys))
	turnPolys = append(turnPolys, polys[0].ToPolygon())
	driveThru = append(driveThru, polys[0].IsDriveThru)
	for _, p := range polys[1:] {
		b := p.ToPolygon().Bounds()
		bounds = unionBB(bounds, b)
		turnPolys = append(turnPolys, p.ToPolygon())
		driveThru = append(driveThru, p.IsDriveThru)
	}

	headlandPoly, err := store.ReadHeadland()
	var headland geometry.PolygonSet
	headlandWidth := 0.0
	if err == nil {
		headland = geometry.PolygonSet{Outer: headlandPoly.ToPolygon()}
		headlandBounds := headland.Outer.Bounds()
		// approximate headland strip width as half the shrinkage between
		// the field boundary and the inner headland polygon.
		headlandWidth = ((bounds.MaxE - bounds.MinE) - (headlandBounds.MaxE - headlandBounds.MinE)) / 2
		if headlandWidth < 0 {
			headlandWidth = 0
		}
	} else {
		log.Printf("no headland loaded: %v", err)
	}

	covEngine := coverage.NewEngine(bounds, *cellSizeM)
	if err := store.ReadCoverage(covEngine); err != nil {
		log.Printf("starting with empty coverage map: %v", err)
	}

	turnAreas := &pipeline.TurnAreas{
		Polygons:      turnPolys,
		DriveThrough:  driveThru,
		HeadlandWidth: headlandWidth,
	}

	return section.Boundaries{Field: outer, Headland: headland}, covEngine, turnAreas, nil
}

func unionBB(a, b geometry.BoundingBox) geometry.BoundingBox {
	if b.MinE < a.MinE {
		a.MinE = b.MinE
	}
	if b.MinN < a.MinN {
		a.MinN = b.MinN
	}
	if b.MaxE > a.MaxE {
		a.MaxE = b.MaxE
	}
	if b.MaxN > a.MaxN {
		a.MaxN = b.MaxN
	}
	return a
}

func buildTool(cfg *config.ToolConfig) *kinematics.Tool {
	return &kinematics.Tool{
		Mode:                kinematics.ModeRigid,
		HitchLengthMeters:   cfg.GetHitchLengthMeters(),
		TrailingHitchMeters: cfg.GetTrailingHitchMeters(),
		ToolOffsetMeters:    cfg.GetOffsetMeters(),
		WidthMeters:         cfg.GetWidthMeters(),
		SectionWidthsMeters: cfg.GetSectionWidthsMeters(),
	}
}

func engageFirstTrackLine(store *fieldstore.Store, coordinator *pipeline.Coordinator) error {
	tracks, err := store.ReadTrackLines()
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if t.Visible {
			coordinator.Engage(t.ToTrack())
			return nil
		}
	}
	return fmt.Errorf("no visible track line found")
}

// serialToGPS adapts receiver.GPS's WriteCommand to ntrip.Sink, so
// corrections received from the caster are forwarded to the physical
// GPS receiver.
type serialToGPS struct{ gps *receiver.GPS }

func (s serialToGPS) ForwardRTCM(chunk []byte) error { return s.gps.WriteCommand(chunk) }

func runNTRIP(ctx context.Context, gps *receiver.GPS, db *telemetry.DB) {
	cfg := ntrip.Config{
		Host:     *ntripHost,
		Port:     *ntripPort,
		Mount:    *ntripMnt,
		User:     *ntripUser,
		Password: *ntripPass,
	}
	client, err := ntrip.Connect(cfg)
	if err != nil {
		log.Printf("ntrip: connect failed: %v", err)
		db.IncrementErrorCounter("NTRIPConnectFailed")
		return
	}
	defer client.Close()

	forwarder := ntrip.NewForwarder(serialToGPS{gps: gps})
	ticker := ntrip.NewFlushTicker(50 * time.Millisecond)
	defer ticker.Stop()

	if err := client.Stream(ctx, forwarder, ticker); err != nil && err != context.Canceled {
		log.Printf("ntrip: stream terminated: %v", err)
		db.IncrementErrorCounter("NTRIPStreamFailed")
	}
}

// telemetryStatusSink receives implement status frames echoed back
// over UDP and logs each decoded frame; it writes nothing to the
// diagnostics store (decode failures are counted by the Listener).
type telemetryStatusSink struct{ db *telemetry.DB }

func (s telemetryStatusSink) ReceiveStatusFrame(f transport.Frame) {
	log.Printf("status frame: section_bitmask=%04x steer_centideg=%d", f.SectionBitmask, f.SteerCentidegrees)
}

func recordLatencySamples(ctx context.Context, db *telemetry.DB, coordinator *pipeline.Coordinator) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			avg := coordinator.Metrics().RollingAverage()
			if err := db.RecordLatencySample(time.Now(), avg, 0, 0); err != nil {
				log.Printf("telemetry: record latency sample failed: %v", err)
			}
		}
	}
}

func runHTTPServer(ctx context.Context, coordinator *pipeline.Coordinator, covEngine *coverage.Engine, gps *receiver.GPS, db *telemetry.DB) {
	mux := http.NewServeMux()

	admin := &webadmin.Mux{Coordinator: coordinator, Coverage: covEngine}
	admin.Attach(mux, gps, db)

	server := &http.Server{Addr: *listen, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down admin HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin HTTP server shutdown error: %v", err)
	}
}

// fixturePort replays a recorded NMEA log for -dev mode, mirroring
// teacher's devMode serialmux.NewMockSerialMux(data) fixture path.
type fixturePort struct {
	r      *bytes.Reader
	closed bool
}

func newFixturePort(data []byte) *fixturePort {
	return &fixturePort{r: bytes.NewReader(data)}
}

func (f *fixturePort) Read(p []byte) (int, error)  { return f.r.Read(p) }
func (f *fixturePort) Write(p []byte) (int, error) { return len(p), nil }
func (f *fixturePort) Close() error {
	f.closed = true
	return nil
}
