package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWhenUnset(t *testing.T) {
	cfg := Empty()
	if got := cfg.Vehicle.GetWheelbaseMeters(); got != 2.4 {
		t.Errorf("GetWheelbaseMeters = %v, want 2.4", got)
	}
	if got := cfg.Guidance.GetAlgorithm(); got != AlgorithmPurePursuit {
		t.Errorf("GetAlgorithm = %q, want %q", got, AlgorithmPurePursuit)
	}
	if got := cfg.UTurn.GetStyle(); got != StyleOmega {
		t.Errorf("GetStyle = %q, want %q", got, StyleOmega)
	}
	if got := cfg.Connections.GetHeadingFusionWeight(); got != 0.5 {
		t.Errorf("GetHeadingFusionWeight = %v, want 0.5", got)
	}
	if got := cfg.Connections.GetDualGPS(); got != false {
		t.Errorf("GetDualGPS = %v, want false", got)
	}
}

func TestLoadPartialOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.json")
	const doc = `{"vehicle":{"wheelbase_meters":3.1},"guidance":{"algorithm":"stanley"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Vehicle.GetWheelbaseMeters(); got != 3.1 {
		t.Errorf("GetWheelbaseMeters = %v, want 3.1", got)
	}
	if got := cfg.Guidance.GetAlgorithm(); got != AlgorithmStanley {
		t.Errorf("GetAlgorithm = %q, want %q", got, AlgorithmStanley)
	}
	// unspecified field still defaults
	if got := cfg.Tool.GetWidthMeters(); got != 6.0 {
		t.Errorf("GetWidthMeters = %v, want 6.0", got)
	}
}

func TestLoadRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.txt")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestValidateRejectsBadHeadingFusionWeight(t *testing.T) {
	cfg := Empty()
	bad := 1.5
	cfg.Connections.HeadingFusionWeight = &bad
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for heading_fusion_weight > 1")
	}
}

func TestValidateRejectsUnknownUTurnStyle(t *testing.T) {
	cfg := Empty()
	bad := "spiral"
	cfg.UTurn.Style = &bad
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown u_turn.style")
	}
}
