// Package config implements the single process-wide configuration
// record (spec.md §3): a JSON-serialisable document of pointer fields
// with Get* accessors that fall back to documented defaults, loaded
// once at start and mutated only by this package, read under a
// consistent snapshot per cycle (spec.md §5).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the canonical on-disk location for the core
// configuration document.
const DefaultConfigPath = "config/core.defaults.json"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB, matches teacher's validation

// CoreConfig is the root configuration document, partitioned exactly
// as spec.md §3 describes.
type CoreConfig struct {
	Vehicle     VehicleConfig     `json:"vehicle"`
	Tool        ToolConfig        `json:"tool"`
	Guidance    GuidanceConfig    `json:"guidance"`
	UTurn       UTurnConfig       `json:"u_turn"`
	Connections ConnectionsConfig `json:"connections"`
}

// VehicleConfig holds wheelbase, antenna offsets, and steering-law
// gains.
type VehicleConfig struct {
	WheelbaseMeters       *float64 `json:"wheelbase_meters,omitempty"`
	AntennaForeAftMeters  *float64 `json:"antenna_fore_aft_meters,omitempty"`
	AntennaLateralMeters  *float64 `json:"antenna_lateral_meters,omitempty"`
	MaxSteerAngleRad      *float64 `json:"max_steer_angle_rad,omitempty"`
	GoalPointLookAheadMul *float64 `json:"goal_point_look_ahead_mult,omitempty"`
	LookAheadHoldMeters   *float64 `json:"look_ahead_hold_meters,omitempty"`
	GoalPointAcquireFactor *float64 `json:"goal_point_acquire_factor,omitempty"`
	StanleyHeadingGain    *float64 `json:"stanley_heading_gain,omitempty"`
	StanleyCrossTrackGain *float64 `json:"stanley_cross_track_gain,omitempty"`
	UTurnCompensation     *float64 `json:"u_turn_compensation,omitempty"`
}

func (c *VehicleConfig) GetWheelbaseMeters() float64 { return getF(c.WheelbaseMeters, 2.4) }
func (c *VehicleConfig) GetAntennaForeAftMeters() float64 { return getF(c.AntennaForeAftMeters, 0) }
func (c *VehicleConfig) GetAntennaLateralMeters() float64 { return getF(c.AntennaLateralMeters, 0) }
func (c *VehicleConfig) GetMaxSteerAngleRad() float64 { return getF(c.MaxSteerAngleRad, 0.6109) } // ~35deg
func (c *VehicleConfig) GetGoalPointLookAheadMul() float64 {
	return getF(c.GoalPointLookAheadMul, 1.0)
}
func (c *VehicleConfig) GetLookAheadHoldMeters() float64 { return getF(c.LookAheadHoldMeters, 2.0) }
func (c *VehicleConfig) GetGoalPointAcquireFactor() float64 {
	return getF(c.GoalPointAcquireFactor, 2.0)
}
func (c *VehicleConfig) GetStanleyHeadingGain() float64 { return getF(c.StanleyHeadingGain, 1.0) }
func (c *VehicleConfig) GetStanleyCrossTrackGain() float64 {
	return getF(c.StanleyCrossTrackGain, 1.0)
}
func (c *VehicleConfig) GetUTurnCompensation() float64 { return getF(c.UTurnCompensation, 1.0) }

// ToolConfig holds implement geometry, section widths, and look-ahead
// timing.
type ToolConfig struct {
	WidthMeters           *float64  `json:"width_meters,omitempty"`
	OverlapMeters         *float64  `json:"overlap_meters,omitempty"`
	OffsetMeters          *float64  `json:"offset_meters,omitempty"`
	HitchLengthMeters     *float64  `json:"hitch_length_meters,omitempty"`
	TrailingHitchMeters   *float64  `json:"trailing_hitch_meters,omitempty"`
	SectionWidthsMeters   []float64 `json:"section_widths_meters,omitempty"`
	LookAheadOnSeconds    *float64  `json:"look_ahead_on_seconds,omitempty"`
	LookAheadOffSeconds   *float64  `json:"look_ahead_off_seconds,omitempty"`
	TurnOffDelaySeconds   *float64  `json:"turn_off_delay_seconds,omitempty"`
	CoverageMarginMeters  *float64  `json:"coverage_margin_meters,omitempty"`
	MinCoverageFraction   *float64  `json:"min_coverage_fraction,omitempty"`
	SlowSpeedCutoffMPS    *float64  `json:"slow_speed_cutoff_mps,omitempty"`
}

func (c *ToolConfig) GetWidthMeters() float64           { return getF(c.WidthMeters, 6.0) }
func (c *ToolConfig) GetOverlapMeters() float64         { return getF(c.OverlapMeters, 0.1) }
func (c *ToolConfig) GetOffsetMeters() float64          { return getF(c.OffsetMeters, 0) }
func (c *ToolConfig) GetHitchLengthMeters() float64     { return getF(c.HitchLengthMeters, 1.0) }
func (c *ToolConfig) GetTrailingHitchMeters() float64   { return getF(c.TrailingHitchMeters, 3.0) }
func (c *ToolConfig) GetSectionWidthsMeters() []float64 {
	if len(c.SectionWidthsMeters) > 0 {
		return c.SectionWidthsMeters
	}
	return []float64{1, 1, 1, 1, 1, 1}
}
func (c *ToolConfig) GetLookAheadOnSeconds() float64  { return getF(c.LookAheadOnSeconds, 1.5) }
func (c *ToolConfig) GetLookAheadOffSeconds() float64 { return getF(c.LookAheadOffSeconds, 0.5) }
func (c *ToolConfig) GetTurnOffDelaySeconds() float64  { return getF(c.TurnOffDelaySeconds, 0.2) }
func (c *ToolConfig) GetCoverageMarginMeters() float64 {
	return getF(c.CoverageMarginMeters, 0)
}
func (c *ToolConfig) GetMinCoverageFraction() float64 { return getF(c.MinCoverageFraction, 0.70) }
func (c *ToolConfig) GetSlowSpeedCutoffMPS() float64  { return getF(c.SlowSpeedCutoffMPS, 0.1) }

// GuidanceConfig selects and tunes the steering law (C6).
type GuidanceConfig struct {
	Algorithm            *string  `json:"algorithm,omitempty"` // "pure_pursuit" | "stanley"
	DeadZoneRad          *float64 `json:"dead_zone_rad,omitempty"`
	DeadZoneDelayCycles  *int     `json:"dead_zone_delay_cycles,omitempty"`
	MinLookAheadMeters   *float64 `json:"min_look_ahead_meters,omitempty"`
}

const (
	AlgorithmPurePursuit = "pure_pursuit"
	AlgorithmStanley     = "stanley"
)

func (c *GuidanceConfig) GetAlgorithm() string { return getS(c.Algorithm, AlgorithmPurePursuit) }
func (c *GuidanceConfig) GetDeadZoneRad() float64 { return getF(c.DeadZoneRad, 0) }
func (c *GuidanceConfig) GetDeadZoneDelayCycles() int { return getI(c.DeadZoneDelayCycles, 0) }
func (c *GuidanceConfig) GetMinLookAheadMeters() float64 {
	return getF(c.MinLookAheadMeters, 1.0)
}

// UTurnConfig controls U-turn synthesis (C7).
type UTurnConfig struct {
	RadiusMeters          *float64 `json:"radius_meters,omitempty"`
	ExtensionLengthMeters *float64 `json:"extension_length_meters,omitempty"`
	SkipWidthCount        *int     `json:"skip_width_count,omitempty"`
	Style                 *string  `json:"style,omitempty"` // "omega" | "wide" | "k_style"
	SmoothingMeters       *float64 `json:"smoothing_meters,omitempty"`
	UTurnCompensation     *float64 `json:"u_turn_compensation,omitempty"`
}

const (
	StyleOmega  = "omega"
	StyleWide   = "wide"
	StyleKStyle = "k_style"
)

func (c *UTurnConfig) GetRadiusMeters() float64 { return getF(c.RadiusMeters, 6.0) }
func (c *UTurnConfig) GetExtensionLengthMeters() float64 {
	return getF(c.ExtensionLengthMeters, 0)
}
func (c *UTurnConfig) GetSkipWidthCount() int { return getI(c.SkipWidthCount, 0) }
func (c *UTurnConfig) GetStyle() string       { return getS(c.Style, StyleOmega) }
func (c *UTurnConfig) GetSmoothingMeters() float64 { return getF(c.SmoothingMeters, 1.0) }
func (c *UTurnConfig) GetUTurnCompensation() float64 {
	return getF(c.UTurnCompensation, 1.0)
}

// ConnectionsConfig gates fix quality (C4).
type ConnectionsConfig struct {
	MinFixQuality        *int     `json:"min_fix_quality,omitempty"`
	MaxHDOP              *float64 `json:"max_hdop,omitempty"`
	MaxDiffAgeSeconds     *float64 `json:"max_diff_age_seconds,omitempty"`
	DualGPS               *bool    `json:"dual_gps,omitempty"`
	DualHeadingOffsetDeg  *float64 `json:"dual_heading_offset_deg,omitempty"`
	DualSwitchSpeedMPS    *float64 `json:"dual_switch_speed_mps,omitempty"`
	FixToFixDistanceMeters *float64 `json:"fix_to_fix_distance_meters,omitempty"`
	HeadingFusionWeight   *float64 `json:"heading_fusion_weight,omitempty"`
	MinGPSStepMeters      *float64 `json:"min_gps_step_meters,omitempty"`
}

func (c *ConnectionsConfig) GetMinFixQuality() int { return getI(c.MinFixQuality, 1) }
func (c *ConnectionsConfig) GetMaxHDOP() float64   { return getF(c.MaxHDOP, 4.0) }
func (c *ConnectionsConfig) GetMaxDiffAgeSeconds() float64 {
	return getF(c.MaxDiffAgeSeconds, 10.0)
}
func (c *ConnectionsConfig) GetDualGPS() bool { return getB(c.DualGPS, false) }
func (c *ConnectionsConfig) GetDualHeadingOffsetDeg() float64 {
	return getF(c.DualHeadingOffsetDeg, 0)
}
func (c *ConnectionsConfig) GetDualSwitchSpeedMPS() float64 {
	return getF(c.DualSwitchSpeedMPS, 0.3)
}
func (c *ConnectionsConfig) GetFixToFixDistanceMeters() float64 {
	return getF(c.FixToFixDistanceMeters, 0.1)
}
func (c *ConnectionsConfig) GetHeadingFusionWeight() float64 {
	return getF(c.HeadingFusionWeight, 0.5)
}
func (c *ConnectionsConfig) GetMinGPSStepMeters() float64 {
	return getF(c.MinGPSStepMeters, 0.1)
}

func getF(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
func getI(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
func getB(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
func getS(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// Empty returns a CoreConfig with every field unset, so every Get*
// accessor falls back to its documented default.
func Empty() *CoreConfig { return &CoreConfig{} }

// Load reads and validates a CoreConfig from a JSON file. Fields
// omitted from the file retain their defaulted values via the Get*
// accessors, so partial configs are always safe.
func Load(path string) (*CoreConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that are set for obviously
// invalid ranges. Persistence/configuration failures are surfaced to
// the caller per spec.md §7.
func (c *CoreConfig) Validate() error {
	if c.Connections.HeadingFusionWeight != nil {
		w := *c.Connections.HeadingFusionWeight
		if w < 0 || w > 1 {
			return fmt.Errorf("heading_fusion_weight must be in [0,1], got %f", w)
		}
	}
	if c.Tool.MinCoverageFraction != nil {
		f := *c.Tool.MinCoverageFraction
		if f < 0 || f > 1 {
			return fmt.Errorf("min_coverage_fraction must be in [0,1], got %f", f)
		}
	}
	if c.UTurn.Style != nil {
		switch *c.UTurn.Style {
		case StyleOmega, StyleWide, StyleKStyle:
		default:
			return fmt.Errorf("u_turn.style must be one of omega|wide|k_style, got %q", *c.UTurn.Style)
		}
	}
	if c.Guidance.Algorithm != nil {
		switch *c.Guidance.Algorithm {
		case AlgorithmPurePursuit, AlgorithmStanley:
		default:
			return fmt.Errorf("guidance.algorithm must be one of pure_pursuit|stanley, got %q", *c.Guidance.Algorithm)
		}
	}
	return nil
}
