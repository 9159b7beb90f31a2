package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the empirically tuned constants of the overlap
// pipeline. Pointer fields distinguish "unset" from zero; the Get* methods
// supply the defaults for unset fields.
type TuningConfig struct {
	// Rig
	Cameras   []string `json:"cameras,omitempty"`
	NearPlane *float64 `json:"near_plane,omitempty"`
	FarPlane  *float64 `json:"far_plane,omitempty"`

	// Overlap detection
	MinOverlapPoints   *int `json:"min_overlap_points,omitempty"`
	FrustumEdgeSamples *int `json:"frustum_edge_samples,omitempty"`

	// Boundary extraction
	BaseThreshold     *float64 `json:"base_threshold,omitempty"`
	MaxThreshold      *float64 `json:"max_threshold,omitempty"`
	VisiblePointsOnly *bool    `json:"visible_points_only,omitempty"`

	// Strip post-processing
	SmoothSigma          *float64 `json:"smooth_sigma,omitempty"`
	InterpolateYInterval *float64 `json:"interpolate_y_interval,omitempty"`
	SortStripsVertical   *bool    `json:"sort_strips_vertical,omitempty"`

	// Query
	PointTolerance *int `json:"point_tolerance,omitempty"`
	BoxTolerance   *int `json:"box_tolerance,omitempty"`

	// Detection association
	PixelMatchWindow *float64 `json:"pixel_match_window,omitempty"`
	MatchDistance    *float64 `json:"match_distance,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// Fields omitted from the file keep their defaults, so partial configs are
// safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	seen := make(map[string]bool, len(c.Cameras))
	for _, id := range c.Cameras {
		if id == "" {
			return fmt.Errorf("cameras must not contain empty ids")
		}
		if seen[id] {
			return fmt.Errorf("duplicate camera %q", id)
		}
		seen[id] = true
	}

	if c.NearPlane != nil && *c.NearPlane <= 0 {
		return fmt.Errorf("near_plane must be positive, got %f", *c.NearPlane)
	}
	if c.GetFarPlane() <= c.GetNearPlane() {
		return fmt.Errorf("far_plane (%f) must exceed near_plane (%f)", c.GetFarPlane(), c.GetNearPlane())
	}

	if c.MinOverlapPoints != nil && *c.MinOverlapPoints < 0 {
		return fmt.Errorf("min_overlap_points must be non-negative, got %d", *c.MinOverlapPoints)
	}
	if c.FrustumEdgeSamples != nil && *c.FrustumEdgeSamples < 0 {
		return fmt.Errorf("frustum_edge_samples must be non-negative, got %d", *c.FrustumEdgeSamples)
	}

	if c.BaseThreshold != nil && *c.BaseThreshold < 0 {
		return fmt.Errorf("base_threshold must be non-negative, got %f", *c.BaseThreshold)
	}
	if c.GetMaxThreshold() < c.GetBaseThreshold() {
		return fmt.Errorf("max_threshold (%f) must be at least base_threshold (%f)", c.GetMaxThreshold(), c.GetBaseThreshold())
	}

	if c.SmoothSigma != nil && *c.SmoothSigma < 0 {
		return fmt.Errorf("smooth_sigma must be non-negative, got %f", *c.SmoothSigma)
	}
	if c.InterpolateYInterval != nil && *c.InterpolateYInterval < 0 {
		return fmt.Errorf("interpolate_y_interval must be non-negative, got %f", *c.InterpolateYInterval)
	}

	if c.PointTolerance != nil && *c.PointTolerance < 0 {
		return fmt.Errorf("point_tolerance must be non-negative, got %d", *c.PointTolerance)
	}
	if c.BoxTolerance != nil && (*c.BoxTolerance < 0 || *c.BoxTolerance > 4) {
		return fmt.Errorf("box_tolerance must be in [0, 4], got %d", *c.BoxTolerance)
	}

	if c.PixelMatchWindow != nil && *c.PixelMatchWindow <= 0 {
		return fmt.Errorf("pixel_match_window must be positive, got %f", *c.PixelMatchWindow)
	}
	if c.MatchDistance != nil && *c.MatchDistance <= 0 {
		return fmt.Errorf("match_distance must be positive, got %f", *c.MatchDistance)
	}
	return nil
}

// GetCameras returns the configured camera set, or nil meaning "every
// camera in the calibration".
func (c *TuningConfig) GetCameras() []string {
	if len(c.Cameras) == 0 {
		return nil
	}
	return append([]string(nil), c.Cameras...)
}

// GetNearPlane returns the near_plane value or the default.
func (c *TuningConfig) GetNearPlane() float64 {
	if c.NearPlane == nil {
		return 0.1
	}
	return *c.NearPlane
}

// GetFarPlane returns the far_plane value or the default.
func (c *TuningConfig) GetFarPlane() float64 {
	if c.FarPlane == nil {
		return 150
	}
	return *c.FarPlane
}

// GetMinOverlapPoints returns the min_overlap_points value or the default.
func (c *TuningConfig) GetMinOverlapPoints() int {
	if c.MinOverlapPoints == nil {
		return 4
	}
	return *c.MinOverlapPoints
}

// GetFrustumEdgeSamples returns the frustum_edge_samples value or the default.
func (c *TuningConfig) GetFrustumEdgeSamples() int {
	if c.FrustumEdgeSamples == nil {
		return 16
	}
	return *c.FrustumEdgeSamples
}

// GetBaseThreshold returns the base_threshold value or the default.
func (c *TuningConfig) GetBaseThreshold() float64 {
	if c.BaseThreshold == nil {
		return 0.03
	}
	return *c.BaseThreshold
}

// GetMaxThreshold returns the max_threshold value or the default.
func (c *TuningConfig) GetMaxThreshold() float64 {
	if c.MaxThreshold == nil {
		return 0.27
	}
	return *c.MaxThreshold
}

// GetVisiblePointsOnly returns the visible_points_only value or the default.
func (c *TuningConfig) GetVisiblePointsOnly() bool {
	if c.VisiblePointsOnly == nil {
		return true
	}
	return *c.VisiblePointsOnly
}

// GetSmoothSigma returns the smooth_sigma value or the default.
// Zero disables smoothing.
func (c *TuningConfig) GetSmoothSigma() float64 {
	if c.SmoothSigma == nil {
		return 1
	}
	return *c.SmoothSigma
}

// GetInterpolateYInterval returns the interpolate_y_interval value or the
// default. Zero disables interpolation.
func (c *TuningConfig) GetInterpolateYInterval() float64 {
	if c.InterpolateYInterval == nil {
		return 0
	}
	return *c.InterpolateYInterval
}

// GetSortStripsVertical returns the sort_strips_vertical value or the default.
func (c *TuningConfig) GetSortStripsVertical() bool {
	if c.SortStripsVertical == nil {
		return true
	}
	return *c.SortStripsVertical
}

// GetPointTolerance returns the point_tolerance value or the default.
func (c *TuningConfig) GetPointTolerance() int {
	if c.PointTolerance == nil {
		return 0
	}
	return *c.PointTolerance
}

// GetBoxTolerance returns the box_tolerance value or the default.
func (c *TuningConfig) GetBoxTolerance() int {
	if c.BoxTolerance == nil {
		return 1
	}
	return *c.BoxTolerance
}

// GetPixelMatchWindow returns the pixel_match_window value or the default.
func (c *TuningConfig) GetPixelMatchWindow() float64 {
	if c.PixelMatchWindow == nil {
		return 8
	}
	return *c.PixelMatchWindow
}

// GetMatchDistance returns the match_distance value or the default.
func (c *TuningConfig) GetMatchDistance() float64 {
	if c.MatchDistance == nil {
		return 1.0
	}
	return *c.MatchDistance
}
