package pipeline

import (
	"fmt"
	"time"

	"github.com/banshee-data/overlap/internal/boundary"
	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/strip"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds the parameters of one pipeline run.
type Config struct {
	NearPlane float64
	FarPlane  float64
	Overlap   overlap.Params
	Boundary  boundary.Params
	Strip     strip.Options

	// VisiblePointsOnly drops points that project into no camera image
	// before boundary extraction.
	VisiblePointsOnly bool

	// Observer, when non-nil, receives stage outputs.
	Observer Observer
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		NearPlane:         cfg.GetNearPlane(),
		FarPlane:          cfg.GetFarPlane(),
		Overlap:           overlap.ParamsFromTuning(cfg),
		Boundary:          boundary.ParamsFromTuning(cfg),
		Strip:             strip.OptionsFromTuning(cfg),
		VisiblePointsOnly: cfg.GetVisiblePointsOnly(),
	}
}

// Output collects every stage result of a run.
type Output struct {
	Key      FrameKey
	Frustums map[string]camera.Frustum
	Relation overlap.Relation
	Report   *overlap.Report
	// Scanned is the number of points considered for extraction.
	Scanned int
	Strips  boundary.Strips
	// Raw holds the projected strips before post-processing.
	Raw   strip.Frame
	Frame strip.Frame
}

// Run processes one frame of points through every stage.
func Run(key FrameKey, rig *camera.Rig, points []r3.Vec, cfg Config) (*Output, error) {
	start := time.Now()
	out := &Output{Key: key}

	frustums, err := camera.BuildFrustums(rig, cfg.NearPlane, cfg.FarPlane)
	if err != nil {
		return nil, fmt.Errorf("build frustums: %w", err)
	}
	out.Frustums = frustums

	out.Relation, out.Report, err = overlap.Detect(rig, frustums, cfg.Overlap)
	if err != nil {
		return nil, fmt.Errorf("detect overlap: %w", err)
	}
	if err := notify(cfg.Observer, func(o Observer) error { return o.OverlapDetected(key, out.Relation, out.Report) }); err != nil {
		return nil, err
	}

	edges, err := boundary.Edges(frustums)
	if err != nil {
		return nil, fmt.Errorf("frustum edges: %w", err)
	}
	total := len(points)
	if cfg.VisiblePointsOnly {
		points, err = FilterVisible(rig, points)
		if err != nil {
			return nil, err
		}
	}
	out.Scanned = len(points)

	out.Strips, err = boundary.Extract(points, edges, cfg.Boundary)
	if err != nil {
		return nil, fmt.Errorf("extract strips: %w", err)
	}
	if err := notify(cfg.Observer, func(o Observer) error { return o.StripsExtracted(key, out.Strips) }); err != nil {
		return nil, err
	}

	out.Raw, err = boundary.Project(rig, out.Strips)
	if err != nil {
		return nil, fmt.Errorf("project strips: %w", err)
	}
	out.Frame = strip.ProcessFrame(out.Raw, cfg.Strip)
	if err := notify(cfg.Observer, func(o Observer) error { return o.StripsProjected(key, out.Frame) }); err != nil {
		return nil, err
	}

	for _, cam := range rig.IDs() {
		if len(out.Relation[cam]) > 0 && len(out.Frame[cam]) == 0 {
			opsf("%s: camera %s overlaps %v but no strip reached its image; queries will assume full overlap",
				key, cam, out.Relation[cam])
		}
	}
	diagf("%s: %d cameras, %d/%d points scanned, %d strips in %v",
		key, rig.Len(), out.Scanned, total, len(out.Strips), time.Since(start))
	return out, nil
}

func notify(o Observer, fn func(Observer) error) error {
	if o == nil {
		return nil
	}
	if err := fn(o); err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	return nil
}

// FilterVisible returns the points that project inside at least one rig
// camera image, in input order.
func FilterVisible(rig *camera.Rig, points []r3.Vec) ([]r3.Vec, error) {
	projectors, err := camera.NewProjectors(rig)
	if err != nil {
		return nil, err
	}
	ids := rig.IDs()
	out := make([]r3.Vec, 0, len(points))
	for _, x := range points {
		for _, id := range ids {
			if projectors[id].Visible(x) {
				out = append(out, x)
				break
			}
		}
	}
	return out, nil
}
