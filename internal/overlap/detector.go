package overlap

import (
	"fmt"

	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/config"
)

// Params configures overlap detection.
type Params struct {
	// MinOverlapPoints is the gate: a directed edge needs strictly more
	// in-image points than this.
	MinOverlapPoints int
	// EdgeSamples is the number of interior samples per frustum edge added to
	// the 8 corners, so the gate counts 8+12·EdgeSamples points. Zero projects
	// the corners only; cameras sharing one side of their frusta then see
	// just 4 corners and fail the default gate, so the default samples 16
	// points per edge.
	EdgeSamples int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{MinOverlapPoints: 4, EdgeSamples: 16}
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		MinOverlapPoints: cfg.GetMinOverlapPoints(),
		EdgeSamples:      cfg.GetFrustumEdgeSamples(),
	}
}

// Pair is an ordered (source, target) camera pair.
type Pair struct {
	Source string
	Target string
}

// Report describes how a Relation was derived.
type Report struct {
	// Counts holds the number of source frustum points that projected into
	// the target image, for every ordered pair.
	Counts map[Pair]int
	// Directed lists the pairs that passed the gate before repair.
	Directed []Pair
	// Repaired lists reverse edges inserted by the symmetry repair.
	Repaired []Pair
}

// Detect computes the symmetric overlap relation for the rig.
func Detect(rig *camera.Rig, frustums map[string]camera.Frustum, p Params) (Relation, *Report, error) {
	projectors, err := camera.NewProjectors(rig)
	if err != nil {
		return nil, nil, err
	}

	ids := rig.IDs()
	report := &Report{Counts: make(map[Pair]int)}
	directed := make(Relation, len(ids))

	for _, src := range ids {
		f, ok := frustums[src]
		if !ok {
			return nil, nil, fmt.Errorf("no frustum for camera %s", src)
		}
		points := f.Sample(p.EdgeSamples)

		for _, dst := range ids {
			if dst == src {
				continue
			}
			pr := projectors[dst]
			count := 0
			for _, x := range points {
				if pr.Visible(x) {
					count++
				}
			}
			pair := Pair{Source: src, Target: dst}
			report.Counts[pair] = count
			if count > p.MinOverlapPoints {
				directed.Add(src, dst)
				report.Directed = append(report.Directed, pair)
			}
		}
	}

	rel := directed.Clone()
	for _, pair := range report.Directed {
		if !rel.Has(pair.Target, pair.Source) {
			rel.Add(pair.Target, pair.Source)
			report.Repaired = append(report.Repaired, Pair{Source: pair.Target, Target: pair.Source})
		}
	}
	for _, id := range ids {
		if _, ok := rel[id]; !ok {
			rel[id] = []string{}
		}
	}
	return rel, report, nil
}
