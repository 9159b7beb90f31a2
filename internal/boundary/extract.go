// Package boundary extracts boundary strips from a 3D point set.
//
// Each camera contributes two top edges (the vertical lines bounding the
// left and right image borders between the near and far planes). A point
// belongs to an edge's strip when it lies within the edge's dynamic
// threshold of the edge line and its projection falls on the edge segment.
package boundary

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/geometry"
	"github.com/banshee-data/overlap/internal/strip"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params holds the distance thresholds in metres.
type Params struct {
	// BaseThreshold applies at the near end of an edge.
	BaseThreshold float64
	// MaxThreshold applies at the far end and doubles as the coarse
	// pre-filter.
	MaxThreshold float64
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{BaseThreshold: 0.03, MaxThreshold: 0.27}
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		BaseThreshold: cfg.GetBaseThreshold(),
		MaxThreshold:  cfg.GetMaxThreshold(),
	}
}

// Edge is one camera top edge tagged with the strip it feeds.
type Edge struct {
	ID   strip.ID
	Near r3.Vec
	Far  r3.Vec
}

// Edges returns the top edges of every frustum, sorted by strip id.
// It fails with geometry.ErrDegenerateEdge if any edge has no XY extent.
func Edges(frustums map[string]camera.Frustum) ([]Edge, error) {
	edges := make([]Edge, 0, 2*len(frustums))
	for cam, f := range frustums {
		for i, te := range camera.TopEdges(f) {
			if _, err := geometry.LocalAxis(te.Near, te.Far); err != nil {
				return nil, fmt.Errorf("camera %s edge %d: %w", cam, i, err)
			}
			edges = append(edges, Edge{ID: strip.ID{Camera: cam, Edge: i}, Near: te.Near, Far: te.Far})
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID.Less(edges[j].ID) })
	return edges, nil
}

// Strips maps a strip id to its 3D points in extraction order.
type Strips map[strip.ID][]r3.Vec

// IDs returns the strip ids in sorted order.
func (s Strips) IDs() []strip.ID {
	ids := make([]strip.ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Len returns the total number of point assignments across all strips.
func (s Strips) Len() int {
	n := 0
	for _, pts := range s {
		n += len(pts)
	}
	return n
}

// Extract scans points against every edge. A point is appended to the
// strip of each edge for which its absolute distance is below the edge's
// dynamic threshold and it falls within the edge segment; one point may
// land in several strips.
func Extract(points []r3.Vec, edges []Edge, p Params) (Strips, error) {
	if p.MaxThreshold < p.BaseThreshold {
		return nil, fmt.Errorf("max threshold %f below base threshold %f", p.MaxThreshold, p.BaseThreshold)
	}

	strips := make(Strips)
	for _, x := range points {
		for _, e := range edges {
			d, err := geometry.SignedDistanceAlongAxis(x, e.Near, e.Far)
			if err != nil {
				return nil, fmt.Errorf("strip %s: %w", e.ID, err)
			}
			d = math.Abs(d)
			if d >= p.MaxThreshold {
				continue
			}
			if d < geometry.DynamicThreshold(e.Near, e.Far, x, p.BaseThreshold, p.MaxThreshold) &&
				geometry.WithinSegment(x, e.Near, e.Far) {
				strips[e.ID] = append(strips[e.ID], x)
			}
		}
	}
	return strips, nil
}
