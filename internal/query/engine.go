// Package query answers point and box overlap queries against boundary
// strips in a camera image.
//
// A query is one point (strict) or the four corners of an axis-aligned box
// (tolerant). For every candidate strip the strip point nearest in Y to each
// query point decides a pass or a fail: edge 0 strips require the query to
// lie at or right of the strip, edge 1 strips at or left of it. A strip is
// valid when its failures do not exceed the mode's tolerance.
//
// Neighbouring cameras with no strip in the image are reported as assumed
// overlaps, separately from the proven ones.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/strip"
)

var (
	// ErrInvalidPointCount is returned when a query has neither 1 nor 4 points.
	ErrInvalidPointCount = errors.New("query must have exactly 1 or 4 points")
	// ErrUnknownCamera is returned when the query camera is in neither the
	// overlap relation nor the strip frame.
	ErrUnknownCamera = errors.New("unknown camera")
)

// Mode is the query semantics selected by the number of points.
type Mode string

const (
	ModePoint Mode = "point"
	ModeBox   Mode = "box"
)

// ModeFor returns the mode for a query of n points.
func ModeFor(n int) (Mode, error) {
	switch n {
	case 1:
		return ModePoint, nil
	case 4:
		return ModeBox, nil
	default:
		return "", fmt.Errorf("%w: got %d", ErrInvalidPointCount, n)
	}
}

// Params sets the number of directional failures each mode tolerates per
// strip.
type Params struct {
	PointTolerance int
	BoxTolerance   int
}

// DefaultParams returns strict points and one-corner-tolerant boxes.
func DefaultParams() Params {
	return Params{PointTolerance: 0, BoxTolerance: 1}
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		PointTolerance: cfg.GetPointTolerance(),
		BoxTolerance:   cfg.GetBoxTolerance(),
	}
}

// Tolerance returns the tolerance for m.
func (p Params) Tolerance(m Mode) int {
	if m == ModeBox {
		return p.BoxTolerance
	}
	return p.PointTolerance
}

// Engine evaluates queries. It holds no per-query state and is safe for
// concurrent use.
type Engine struct {
	params Params
}

// NewEngine returns an Engine using p.
func NewEngine(p Params) *Engine {
	return &Engine{params: p}
}

// Params returns the engine's tolerances.
func (e *Engine) Params() Params { return e.params }

// Query evaluates points in camera's image against the strips of frame,
// restricted to the cameras rel lists as overlapping camera.
func (e *Engine) Query(camera string, points [][2]float64, frame strip.Frame, rel overlap.Relation) (*Result, error) {
	mode, err := ModeFor(len(points))
	if err != nil {
		return nil, err
	}
	img, inFrame := frame[camera]
	neighbours, inRel := rel[camera]
	if !inFrame && !inRel {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCamera, camera)
	}

	isNeighbour := make(map[string]bool, len(neighbours))
	for _, c := range neighbours {
		isNeighbour[c] = true
	}

	var candidates []strip.ID
	owned := make(map[string][]strip.ID)
	for _, id := range img.IDs() {
		if !isNeighbour[id.Camera] || len(img[id]) == 0 {
			continue
		}
		candidates = append(candidates, id)
		owned[id.Camera] = append(owned[id.Camera], id)
	}

	res := &Result{Camera: camera, Mode: mode}
	for _, c := range neighbours {
		if len(owned[c]) == 0 {
			res.Assumed = append(res.Assumed, c)
		}
	}
	if len(res.Assumed) > 0 {
		diagf("camera %s: no strips for overlapping cameras %v, assuming full overlap", camera, res.Assumed)
	}

	failures := make(map[strip.ID]int, len(candidates))
	for _, q := range points {
		pr := PointResult{Point: q}
		for _, id := range candidates {
			pts := img[id]
			nearest := pts[strip.Nearest(pts, q[1])]
			pass := passes(id.Edge, q, nearest)
			if !pass {
				failures[id]++
			}
			tracef("camera %s point %v strip %s nearest (%.1f, %.1f) pass=%v", camera, q, id, nearest.X, nearest.Y, pass)
			pr.Matches = append(pr.Matches, Match{Strip: id, Nearest: nearest, Pass: pass})
		}
		res.Points = append(res.Points, pr)
	}

	tol := e.params.Tolerance(mode)
	valid := make(map[strip.ID]bool, len(candidates))
	for _, id := range candidates {
		valid[id] = failures[id] <= tol
		res.Strips = append(res.Strips, StripVerdict{ID: id, Failures: failures[id], Valid: valid[id]})
	}

	for _, c := range neighbours {
		ids := owned[c]
		if len(ids) == 0 {
			continue
		}
		proven := true
		for _, id := range ids {
			proven = proven && valid[id]
		}
		if proven {
			res.Proven = append(res.Proven, c)
		}
	}

	res.Cameras = union(res.Proven, res.Assumed)
	for i := range res.Points {
		res.Points[i].Cameras = res.Cameras
		res.Points[i].Description = Describe(camera, mode, res.Points[i].Point, res.Proven, res.Assumed)
	}
	return res, nil
}

// passes applies the directional test for a strip edge.
func passes(edge int, q [2]float64, nearest strip.Point) bool {
	if edge == 0 {
		return q[0] >= nearest.X
	}
	return q[0] <= nearest.X
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}
