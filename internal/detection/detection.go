// Package detection feeds object-detector output through the overlap query
// engine and associates detections seen by more than one camera.
//
// The detector itself is an external collaborator: this package only
// consumes its per-image list of labelled, scored bounding boxes.
package detection

import (
	"fmt"

	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/strip"
)

// BBox is an axis-aligned box in image pixels, (X1, Y1) top-left and
// (X2, Y2) bottom-right.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the box centre.
func (b BBox) Center() [2]float64 {
	return [2]float64{(b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2}
}

// Corners returns the four corners clockwise from top-left, the shape of a
// box query.
func (b BBox) Corners() [][2]float64 {
	return [][2]float64{{b.X1, b.Y1}, {b.X2, b.Y1}, {b.X2, b.Y2}, {b.X1, b.Y2}}
}

// Detection is one detector output in one camera image.
type Detection struct {
	Camera     string  `json:"camera"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        BBox    `json:"box"`
}

// Located pairs a detection with its overlap query result.
type Located struct {
	Detection
	Result *query.Result `json:"result"`
}

// Cameras returns the cameras the detection overlaps.
func (l Located) Cameras() []string {
	if l.Result == nil {
		return nil
	}
	return l.Result.Cameras
}

// Locate runs a 1-point query at every detection centre.
func Locate(e *query.Engine, frame strip.Frame, rel overlap.Relation, dets []Detection) ([]Located, error) {
	return locate(e, frame, rel, dets, func(b BBox) [][2]float64 {
		return [][2]float64{b.Center()}
	})
}

// LocateBoxes runs a 4-point box query on every detection's corners.
func LocateBoxes(e *query.Engine, frame strip.Frame, rel overlap.Relation, dets []Detection) ([]Located, error) {
	return locate(e, frame, rel, dets, BBox.Corners)
}

func locate(e *query.Engine, frame strip.Frame, rel overlap.Relation, dets []Detection, points func(BBox) [][2]float64) ([]Located, error) {
	out := make([]Located, 0, len(dets))
	for i, d := range dets {
		res, err := e.Query(d.Camera, points(d.Box), frame, rel)
		if err != nil {
			return nil, fmt.Errorf("detection %d (%s in %s): %w", i, d.Label, d.Camera, err)
		}
		out = append(out, Located{Detection: d, Result: res})
	}
	return out, nil
}
