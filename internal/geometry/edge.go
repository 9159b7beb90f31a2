package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateEdge is returned when an edge has no extent in the XY plane,
// so no perpendicular axis can be defined for it.
var ErrDegenerateEdge = errors.New("degenerate edge: endpoints coincide in the XY plane")

// up is the vertical axis of the shared frame.
var up = r3.Vec{Z: 1}

// flatten drops the Z component of v.
func flatten(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y}
}

// LocalAxis returns the unit vector in the XY plane orthogonal to the XY
// projection of p2-p1. The axis is up × edge, so it points to the left of
// the edge when looking from p1 towards p2.
func LocalAxis(p1, p2 r3.Vec) (r3.Vec, error) {
	edge := flatten(r3.Sub(p2, p1))
	axis := r3.Cross(up, edge)
	n := r3.Norm(axis)
	if n == 0 {
		return r3.Vec{}, fmt.Errorf("%w: p1=%v p2=%v", ErrDegenerateEdge, p1, p2)
	}
	return r3.Scale(1/n, axis), nil
}

// SignedDistanceAlongAxis returns the signed perpendicular distance, in the
// XY plane, from point to the infinite line through p1 and p2.
func SignedDistanceAlongAxis(point, p1, p2 r3.Vec) (float64, error) {
	axis, err := LocalAxis(p1, p2)
	if err != nil {
		return 0, err
	}
	return r3.Dot(flatten(r3.Sub(point, p1)), axis), nil
}

// WithinSegment reports whether the closest approach of point on the line
// through p1 and p2 falls inside the finite segment [p1, p2].
// Unlike the distance functions this uses the full 3D vectors.
func WithinSegment(point, p1, p2 r3.Vec) bool {
	edge := r3.Sub(p2, p1)
	length := r3.Norm(edge)
	if length == 0 {
		return false
	}
	proj := r3.Dot(r3.Sub(point, p1), edge) / length
	return proj >= 0 && proj <= length
}

// DynamicThreshold interpolates linearly between base and max by the ratio
// |point-p1| / |p2-p1|. Points beyond p2 yield values above max.
// A zero-length edge returns base.
func DynamicThreshold(p1, p2, point r3.Vec, base, max float64) float64 {
	length := r3.Norm(r3.Sub(p2, p1))
	if length == 0 {
		return base
	}
	ratio := r3.Norm(r3.Sub(point, p1)) / length
	return base + (max-base)*ratio
}
