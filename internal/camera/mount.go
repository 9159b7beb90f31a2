package camera

import (
	"math"

	"github.com/banshee-data/overlap/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// LevelMount returns the camera-to-shared transform of a level camera at
// position whose optical axis points along yawDeg in the XY plane
// (0° = +X, 90° = +Y). Image x maps to the right of the heading and image y
// maps to -Z.
func LevelMount(yawDeg float64, position r3.Vec) geometry.Transform {
	yaw := yawDeg * math.Pi / 180
	forward := r3.Vec{X: math.Cos(yaw), Y: math.Sin(yaw)}
	right := r3.Vec{X: math.Sin(yaw), Y: -math.Cos(yaw)}
	down := r3.Vec{Z: -1}

	// Columns are the camera axes expressed in the shared frame.
	return geometry.Transform{
		right.X, down.X, forward.X, position.X,
		right.Y, down.Y, forward.Y, position.Y,
		right.Z, down.Z, forward.Z, position.Z,
		0, 0, 0, 1,
	}
}
