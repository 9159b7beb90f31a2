package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// MatrixValidationTolerance is the tolerance used when checking that a
// transform carries a proper rotation.
const MatrixValidationTolerance = 0.01

// Transform is a 4x4 homogeneous transform stored row-major:
// m00,m01,m02,m03, m10,...
type Transform [16]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// TransformFromRows builds a Transform from a 4x4 or 3x4 row list.
// A 3x4 input gets the implicit [0 0 0 1] bottom row.
func TransformFromRows(rows [][]float64) (Transform, error) {
	if len(rows) != 3 && len(rows) != 4 {
		return Transform{}, fmt.Errorf("transform must have 3 or 4 rows, got %d", len(rows))
	}
	t := Identity()
	for i, row := range rows {
		if len(row) != 4 {
			return Transform{}, fmt.Errorf("transform row %d must have 4 columns, got %d", i, len(row))
		}
		copy(t[i*4:i*4+4], row)
	}
	return t, nil
}

// Apply transforms point p. The bottom row is ignored, so T is treated as
// affine.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// Inverse returns the inverse transform. Singular matrices return an error.
func (t Transform) Inverse() (Transform, error) {
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(4, 4, t[:])); err != nil {
		return Transform{}, fmt.Errorf("invert transform: %w", err)
	}
	var out Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = inv.At(i, j)
		}
	}
	return out, nil
}

// Translation returns the translation column.
func (t Transform) Translation() r3.Vec {
	return r3.Vec{X: t[3], Y: t[7], Z: t[11]}
}

// IsValidTransform checks if t is a rigid transform: the rotation block has
// determinant ≈ 1 and the last row is [0 0 0 1].
func IsValidTransform(t Transform) bool {
	r00, r01, r02 := t[0], t[1], t[2]
	r10, r11, r12 := t[4], t[5], t[6]
	r20, r21, r22 := t[8], t[9], t[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}
	if t[12] != 0 || t[13] != 0 || t[14] != 0 || math.Abs(t[15]-1.0) > 0.001 {
		return false
	}
	return true
}
