package camera

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frustum holds the 8 corners of a view frustum in the shared frame.
// Corners 0-3 lie on the near plane and 4-7 on the far plane, each in the
// order top-left, top-right, bottom-right, bottom-left of the image.
type Frustum [8]r3.Vec

// frustumEdges lists the 12 corner index pairs forming the frustum wireframe.
var frustumEdges = [12][2]int{
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // near to far
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // near rectangle
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // far rectangle
}

// TopEdge is one of the two vertical lines bounding a camera's field of
// view, running from the near plane to the far plane.
type TopEdge struct {
	Near r3.Vec
	Far  r3.Vec
}

// BuildFrustum back-projects the image corners at depth near and far and
// moves them into the shared frame.
func BuildFrustum(p Params, near, far float64) (Frustum, error) {
	if near <= 0 {
		return Frustum{}, fmt.Errorf("camera %s: near plane must be positive, got %g", p.ID, near)
	}
	if far <= near {
		return Frustum{}, fmt.Errorf("camera %s: far plane %g must exceed near plane %g", p.ID, far, near)
	}
	kInv, err := p.Intrinsics.Inverse()
	if err != nil {
		return Frustum{}, fmt.Errorf("camera %s: %w", p.ID, err)
	}

	w, h := 2*p.Intrinsics.Cx, 2*p.Intrinsics.Cy
	image := [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}

	var f Frustum
	for plane, depth := range [2]float64{near, far} {
		for i, uv := range image {
			pix := mat.NewVecDense(3, []float64{uv[0] * depth, uv[1] * depth, depth})
			var ray mat.VecDense
			ray.MulVec(kInv, pix)
			camPt := r3.Vec{X: ray.AtVec(0), Y: ray.AtVec(1), Z: ray.AtVec(2)}
			f[plane*4+i] = p.CamToShared.Apply(camPt)
		}
	}
	return f, nil
}

// TopEdges returns the left (0) and right (1) top edges of the frustum.
func TopEdges(f Frustum) [2]TopEdge {
	return [2]TopEdge{
		{Near: f[0], Far: f[4]},
		{Near: f[1], Far: f[5]},
	}
}

// Sample returns the frustum corners followed by n evenly spaced interior
// points on each of the 12 edges.
func (f Frustum) Sample(n int) []r3.Vec {
	if n < 0 {
		n = 0
	}
	out := make([]r3.Vec, 0, len(f)+len(frustumEdges)*n)
	out = append(out, f[:]...)
	for _, e := range frustumEdges {
		a, b := f[e[0]], f[e[1]]
		for k := 1; k <= n; k++ {
			t := float64(k) / float64(n+1)
			out = append(out, r3.Add(a, r3.Scale(t, r3.Sub(b, a))))
		}
	}
	return out
}

// BuildFrustums builds a frustum per rig camera keyed by camera id.
func BuildFrustums(rig *Rig, near, far float64) (map[string]Frustum, error) {
	out := make(map[string]Frustum, rig.Len())
	for _, c := range rig.Cameras() {
		f, err := BuildFrustum(c, near, far)
		if err != nil {
			return nil, err
		}
		out[c.ID] = f
	}
	return out, nil
}
