package camera

import (
	"fmt"

	"github.com/banshee-data/overlap/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Projector maps shared-frame points into one camera's undistorted image.
type Projector struct {
	params      Params
	sharedToCam geometry.Transform
	width       float64
	height      float64
}

// NewProjector inverts the camera extrinsic once for repeated projection.
func NewProjector(p Params) (*Projector, error) {
	inv, err := p.CamToShared.Inverse()
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", p.ID, err)
	}
	w, h := p.ImageSize()
	return &Projector{params: p, sharedToCam: inv, width: w, height: h}, nil
}

// Camera returns the projector's camera id.
func (pr *Projector) Camera() string { return pr.params.ID }

// Project returns the pixel coordinates of x. ok is false when the point
// lies at or behind the image plane.
func (pr *Projector) Project(x r3.Vec) (u, v float64, ok bool) {
	c := pr.sharedToCam.Apply(x)
	if c.Z <= 0 {
		return 0, 0, false
	}
	in := pr.params.Intrinsics
	u = in.Fx*c.X/c.Z + in.Cx
	v = in.Fy*c.Y/c.Z + in.Cy
	return u, v, true
}

// InImage reports whether (u, v) lies within [0, width) × [0, height).
func (pr *Projector) InImage(u, v float64) bool {
	return u >= 0 && u < pr.width && v >= 0 && v < pr.height
}

// Visible reports whether x projects in front of the camera and inside the
// image bounds.
func (pr *Projector) Visible(x r3.Vec) bool {
	u, v, ok := pr.Project(x)
	return ok && pr.InImage(u, v)
}

// NewProjectors builds a projector per rig camera keyed by camera id.
func NewProjectors(rig *Rig) (map[string]*Projector, error) {
	out := make(map[string]*Projector, rig.Len())
	for _, c := range rig.Cameras() {
		pr, err := NewProjector(c)
		if err != nil {
			return nil, err
		}
		out[c.ID] = pr
	}
	return out, nil
}
