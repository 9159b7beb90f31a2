// Package camera models calibrated rig cameras: intrinsics, the camera to
// shared-frame extrinsic, view frustums and pinhole projection.
//
// Camera frame convention: x right, y down, z forward (optical axis).
package camera

import (
	"errors"
	"fmt"

	"github.com/banshee-data/overlap/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularIntrinsics is returned when an intrinsic matrix cannot be
// inverted. The calibration must be re-supplied.
var ErrSingularIntrinsics = errors.New("singular intrinsic matrix")

// Intrinsics are the pinhole parameters of a camera, in pixels.
type Intrinsics struct {
	Fx, Fy float64 // focal lengths
	Cx, Cy float64 // principal point
}

// IntrinsicsFromMatrix reads fx, fy, cx, cy from a 3x3 row-major K matrix.
func IntrinsicsFromMatrix(k [][]float64) (Intrinsics, error) {
	if len(k) != 3 {
		return Intrinsics{}, fmt.Errorf("intrinsic matrix must have 3 rows, got %d", len(k))
	}
	for i, row := range k {
		if len(row) != 3 {
			return Intrinsics{}, fmt.Errorf("intrinsic row %d must have 3 columns, got %d", i, len(row))
		}
	}
	return Intrinsics{Fx: k[0][0], Fy: k[1][1], Cx: k[0][2], Cy: k[1][2]}, nil
}

// Matrix returns K as a gonum dense matrix.
func (in Intrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		in.Fx, 0, in.Cx,
		0, in.Fy, in.Cy,
		0, 0, 1,
	})
}

// Inverse returns K⁻¹.
func (in Intrinsics) Inverse() (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(in.Matrix()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularIntrinsics, err)
	}
	return &inv, nil
}

// Params is the calibration of one camera for one frame.
type Params struct {
	ID         string
	Intrinsics Intrinsics
	// CamToShared maps camera-frame points into the shared sensing frame.
	CamToShared geometry.Transform
	// Width and Height of the undistorted image. Zero means 2·cx and 2·cy.
	Width, Height int
	// Distortion coefficients are consumed by the undistortion collaborator
	// only; projection here assumes undistorted images.
	Distortion []float64
}

// ImageSize returns the image width and height in pixels.
func (p Params) ImageSize() (w, h float64) {
	w, h = float64(p.Width), float64(p.Height)
	if w <= 0 {
		w = 2 * p.Intrinsics.Cx
	}
	if h <= 0 {
		h = 2 * p.Intrinsics.Cy
	}
	return w, h
}

// Validate checks that the calibration can be used for projection.
func (p Params) Validate() error {
	if p.ID == "" {
		return errors.New("camera id is required")
	}
	if p.Intrinsics.Fx == 0 || p.Intrinsics.Fy == 0 {
		return fmt.Errorf("camera %s: %w: zero focal length", p.ID, ErrSingularIntrinsics)
	}
	if p.Intrinsics.Cx <= 0 || p.Intrinsics.Cy <= 0 {
		return fmt.Errorf("camera %s: principal point must be positive, got (%g, %g)", p.ID, p.Intrinsics.Cx, p.Intrinsics.Cy)
	}
	if _, err := p.CamToShared.Inverse(); err != nil {
		return fmt.Errorf("camera %s: extrinsic: %w", p.ID, err)
	}
	return nil
}

// Rig is the ordered set of cameras sharing one sensing frame.
type Rig struct {
	cameras []Params
	index   map[string]int
}

// NewRig validates the cameras and builds a Rig. Camera ids must be unique.
func NewRig(cameras ...Params) (*Rig, error) {
	r := &Rig{index: make(map[string]int, len(cameras))}
	for _, c := range cameras {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[c.ID]; dup {
			return nil, fmt.Errorf("duplicate camera id %q", c.ID)
		}
		r.index[c.ID] = len(r.cameras)
		r.cameras = append(r.cameras, c)
	}
	return r, nil
}

// Cameras returns the cameras in rig order.
func (r *Rig) Cameras() []Params {
	out := make([]Params, len(r.cameras))
	copy(out, r.cameras)
	return out
}

// IDs returns the camera ids in rig order.
func (r *Rig) IDs() []string {
	ids := make([]string, len(r.cameras))
	for i, c := range r.cameras {
		ids[i] = c.ID
	}
	return ids
}

// Get returns the camera with the given id.
func (r *Rig) Get(id string) (Params, bool) {
	i, ok := r.index[id]
	if !ok {
		return Params{}, false
	}
	return r.cameras[i], true
}

// Len returns the number of cameras.
func (r *Rig) Len() int { return len(r.cameras) }
