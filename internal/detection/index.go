package detection

import (
	"math"
	"sort"

	"github.com/banshee-data/overlap/internal/camera"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// pixel is a projected LiDAR point in one image.
type pixel struct {
	uv    [2]float64
	point r3.Vec
}

// Compare implements kdtree.Comparable.
func (p pixel) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.uv[d] - c.(pixel).uv[d]
}

// Dims implements kdtree.Comparable.
func (p pixel) Dims() int { return 2 }

// Distance implements kdtree.Comparable as squared Euclidean distance.
func (p pixel) Distance(c kdtree.Comparable) float64 {
	q := c.(pixel)
	du, dv := p.uv[0]-q.uv[0], p.uv[1]-q.uv[1]
	return du*du + dv*dv
}

// pixels implements kdtree.Interface.
type pixels []pixel

func (p pixels) Index(i int) kdtree.Comparable { return p[i] }
func (p pixels) Len() int                      { return len(p) }
func (p pixels) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p pixels) Pivot(d kdtree.Dim) int {
	return plane{pixels: p, dim: d}.Pivot()
}

// plane sorts pixels along one dimension for median partitioning.
type plane struct {
	pixels
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.pixels[i].uv[p.dim] < p.pixels[j].uv[p.dim] }
func (p plane) Swap(i, j int)      { p.pixels[i], p.pixels[j] = p.pixels[j], p.pixels[i] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.pixels = p.pixels[start:end]
	return p
}

// Correspondence is an image pixel and the LiDAR point that projects to it.
type Correspondence struct {
	Pixel [2]float64
	Point r3.Vec
}

// PixelIndex finds the LiDAR point projected nearest to an image location.
type PixelIndex struct {
	camera string
	tree   *kdtree.Tree
	n      int
}

// Camera returns the image camera id.
func (ix *PixelIndex) Camera() string { return ix.camera }

// Len returns the number of indexed points.
func (ix *PixelIndex) Len() int { return ix.n }

// Nearest returns the correspondence nearest to (u, v) among those within
// window pixels on both axes.
func (ix *PixelIndex) Nearest(u, v, window float64) (Correspondence, bool) {
	if ix.n == 0 || window <= 0 {
		return Correspondence{}, false
	}
	q := pixel{uv: [2]float64{u, v}}
	keep := kdtree.NewDistKeeper(2 * window * window)
	ix.tree.NearestSet(keep, q)

	var cands []kdtree.ComparableDist
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(pixel)
		if math.Abs(p.uv[0]-u) <= window && math.Abs(p.uv[1]-v) <= window {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		return Correspondence{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Dist < cands[j].Dist })
	best := cands[0].Comparable.(pixel)
	return Correspondence{Pixel: best.uv, Point: best.point}, true
}

// Correspondences projects the cloud into every rig camera and indexes the
// in-image pixels per camera.
func Correspondences(rig *camera.Rig, cloud []r3.Vec) (map[string]*PixelIndex, error) {
	projectors, err := camera.NewProjectors(rig)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*PixelIndex, rig.Len())
	for _, cam := range rig.IDs() {
		pr := projectors[cam]
		var pts pixels
		for _, x := range cloud {
			u, v, ok := pr.Project(x)
			if ok && pr.InImage(u, v) {
				pts = append(pts, pixel{uv: [2]float64{u, v}, point: x})
			}
		}
		ix := &PixelIndex{camera: cam, n: len(pts)}
		if len(pts) > 0 {
			ix.tree = kdtree.New(pts, false)
		}
		out[cam] = ix
	}
	return out, nil
}
