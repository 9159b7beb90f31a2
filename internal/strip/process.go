package strip

import (
	"math"
	"sort"

	"github.com/banshee-data/overlap/internal/config"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// kernelTruncate is the Gaussian kernel half-width in standard deviations.
const kernelTruncate = 4.0

// gaussianKernel returns normalised weights for offsets -r..r.
func gaussianKernel(sigma float64) []float64 {
	r := int(math.Ceil(kernelTruncate * sigma))
	n := distuv.Normal{Mu: 0, Sigma: sigma}
	w := make([]float64, 2*r+1)
	for k := -r; k <= r; k++ {
		w[k+r] = n.Prob(float64(k))
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// reflect maps an out-of-range index back into [0, n) by mirroring about
// the sequence ends (d c b a | a b c d | d c b a).
func reflect(j, n int) int {
	for j < 0 || j >= n {
		if j < 0 {
			j = -j - 1
		}
		if j >= n {
			j = 2*n - j - 1
		}
	}
	return j
}

func convolve(values, kernel []float64) []float64 {
	r := len(kernel) / 2
	out := make([]float64, len(values))
	for i := range values {
		var acc float64
		for k, w := range kernel {
			acc += w * values[reflect(i+k-r, len(values))]
		}
		out[i] = acc
	}
	return out
}

// Smooth applies a 1D Gaussian filter to the X and Y sequences of points
// independently, in their current order. The first and last points are
// kept unchanged. A non-positive sigma returns a copy.
func Smooth(points []Point, sigma float64) []Point {
	out := append([]Point(nil), points...)
	if sigma <= 0 || len(points) < 3 {
		return out
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	kernel := gaussianKernel(sigma)
	xs, ys = convolve(xs, kernel), convolve(ys, kernel)

	for i := 1; i < len(out)-1; i++ {
		out[i].X, out[i].Y = xs[i], ys[i]
	}
	return out
}

// maxSegmentFill caps the synthetic points inserted between two original
// points.
const maxSegmentFill = 1 << 16

// Interpolate densifies points so that consecutive points are at most
// yInterval apart vertically. Synthetic points are placed every yInterval
// from each original point towards the next, with X interpolated linearly.
// Original points are kept, so the first and last points are preserved.
// A non-positive yInterval returns a copy. Segments that would need more than
// maxSegmentFill points, or that span a non-finite Y, get at most that many.
func Interpolate(points []Point, yInterval float64) []Point {
	if !(yInterval > 0) || len(points) < 2 {
		return append([]Point(nil), points...)
	}

	out := make([]Point, 0, len(points))
	for i := 0; i < len(points)-1; i++ {
		p0, p1 := points[i], points[i+1]
		out = append(out, p0)

		dy := p1.Y - p0.Y
		if dy == 0 || math.IsNaN(dy) || math.IsInf(dy, 0) {
			continue
		}
		n := maxSegmentFill
		if ratio := math.Abs(dy) / yInterval; ratio <= maxSegmentFill {
			n = int(math.Ceil(ratio)) - 1
		}
		step := math.Copysign(yInterval, dy)
		for k := 1; k <= n; k++ {
			y := p0.Y + float64(k)*step
			x := p0.X + (p1.X-p0.X)*(y-p0.Y)/dy
			out = append(out, Point{X: x, Y: y, Synthetic: true})
		}
	}
	return append(out, points[len(points)-1])
}

// SortVertical returns a copy of points stably sorted by ascending Y.
func SortVertical(points []Point) []Point {
	out := append([]Point(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}

// Options controls Process.
type Options struct {
	// SortVertical orders each strip by Y before smoothing.
	SortVertical bool
	// Sigma is the Gaussian standard deviation in points; 0 disables.
	Sigma float64
	// YInterval is the densification spacing in pixels; 0 disables.
	YInterval float64
}

// OptionsFromTuning builds Options from a loaded TuningConfig.
func OptionsFromTuning(cfg *config.TuningConfig) Options {
	return Options{
		SortVertical: cfg.GetSortStripsVertical(),
		Sigma:        cfg.GetSmoothSigma(),
		YInterval:    cfg.GetInterpolateYInterval(),
	}
}

// Process applies sorting, smoothing and interpolation to every strip of
// img and returns a new Image. The input is not modified.
func Process(img Image, opts Options) Image {
	out := make(Image, len(img))
	for id, pts := range img {
		if opts.SortVertical {
			pts = SortVertical(pts)
		}
		pts = Smooth(pts, opts.Sigma)
		out[id] = Interpolate(pts, opts.YInterval)
	}
	return out
}

// ProcessFrame applies Process to every image of f.
func ProcessFrame(f Frame, opts Options) Frame {
	out := make(Frame, len(f))
	for cam, img := range f {
		out[cam] = Process(img, opts)
	}
	return out
}
