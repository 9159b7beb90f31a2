package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/banshee-data/overlap/internal/boundary"
	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/overlap"
	"github.com/banshee-data/overlap/internal/pipeline"
	"github.com/banshee-data/overlap/internal/strip"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// StripPlotter writes PNG plots of each processed frame under
// outputDir/<sequence>/<frame>/: a top-down view of the 3D strips and one
// plot per camera image with the strips projected into it.
type StripPlotter struct {
	mu        sync.Mutex
	outputDir string
	rig       *camera.Rig
	written   []string
}

var _ pipeline.Observer = (*StripPlotter)(nil)

// NewStripPlotter creates a plotter for rig writing below outputDir.
func NewStripPlotter(outputDir string, rig *camera.Rig) *StripPlotter {
	return &StripPlotter{outputDir: outputDir, rig: rig}
}

// Written returns the paths of the files produced so far.
func (sp *StripPlotter) Written() []string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return append([]string(nil), sp.written...)
}

func (sp *StripPlotter) frameDir(key pipeline.FrameKey) (string, error) {
	dir := filepath.Join(sp.outputDir, key.Sequence, key.Frame)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	return dir, nil
}

func (sp *StripPlotter) record(path string) {
	sp.mu.Lock()
	sp.written = append(sp.written, path)
	sp.mu.Unlock()
}

// OverlapDetected is a no-op; the relation is shown in plot legends.
func (sp *StripPlotter) OverlapDetected(pipeline.FrameKey, overlap.Relation, *overlap.Report) error {
	return nil
}

// StripsExtracted plots the raw strips in the shared XY plane.
func (sp *StripPlotter) StripsExtracted(key pipeline.FrameKey, strips boundary.Strips) error {
	if len(strips) == 0 {
		return nil
	}
	dir, err := sp.frameDir(key)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Boundary Strips (top-down)", key)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	ids := strips.IDs()
	colors := generateColors(len(ids))
	for i, id := range ids {
		pts := make(plotter.XYs, len(strips[id]))
		for j, v := range strips[id] {
			pts[j] = plotter.XY{X: v.X, Y: v.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = colors[i]
		sc.GlyphStyle.Radius = vg.Points(1.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(id.String(), sc)
	}
	configureLegend(p)

	file := filepath.Join(dir, "strips_topdown.png")
	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return fmt.Errorf("save top-down plot: %w", err)
	}
	sp.record(file)
	return nil
}

// StripsProjected writes one plot per camera image that holds strips.
func (sp *StripPlotter) StripsProjected(key pipeline.FrameKey, frame strip.Frame) error {
	dir, err := sp.frameDir(key)
	if err != nil {
		return err
	}
	for _, cam := range frame.Cameras() {
		img := frame[cam]
		if len(img) == 0 {
			continue
		}
		params, ok := sp.rig.Get(cam)
		if !ok {
			return fmt.Errorf("camera %s not in rig", cam)
		}
		w, h := params.ImageSize()
		file := filepath.Join(dir, fmt.Sprintf("%s_strips.png", cam))
		if err := PlotImage(file, cam, img, w, h); err != nil {
			return fmt.Errorf("camera %s: %w", cam, err)
		}
		sp.record(file)
	}
	return nil
}

// PlotImage saves a plot of the strips of img to file. The Y axis is
// flipped so the plot reads like the image.
func PlotImage(file, cam string, img strip.Image, width, height float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Camera %s - Overlap Strips", cam)
	p.X.Label.Text = "u (px)"
	p.Y.Label.Text = "v (px, top = 0)"
	p.X.Min, p.X.Max = 0, width
	p.Y.Min, p.Y.Max = -height, 0

	ids := img.IDs()
	colors := generateColors(len(ids))
	for i, id := range ids {
		pts := make(plotter.XYs, len(img[id]))
		for j, pt := range img[id] {
			pts[j] = plotter.XY{X: pt.X, Y: -pt.Y}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		points.GlyphStyle.Color = colors[i]
		points.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add(id.String(), line, points)
	}
	configureLegend(p)

	aspect := height / width
	if err := p.Save(10*vg.Inch, vg.Length(10*aspect)*vg.Inch, file); err != nil {
		return fmt.Errorf("save strip plot: %w", err)
	}
	return nil
}

func configureLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// generateColors creates a palette of n distinct colors.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
