package monitor

import (
	"fmt"
	"image"
	"image/color"

	"github.com/banshee-data/overlap/internal/detection"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/strip"
	"github.com/fogleman/gg"
)

var (
	queryInside  = color.RGBA{R: 0x35, G: 0xb7, B: 0x79, A: 0xff}
	queryOutside = color.RGBA{R: 0xe0, G: 0x3c, B: 0x31, A: 0xff}
)

// Overlay describes an annotated camera image.
type Overlay struct {
	// Background is drawn first when non-nil; otherwise the canvas is
	// Width x Height black.
	Background image.Image
	Width      int
	Height     int
	Image      strip.Image
	// Result, when non-nil, marks its query points green when they lie in
	// an overlap and red otherwise.
	Result *query.Result
	// Located detections are boxed, green when they overlap another camera.
	Located []detection.Located
}

// DrawOverlay renders the strips of o as polylines with their ids and the
// optional query verdict.
func DrawOverlay(o Overlay) (image.Image, error) {
	w, h := o.Width, o.Height
	if o.Background != nil {
		b := o.Background.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid overlay size %dx%d", w, h)
	}

	dc := gg.NewContext(w, h)
	if o.Background != nil {
		dc.DrawImage(o.Background, 0, 0)
	} else {
		dc.SetColor(color.Black)
		dc.Clear()
	}

	ids := o.Image.IDs()
	colors := generateColors(len(ids))
	for i, id := range ids {
		pts := o.Image[id]
		if len(pts) == 0 {
			continue
		}
		dc.SetColor(colors[i])
		dc.SetLineWidth(2)
		dc.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()
		for _, p := range pts {
			dc.DrawCircle(p.X, p.Y, 2)
			dc.Fill()
		}
		dc.DrawStringAnchored(id.String(), pts[0].X, pts[0].Y, 0.5, -0.5)
	}

	for _, l := range o.Located {
		c := queryOutside
		if len(l.Cameras()) > 0 {
			c = queryInside
		}
		b := l.Box
		dc.SetColor(c)
		dc.SetLineWidth(2)
		dc.DrawRectangle(b.X1, b.Y1, b.X2-b.X1, b.Y2-b.Y1)
		dc.Stroke()
		dc.DrawString(fmt.Sprintf("%s %v", l.Label, l.Cameras()), b.X1, b.Y1-4)
	}

	if o.Result != nil {
		for _, pr := range o.Result.Points {
			c := queryOutside
			if len(pr.Cameras) > 0 {
				c = queryInside
			}
			dc.SetColor(c)
			dc.DrawCircle(pr.Point[0], pr.Point[1], 6)
			dc.Fill()
		}
		if o.Result.Mode == query.ModeBox && len(o.Result.Points) == 4 {
			dc.SetColor(color.White)
			dc.SetLineWidth(1)
			first := o.Result.Points[0].Point
			dc.MoveTo(first[0], first[1])
			for _, pr := range o.Result.Points[1:] {
				dc.LineTo(pr.Point[0], pr.Point[1])
			}
			dc.ClosePath()
			dc.Stroke()
		}
		dc.SetColor(color.White)
		dc.DrawString(fmt.Sprintf("camera %s overlaps %v", o.Result.Camera, o.Result.Cameras), 10, 20)
	}
	return dc.Image(), nil
}

// SaveOverlay renders o and writes it as a PNG to path.
func SaveOverlay(path string, o Overlay) error {
	img, err := DrawOverlay(o)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}
