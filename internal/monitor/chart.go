package monitor

import (
	"fmt"
	"io"

	"github.com/banshee-data/overlap/internal/strip"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ImageChart describes one camera image to render as an echarts scatter.
type ImageChart struct {
	Camera string
	Width  float64
	Height float64
	Image  strip.Image
	// Query holds optional query points drawn as their own series.
	Query [][2]float64
	// Subtitle is shown under the title, e.g. the run id.
	Subtitle string
}

// RenderImageChart writes an HTML page with one scatter series per strip.
// v is negated so the page reads like the image.
func RenderImageChart(w io.Writer, c ImageChart) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  fmt.Sprintf("Overlap strips %s", c.Camera),
			Theme:      "dark",
			Width:      "1000px",
			Height:     "800px",
			AssetsHost: echartsAssetsPrefix,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Camera %s", c.Camera),
			Subtitle: fmt.Sprintf("%s strips=%d points=%d", c.Subtitle, len(c.Image), c.Image.Len()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: c.Width, Name: "u (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -c.Height, Max: 0, Name: "-v (px)", NameLocation: "middle", NameGap: 35}),
	)

	for _, id := range c.Image.IDs() {
		pts := c.Image[id]
		data := make([]opts.ScatterData, 0, len(pts))
		for _, p := range pts {
			data = append(data, opts.ScatterData{Value: []interface{}{p.X, -p.Y}})
		}
		scatter.AddSeries(id.String(), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}
	if len(c.Query) > 0 {
		data := make([]opts.ScatterData, 0, len(c.Query))
		for _, q := range c.Query {
			data = append(data, opts.ScatterData{Value: []interface{}{q[0], -q[1]}})
		}
		scatter.AddSeries("query", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
