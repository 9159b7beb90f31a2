package query

import (
	"fmt"
	"strings"

	"github.com/banshee-data/overlap/internal/strip"
)

// Match records the strip point nearest to a query point and whether the
// directional test passed.
type Match struct {
	Strip   strip.ID    `json:"strip"`
	Nearest strip.Point `json:"nearest"`
	Pass    bool        `json:"pass"`
}

// PointResult is the outcome for one query point.
type PointResult struct {
	Point       [2]float64 `json:"point"`
	Matches     []Match    `json:"matches,omitempty"`
	Cameras     []string   `json:"cameras"`
	Description string     `json:"description"`
}

// StripVerdict is the tally for one candidate strip.
type StripVerdict struct {
	ID       strip.ID `json:"id"`
	Failures int      `json:"failures"`
	Valid    bool     `json:"valid"`
}

// Result is the outcome of one query.
type Result struct {
	Camera string         `json:"camera"`
	Mode   Mode           `json:"mode"`
	Points []PointResult  `json:"points"`
	Strips []StripVerdict `json:"strips,omitempty"`
	// Proven lists cameras whose strips all contain the query.
	Proven []string `json:"proven"`
	// Assumed lists overlapping cameras with no strip data in the image.
	Assumed []string `json:"assumed"`
	// Cameras is the sorted union of Proven and Assumed.
	Cameras []string `json:"cameras"`
}

// Overlaps reports whether the query lies in any overlap, proven or assumed.
func (r *Result) Overlaps() bool {
	return len(r.Cameras) > 0
}

// Overlap is the per-point entry of Mapping.
type Overlap struct {
	Camera  string
	Cameras []string
}

// Mapping returns query point → (query camera, overlapping cameras).
func (r *Result) Mapping() map[[2]float64]Overlap {
	out := make(map[[2]float64]Overlap, len(r.Points))
	for _, p := range r.Points {
		out[p.Point] = Overlap{Camera: r.Camera, Cameras: p.Cameras}
	}
	return out
}

// Describe returns the human-readable verdict for one query point. In box
// mode the verdict belongs to the whole box and point names the corner.
func Describe(camera string, mode Mode, point [2]float64, proven, assumed []string) string {
	subject := "point"
	if mode == ModeBox {
		subject = "box"
	}
	if len(proven) == 0 && len(assumed) == 0 {
		return fmt.Sprintf("This %s does not lie within an overlapping region within Camera %s", subject, camera)
	}
	names := make([]string, 0, len(proven)+len(assumed))
	names = append(names, proven...)
	for _, c := range assumed {
		names = append(names, c+" (assumed)")
	}
	region := "region"
	if len(names) > 1 {
		region = "regions"
	}
	at := fmt.Sprintf("the point [%g %g]", point[0], point[1])
	if mode == ModeBox {
		at = fmt.Sprintf("the box with corner [%g %g]", point[0], point[1])
	}
	return fmt.Sprintf("Within Camera %s %s lies within the following overlap %s of %s",
		camera, at, region, strings.Join(names, ", "))
}
