// Package strip holds boundary strips in image space and the
// post-processing applied to them before queries.
//
// A strip is identified by the camera that owns the frustum edge and the
// edge index: edge 0 marks where the owner's field of view begins in the
// image, edge 1 where it ends. Strip points are appended in extraction
// order; Smooth and Interpolate always return fresh slices.
package strip

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a strip id string cannot be parsed.
var ErrInvalidID = errors.New("invalid strip id")

const idSep = "_strip"

// ID names one strip: the owning camera and the top-edge index (0 or 1).
type ID struct {
	Camera string
	Edge   int
}

// String returns the text form "{camera}_strip{edge}".
func (id ID) String() string {
	return id.Camera + idSep + strconv.Itoa(id.Edge)
}

// ParseID parses the text form produced by String.
func ParseID(s string) (ID, error) {
	i := strings.LastIndex(s, idSep)
	if i <= 0 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	edge, err := strconv.Atoi(s[i+len(idSep):])
	if err != nil || (edge != 0 && edge != 1) {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID{Camera: s[:i], Edge: edge}, nil
}

// MarshalText implements encoding.TextMarshaler so IDs can key JSON maps.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Less orders ids by camera, then edge.
func (id ID) Less(other ID) bool {
	if id.Camera != other.Camera {
		return id.Camera < other.Camera
	}
	return id.Edge < other.Edge
}

// Point is a strip point in image pixel coordinates. Synthetic marks points
// inserted by Interpolate.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Synthetic bool    `json:"synthetic,omitempty"`
}

// Image is the set of strips as seen in one camera image.
type Image map[ID][]Point

// IDs returns the strip ids in sorted order.
func (img Image) IDs() []ID {
	ids := make([]ID, 0, len(img))
	for id := range img {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Cameras returns the sorted ids of the cameras owning at least one strip.
func (img Image) Cameras() []string {
	seen := make(map[string]bool)
	var out []string
	for id := range img {
		if !seen[id.Camera] {
			seen[id.Camera] = true
			out = append(out, id.Camera)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (img Image) Clone() Image {
	out := make(Image, len(img))
	for id, pts := range img {
		out[id] = append([]Point(nil), pts...)
	}
	return out
}

// Len returns the total number of points across all strips.
func (img Image) Len() int {
	n := 0
	for _, pts := range img {
		n += len(pts)
	}
	return n
}

// Frame maps an image camera id to the strips projected into that image.
type Frame map[string]Image

// Cameras returns the sorted image camera ids.
func (f Frame) Cameras() []string {
	out := make([]string, 0, len(f))
	for c := range f {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Nearest returns the index of the point whose Y is closest to y. Ties go
// to the earliest point. It returns -1 for an empty slice.
func Nearest(points []Point, y float64) int {
	best := -1
	bestDist := 0.0
	for i, p := range points {
		d := p.Y - y
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
