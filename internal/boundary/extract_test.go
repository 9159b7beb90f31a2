package boundary

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/geometry"
	"github.com/banshee-data/overlap/internal/strip"
	"github.com/banshee-data/overlap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func rigEdges(t *testing.T) (*camera.Rig, []Edge) {
	t.Helper()
	rig := testutil.Rig(t)
	frustums, err := camera.BuildFrustums(rig, 0.1, 150)
	require.NoError(t, err)
	edges, err := Edges(frustums)
	require.NoError(t, err)
	return rig, edges
}

// ringCloud samples three rings at radius 10, one every half degree.
func ringCloud() []r3.Vec {
	var pts []r3.Vec
	for _, h := range []float64{-1, 0, 1} {
		pts = append(pts, testutil.Ring(10, h, 0.5)...)
	}
	return pts
}

func TestEdges(t *testing.T) {
	_, edges := rigEdges(t)
	require.Len(t, edges, 6)

	want := []strip.ID{
		{Camera: "cam01", Edge: 0}, {Camera: "cam01", Edge: 1},
		{Camera: "cam03", Edge: 0}, {Camera: "cam03", Edge: 1},
		{Camera: "cam05", Edge: 0}, {Camera: "cam05", Edge: 1},
	}
	for i, e := range edges {
		assert.Equal(t, want[i], e.ID)
	}

	// cam03 faces 30°; its left image border runs along heading 75°.
	far := edges[2].Far
	assert.InDelta(t, 75, math.Atan2(far.Y, far.X)*180/math.Pi, 1e-9)
}

func TestEdges_Degenerate(t *testing.T) {
	_, err := Edges(map[string]camera.Frustum{"cam01": {}})
	assert.True(t, errors.Is(err, geometry.ErrDegenerateEdge), "got %v", err)
}

func TestExtract_RingOnRig(t *testing.T) {
	_, edges := rigEdges(t)
	strips, err := Extract(ringCloud(), edges, DefaultParams())
	require.NoError(t, err)

	// Every edge heading is a multiple of half a degree, so each strip
	// collects one point per ring height and nothing else.
	require.Len(t, strips, 6)
	for _, id := range strips.IDs() {
		assert.Len(t, strips[id], 3, "strip %s", id)
	}
	assert.Equal(t, 18, strips.Len())

	pts := strips[strip.ID{Camera: "cam03", Edge: 0}]
	for i, want := range []float64{-1, 0, 1} {
		assert.InDelta(t, want, pts[i].Z, 1e-12, "insertion order")
		assert.InDelta(t, 75, math.Atan2(pts[i].Y, pts[i].X)*180/math.Pi, 1e-9)
	}
}

func TestExtract_DynamicThreshold(t *testing.T) {
	_, edges := rigEdges(t)
	id := strip.ID{Camera: "cam03", Edge: 0}

	// 0.0873 m off the edge line at 10 m is outside the near threshold,
	// while the same offset at 100 m is inside the loosened threshold.
	nearPoint := testutil.AtHeading(75.5, 10, 0)
	farPoint := testutil.AtHeading(75.05, 100, 0)

	strips, err := Extract([]r3.Vec{nearPoint, farPoint}, edges, DefaultParams())
	require.NoError(t, err)
	require.Len(t, strips[id], 1)
	assert.Equal(t, farPoint, strips[id][0])
}

func TestExtract_BehindCameraIsOutsideSegment(t *testing.T) {
	_, edges := rigEdges(t)
	// Heading 255° is on the infinite line through cam03's left edge but
	// behind the camera.
	strips, err := Extract([]r3.Vec{testutil.AtHeading(255, 10, 0)}, edges, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, strips)
}

func TestExtract_MultipleAssignment(t *testing.T) {
	a := strip.ID{Camera: "a", Edge: 0}
	b := strip.ID{Camera: "b", Edge: 1}
	edges := []Edge{
		{ID: a, Near: r3.Vec{}, Far: r3.Vec{X: 10}},
		{ID: b, Near: r3.Vec{X: 5, Y: -5}, Far: r3.Vec{X: 5, Y: 5}},
	}
	cross := r3.Vec{X: 5}
	strips, err := Extract([]r3.Vec{cross, {X: 2, Y: 0.01}}, edges, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{cross, {X: 2, Y: 0.01}}, strips[a])
	assert.Equal(t, []r3.Vec{cross}, strips[b])
}

func TestExtract_Errors(t *testing.T) {
	_, err := Extract(nil, nil, Params{BaseThreshold: 1, MaxThreshold: 0.5})
	assert.Error(t, err)

	bad := []Edge{{ID: strip.ID{Camera: "x"}, Near: r3.Vec{Z: 0}, Far: r3.Vec{Z: 5}}}
	_, err = Extract([]r3.Vec{{X: 0.01}}, bad, DefaultParams())
	assert.True(t, errors.Is(err, geometry.ErrDegenerateEdge))
}

func TestParamsFromTuning(t *testing.T) {
	assert.Equal(t, DefaultParams(), ParamsFromTuning(config.EmptyTuningConfig()))
}
