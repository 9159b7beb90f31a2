// Package testutil provides shared test fixtures: synthetic camera rigs and
// point clouds with known geometry, plus small HTTP assertion helpers.
//
// The standard rig places three level cameras at the shared-frame origin:
//
//	cam01  yaw  90°  covers headings  45°..135°
//	cam03  yaw  30°  covers headings -15°..75°
//	cam05  yaw 270°  covers headings 225°..315°
//
// Every camera has a 90° horizontal field of view (fx = cx = 500), so cam01
// and cam03 overlap between 45° and 75° and cam05 overlaps neither.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/banshee-data/overlap/internal/camera"
	"gonum.org/v1/gonum/spatial/r3"
)

// Intrinsics shared by every fixture camera: a 1000x800 image.
var Intrinsics = camera.Intrinsics{Fx: 500, Fy: 500, Cx: 500, Cy: 400}

// Mount height of the fixture cameras above the shared-frame origin.
const MountHeight = 0.0

// Yaws of the standard rig cameras in degrees.
var Yaws = map[string]float64{
	"cam01": 90,
	"cam03": 30,
	"cam05": 270,
}

// Camera returns a fixture camera at the origin facing yawDeg.
func Camera(id string, yawDeg float64) camera.Params {
	return camera.Params{
		ID:          id,
		Intrinsics:  Intrinsics,
		CamToShared: camera.LevelMount(yawDeg, r3.Vec{Z: MountHeight}),
	}
}

// Rig builds the standard three-camera rig.
func Rig(t testing.TB) *camera.Rig {
	t.Helper()
	return RigFromYaws(t, Yaws)
}

// RigFromYaws builds a rig of fixture cameras from id → yaw, ordered by id.
func RigFromYaws(t testing.TB, yaws map[string]float64) *camera.Rig {
	t.Helper()
	ids := make([]string, 0, len(yaws))
	for id := range yaws {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cams := make([]camera.Params, 0, len(ids))
	for _, id := range ids {
		cams = append(cams, Camera(id, yaws[id]))
	}
	rig, err := camera.NewRig(cams...)
	if err != nil {
		t.Fatalf("build rig: %v", err)
	}
	return rig
}

// Ring returns points on a horizontal circle of the given radius and
// height, one every stepDeg degrees of heading starting at 0°.
func Ring(radius, height, stepDeg float64) []r3.Vec {
	n := int(math.Round(360 / stepDeg))
	out := make([]r3.Vec, 0, n)
	for i := 0; i < n; i++ {
		h := float64(i) * stepDeg * math.Pi / 180
		out = append(out, r3.Vec{X: radius * math.Cos(h), Y: radius * math.Sin(h), Z: height})
	}
	return out
}

// AtHeading returns the point at the given heading, radius and height.
func AtHeading(headingDeg, radius, height float64) r3.Vec {
	h := headingDeg * math.Pi / 180
	return r3.Vec{X: radius * math.Cos(h), Y: radius * math.Sin(h), Z: height}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
