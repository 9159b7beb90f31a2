package testutil

import (
	"math"
	"net/http"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestRig(t *testing.T) {
	rig := Rig(t)
	if rig.Len() != 3 {
		t.Fatalf("rig has %d cameras, want 3", rig.Len())
	}
	want := []string{"cam01", "cam03", "cam05"}
	for i, id := range rig.IDs() {
		if id != want[i] {
			t.Errorf("IDs()[%d] = %s, want %s", i, id, want[i])
		}
	}
}

func TestRing(t *testing.T) {
	pts := Ring(10, 1, 90)
	if len(pts) != 4 {
		t.Fatalf("len = %d, want 4", len(pts))
	}
	for _, p := range pts {
		if d := math.Hypot(p.X, p.Y); math.Abs(d-10) > 1e-9 {
			t.Errorf("radius %f, want 10", d)
		}
		if p.Z != 1 {
			t.Errorf("height %f, want 1", p.Z)
		}
	}
}

func TestAtHeading(t *testing.T) {
	p := AtHeading(90, 2, 0)
	if r3.Norm(r3.Sub(p, r3.Vec{Y: 2})) > 1e-9 {
		t.Errorf("AtHeading(90, 2, 0) = %v", p)
	}
}

func TestHTTPHelpers(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	req := NewTestRequest(http.MethodGet, "/api/overlap/relation")
	if req.URL.Path != "/api/overlap/relation" {
		t.Errorf("path = %s", req.URL.Path)
	}
}
