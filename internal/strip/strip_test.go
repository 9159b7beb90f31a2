package strip

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/overlap/internal/config"
	"github.com/google/go-cmp/cmp"
)

func TestIDStringAndParse(t *testing.T) {
	tests := []struct {
		text string
		id   ID
	}{
		{"cam08_strip0", ID{Camera: "cam08", Edge: 0}},
		{"cam01_strip1", ID{Camera: "cam01", Edge: 1}},
		{"front_left_strip1", ID{Camera: "front_left", Edge: 1}},
		{"a_strip_b_strip0", ID{Camera: "a_strip_b", Edge: 0}},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.text {
			t.Errorf("%+v.String() = %q, want %q", tt.id, got, tt.text)
		}
		got, err := ParseID(tt.text)
		if err != nil {
			t.Errorf("ParseID(%q): %v", tt.text, err)
			continue
		}
		if got != tt.id {
			t.Errorf("ParseID(%q) = %+v, want %+v", tt.text, got, tt.id)
		}
	}
}

func TestParseID_Invalid(t *testing.T) {
	for _, s := range []string{"", "cam08", "_strip0", "cam08_strip", "cam08_strip2", "cam08_stripx"} {
		if _, err := ParseID(s); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ParseID(%q) error = %v, want ErrInvalidID", s, err)
		}
	}
}

func TestImageJSONKeys(t *testing.T) {
	img := Image{
		{Camera: "cam08", Edge: 0}: {{X: 500, Y: 800}},
	}
	b, err := json.Marshal(img)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"cam08_strip0":[{"x":500,"y":800}]}`
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}

	var back Image
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(img, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImageHelpers(t *testing.T) {
	img := Image{
		{Camera: "cam08", Edge: 1}: {{X: 1, Y: 1}},
		{Camera: "cam03", Edge: 0}: {{X: 2, Y: 2}, {X: 3, Y: 3}},
		{Camera: "cam08", Edge: 0}: {},
	}
	wantIDs := []ID{{"cam03", 0}, {"cam08", 0}, {"cam08", 1}}
	if diff := cmp.Diff(wantIDs, img.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cam03", "cam08"}, img.Cameras()); diff != "" {
		t.Errorf("Cameras mismatch (-want +got):\n%s", diff)
	}
	if img.Len() != 3 {
		t.Errorf("Len() = %d, want 3", img.Len())
	}

	c := img.Clone()
	c[ID{"cam03", 0}][0].X = 99
	if img[ID{"cam03", 0}][0].X != 2 {
		t.Error("Clone shares point storage")
	}
}

func TestNearest(t *testing.T) {
	pts := []Point{{X: 0, Y: 10}, {X: 1, Y: 20}, {X: 2, Y: 30}, {X: 3, Y: 20}}
	tests := []struct {
		y    float64
		want int
	}{
		{0, 0},
		{19, 1},
		{20, 1}, // tie with index 3 goes to the first
		{26, 2},
		{100, 2},
		{15, 0}, // equidistant from 10 and 20
	}
	for _, tt := range tests {
		if got := Nearest(pts, tt.y); got != tt.want {
			t.Errorf("Nearest(%v) = %d, want %d", tt.y, got, tt.want)
		}
	}
	if Nearest(nil, 1) != -1 {
		t.Error("Nearest(nil) should be -1")
	}
}

func TestSmooth_PreservesLengthAndEndpoints(t *testing.T) {
	pts := []Point{{0, 0, false}, {10, 1, false}, {0, 2, false}, {10, 3, false}, {0, 4, false}, {5, 5, false}}
	got := Smooth(pts, 1)
	if len(got) != len(pts) {
		t.Fatalf("len = %d, want %d", len(got), len(pts))
	}
	if got[0] != pts[0] || got[len(got)-1] != pts[len(pts)-1] {
		t.Errorf("endpoints moved: %v .. %v", got[0], got[len(got)-1])
	}
	// The zig-zag is damped.
	if got[1].X >= 10 || got[2].X <= 0 {
		t.Errorf("interior not smoothed: %v", got)
	}
	// The input is untouched.
	if pts[1].X != 10 {
		t.Error("Smooth modified its input")
	}
}

func TestSmooth_LinearIsFixedInInterior(t *testing.T) {
	pts := make([]Point, 20)
	for i := range pts {
		pts[i] = Point{X: 2 * float64(i), Y: float64(i)}
	}
	got := Smooth(pts, 1)
	// Far from the ends a symmetric kernel leaves a line unchanged.
	for i := 5; i < 15; i++ {
		if math.Abs(got[i].X-pts[i].X) > 1e-9 || math.Abs(got[i].Y-pts[i].Y) > 1e-9 {
			t.Errorf("point %d moved: %v -> %v", i, pts[i], got[i])
		}
	}
}

func TestSmooth_Degenerate(t *testing.T) {
	if got := Smooth(nil, 1); len(got) != 0 {
		t.Errorf("Smooth(nil) = %v", got)
	}
	two := []Point{{1, 1, false}, {2, 2, false}}
	if diff := cmp.Diff(two, Smooth(two, 1)); diff != "" {
		t.Errorf("two points changed:\n%s", diff)
	}
	zig := []Point{{0, 0, false}, {10, 1, false}, {0, 2, false}}
	if diff := cmp.Diff(zig, Smooth(zig, 0)); diff != "" {
		t.Errorf("sigma 0 changed points:\n%s", diff)
	}
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(1)
	if len(k) != 9 {
		t.Fatalf("len = %d, want 9", len(k))
	}
	var sum float64
	for _, w := range k {
		sum += w
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("sum = %f, want 1", sum)
	}
	if k[4] <= k[3] || k[3] != k[5] {
		t.Errorf("kernel not symmetric unimodal: %v", k)
	}
}

func TestReflect(t *testing.T) {
	tests := []struct{ j, n, want int }{
		{-1, 5, 0}, {-2, 5, 1}, {5, 5, 4}, {6, 5, 3}, {2, 5, 2}, {-7, 3, 0},
	}
	for _, tt := range tests {
		if got := reflect(tt.j, tt.n); got != tt.want {
			t.Errorf("reflect(%d, %d) = %d, want %d", tt.j, tt.n, got, tt.want)
		}
	}
}

func TestInterpolate(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 5}}
	got := Interpolate(pts, 4)
	want := []Point{
		{X: 0, Y: 0},
		{X: 4, Y: 4, Synthetic: true},
		{X: 8, Y: 8, Synthetic: true},
		{X: 10, Y: 10},
		{X: 10, Y: 6, Synthetic: true},
		{X: 10, Y: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Interpolate mismatch (-want +got):\n%s", diff)
	}
}

func TestInterpolate_PreservesEndpoints(t *testing.T) {
	cases := [][]Point{
		{{X: 1, Y: 1}},
		{{X: 1, Y: 1}, {X: 1, Y: 1}},
		{{X: 3, Y: 100}, {X: 7, Y: 2}, {X: 5, Y: 50}},
	}
	for _, pts := range cases {
		got := Interpolate(pts, 3)
		if got[0] != pts[0] {
			t.Errorf("first point %v, want %v", got[0], pts[0])
		}
		if got[len(got)-1] != pts[len(pts)-1] {
			t.Errorf("last point %v, want %v", got[len(got)-1], pts[len(pts)-1])
		}
	}
	if got := Interpolate(nil, 3); len(got) != 0 {
		t.Errorf("Interpolate(nil) = %v", got)
	}
}

func TestInterpolate_StepBelowFloatResolution(t *testing.T) {
	// At 1e17 adjacent float64 values are 16 apart, so adding 1 to Y is a
	// no-op; points must still be placed by index.
	p0 := Point{X: 0, Y: 1e17}
	p1 := Point{X: 10, Y: 1e17 + 1024}
	got := Interpolate([]Point{p0, p1}, 1)
	if len(got) != 1025 {
		t.Fatalf("len = %d, want 1025", len(got))
	}
	if got[0] != p0 || got[len(got)-1] != p1 {
		t.Errorf("endpoints %v, %v", got[0], got[len(got)-1])
	}
}

func TestInterpolate_BoundedFill(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want int
	}{
		{"capped segment", []Point{{Y: 0}, {Y: 1e12}}, maxSegmentFill + 2},
		{"infinite span", []Point{{Y: 0}, {Y: math.Inf(1)}}, 2},
		{"nan span", []Point{{Y: math.NaN()}, {Y: 4}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.pts, 1e-3); len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
	if got := Interpolate([]Point{{Y: 0}, {Y: 8}}, math.NaN()); len(got) != 2 {
		t.Errorf("NaN interval: len = %d, want 2", len(got))
	}
}

func TestSortVertical(t *testing.T) {
	pts := []Point{{X: 1, Y: 3}, {X: 2, Y: 1}, {X: 3, Y: 3}, {X: 4, Y: 2}}
	got := SortVertical(pts)
	want := []Point{{X: 2, Y: 1}, {X: 4, Y: 2}, {X: 1, Y: 3}, {X: 3, Y: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortVertical mismatch (-want +got):\n%s", diff)
	}
	if pts[0].X != 1 {
		t.Error("SortVertical modified its input")
	}
}

func TestProcess(t *testing.T) {
	id := ID{Camera: "cam08", Edge: 0}
	img := Image{id: {{X: 0, Y: 20}, {X: 0, Y: 0}}}

	got := Process(img, Options{SortVertical: true, YInterval: 10})
	want := []Point{{X: 0, Y: 0}, {X: 0, Y: 10, Synthetic: true}, {X: 0, Y: 20}}
	if diff := cmp.Diff(want, got[id]); diff != "" {
		t.Errorf("Process mismatch (-want +got):\n%s", diff)
	}
	if img[id][0].Y != 20 {
		t.Error("Process modified its input")
	}

	frame := ProcessFrame(Frame{"cam07": img}, Options{})
	if diff := cmp.Diff(img, frame["cam07"]); diff != "" {
		t.Errorf("no-op options changed strips:\n%s", diff)
	}
}

func TestOptionsFromTuning(t *testing.T) {
	got := OptionsFromTuning(config.EmptyTuningConfig())
	want := Options{SortVertical: true, Sigma: 1, YInterval: 0}
	if got != want {
		t.Errorf("OptionsFromTuning = %+v, want %+v", got, want)
	}
}
