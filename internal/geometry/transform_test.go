package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func yawTransform(deg float64, tx, ty, tz float64) Transform {
	r := deg * math.Pi / 180
	c, s := math.Cos(r), math.Sin(r)
	return Transform{
		c, -s, 0, tx,
		s, c, 0, ty,
		0, 0, 1, tz,
		0, 0, 0, 1,
	}
}

func TestTransformApply(t *testing.T) {
	tr := yawTransform(90, 1, 2, 3)
	got := tr.Apply(r3.Vec{X: 1})
	want := r3.Vec{X: 1, Y: 3, Z: 3}
	if r3.Norm(r3.Sub(got, want)) > 1e-9 {
		t.Errorf("Apply = %v, want %v", got, want)
	}
}

func TestTransformInverse_RoundTrip(t *testing.T) {
	tr := yawTransform(37, -4, 12.5, 1.8)
	inv, err := tr.Inverse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := r3.Vec{X: 3.3, Y: -1, Z: 7}
	back := inv.Apply(tr.Apply(p))
	if r3.Norm(r3.Sub(back, p)) > 1e-9 {
		t.Errorf("round trip = %v, want %v", back, p)
	}
}

func TestTransformInverse_Singular(t *testing.T) {
	var zero Transform
	if _, err := zero.Inverse(); err == nil {
		t.Error("expected error inverting a singular transform")
	}
}

func TestTransformFromRows(t *testing.T) {
	tr, err := TransformFromRows([][]float64{
		{1, 0, 0, 5},
		{0, 1, 0, 6},
		{0, 0, 1, 7},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr[15] != 1 || tr[12] != 0 {
		t.Errorf("bottom row not filled: %v", tr[12:])
	}
	if got := tr.Translation(); got != (r3.Vec{X: 5, Y: 6, Z: 7}) {
		t.Errorf("Translation = %v", got)
	}

	if _, err := TransformFromRows([][]float64{{1, 2, 3, 4}}); err == nil {
		t.Error("expected error for 1 row")
	}
	if _, err := TransformFromRows([][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}); err == nil {
		t.Error("expected error for 3 columns")
	}
}

func TestIsValidTransform(t *testing.T) {
	if !IsValidTransform(Identity()) {
		t.Error("identity should be valid")
	}
	if !IsValidTransform(yawTransform(120, 1, 1, 1)) {
		t.Error("rotation+translation should be valid")
	}
	scaled := Identity()
	scaled[0] = 2
	if IsValidTransform(scaled) {
		t.Error("scaled matrix should be invalid")
	}
	badRow := Identity()
	badRow[13] = 0.5
	if IsValidTransform(badRow) {
		t.Error("bad bottom row should be invalid")
	}
}
