package geometry

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func TestLocalAxis_PerpendicularInPlane(t *testing.T) {
	p1 := r3.Vec{X: 0, Y: 0, Z: 0}
	p2 := r3.Vec{X: 0, Y: 10, Z: 5}

	axis, err := LocalAxis(p1, p2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// up × (0,10,0) points towards -X.
	if math.Abs(axis.X+1) > eps || math.Abs(axis.Y) > eps || axis.Z != 0 {
		t.Errorf("axis = %v, want (-1, 0, 0)", axis)
	}
	if math.Abs(r3.Norm(axis)-1) > eps {
		t.Errorf("axis is not unit length: %v", r3.Norm(axis))
	}
}

func TestLocalAxis_IgnoresZ(t *testing.T) {
	a, err := LocalAxis(r3.Vec{}, r3.Vec{X: 3, Y: 4, Z: 0})
	if err != nil {
		t.Fatal(err)
	}
	b, err := LocalAxis(r3.Vec{Z: -7}, r3.Vec{X: 3, Y: 4, Z: 100})
	if err != nil {
		t.Fatal(err)
	}
	if r3.Norm(r3.Sub(a, b)) > eps {
		t.Errorf("axes differ: %v vs %v", a, b)
	}
}

func TestLocalAxis_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 r3.Vec
	}{
		{"coincident", r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 2, Z: 3}},
		{"vertical", r3.Vec{X: 1, Y: 2, Z: 0}, r3.Vec{X: 1, Y: 2, Z: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LocalAxis(tt.p1, tt.p2)
			if !errors.Is(err, ErrDegenerateEdge) {
				t.Errorf("err = %v, want ErrDegenerateEdge", err)
			}
		})
	}
}

func TestSignedDistanceAlongAxis(t *testing.T) {
	p1 := r3.Vec{X: 0, Y: 0}
	p2 := r3.Vec{X: 10, Y: 0}

	tests := []struct {
		name  string
		point r3.Vec
		want  float64
	}{
		{"on line", r3.Vec{X: 4, Y: 0, Z: 2}, 0},
		{"left of edge", r3.Vec{X: 4, Y: 2}, 2},
		{"right of edge", r3.Vec{X: 4, Y: -3, Z: -1}, -3},
		{"beyond p2", r3.Vec{X: 40, Y: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedDistanceAlongAxis(tt.point, p1, p2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("distance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignedDistanceAlongAxis_SwapFlipsSign(t *testing.T) {
	p1 := r3.Vec{X: 1, Y: 1, Z: 0.1}
	p2 := r3.Vec{X: 30, Y: 80, Z: 40}
	points := []r3.Vec{
		{X: 5, Y: 2, Z: 0},
		{X: -3, Y: 12, Z: 4},
		{X: 15.5, Y: 40.5, Z: -2},
	}
	for _, p := range points {
		a, err := SignedDistanceAlongAxis(p, p1, p2)
		if err != nil {
			t.Fatal(err)
		}
		b, err := SignedDistanceAlongAxis(p, p2, p1)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(a+b) > 1e-9 {
			t.Errorf("point %v: d(p1,p2)=%v d(p2,p1)=%v, want opposite signs", p, a, b)
		}
	}
}

func TestWithinSegment(t *testing.T) {
	p1 := r3.Vec{X: 0, Y: 0, Z: 0}
	p2 := r3.Vec{X: 0, Y: 10, Z: 0}

	tests := []struct {
		name  string
		point r3.Vec
		want  bool
	}{
		{"start", p1, true},
		{"end", p2, true},
		{"middle offset", r3.Vec{X: 3, Y: 5, Z: 1}, true},
		{"behind start", r3.Vec{X: 0, Y: -0.1}, false},
		{"past end", r3.Vec{X: 1, Y: 10.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinSegment(tt.point, p1, p2); got != tt.want {
				t.Errorf("WithinSegment(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestWithinSegment_ZeroLength(t *testing.T) {
	p := r3.Vec{X: 1, Y: 1, Z: 1}
	if WithinSegment(p, p, p) {
		t.Error("zero-length segment should contain nothing")
	}
}

func TestDynamicThreshold(t *testing.T) {
	p1 := r3.Vec{}
	p2 := r3.Vec{Y: 100}
	base, max := 0.03, 0.27

	tests := []struct {
		name  string
		point r3.Vec
		want  float64
	}{
		{"at near end", p1, base},
		{"at far end", p2, max},
		{"halfway", r3.Vec{Y: 50}, base + (max-base)*0.5},
		{"beyond far end", r3.Vec{Y: 200}, base + (max-base)*2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DynamicThreshold(p1, p2, tt.point, base, max)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("threshold = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDynamicThreshold_ZeroLength(t *testing.T) {
	p := r3.Vec{X: 2}
	if got := DynamicThreshold(p, p, r3.Vec{X: 9}, 0.1, 0.5); got != 0.1 {
		t.Errorf("threshold = %v, want base", got)
	}
}
