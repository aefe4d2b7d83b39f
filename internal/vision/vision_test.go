package vision_test

import (
	"testing"

	"rollcall/internal/vision"
)

func TestIoU(t *testing.T) {
	cases := []struct {
		name   string
		a, b   vision.BoundingBox
		expect float64
	}{
		{
			name:   "identical",
			a:      vision.BoundingBox{X: 10, Y: 10, Width: 100, Height: 100},
			b:      vision.BoundingBox{X: 10, Y: 10, Width: 100, Height: 100},
			expect: 1.0,
		},
		{
			name:   "disjoint",
			a:      vision.BoundingBox{X: 0, Y: 0, Width: 50, Height: 50},
			b:      vision.BoundingBox{X: 100, Y: 100, Width: 50, Height: 50},
			expect: 0,
		},
		{
			name:   "half overlap horizontally",
			a:      vision.BoundingBox{X: 0, Y: 0, Width: 100, Height: 100},
			b:      vision.BoundingBox{X: 50, Y: 0, Width: 100, Height: 100},
			expect: 50.0 / 150.0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.a.IoU(tc.b)
			if diff := got - tc.expect; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("IoU = %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestCenterDistanceSq(t *testing.T) {
	a := vision.BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}
	b := vision.BoundingBox{X: 30, Y: 40, Width: 10, Height: 10}
	if got := a.CenterDistanceSq(b); got != 2500 {
		t.Fatalf("CenterDistanceSq = %d, want 2500", got)
	}
}

func TestAreaOfDegenerateBox(t *testing.T) {
	if got := (vision.BoundingBox{Width: -5, Height: 10}).Area(); got != 0 {
		t.Fatalf("expected zero area for degenerate box, got %d", got)
	}
}
