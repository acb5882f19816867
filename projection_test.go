package mapgl

import (
	"math"
	"testing"
)

func TestProjectionWrapX(t *testing.T) {
	proj := &Projection{
		Code:   "test:wrap",
		Extent: Extent{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90},
		Global: true,
	}
	w := proj.WorldWidth()
	if w != 360 {
		t.Fatalf("WorldWidth() = %v, want 360", w)
	}

	tests := []struct {
		name  string
		x     float64
		wantX float64
	}{
		{"inside", 10, 10},
		{"min edge", -180, -180},
		{"max edge", 180, 180},
		{"one past min", -181, 179},
		{"one past max", 181, -179},
		{"two worlds west", -181 - 360, 179},
		{"two worlds east", 181 + 360, -179},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := proj.WrapX(Coord(tt.x, 42))
			if math.Abs(got.X-tt.wantX) > 1e-9 || got.Y != 42 {
				t.Errorf("WrapX(%v) = (%v, %v), want (%v, 42)", tt.x, got.X, got.Y, tt.wantX)
			}
		})
	}
}

func TestProjectionNoWrap(t *testing.T) {
	proj := &Projection{
		Code:   "test:flat",
		Extent: Extent{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000},
	}
	if proj.WorldWidth() != 0 {
		t.Errorf("non-global WorldWidth() = %v, want 0", proj.WorldWidth())
	}
	c := Coord(-500, 10)
	if got := proj.WrapX(c); got != c {
		t.Errorf("WrapX on non-wrapping projection changed %v to %v", c, got)
	}
}

func TestWebMercator(t *testing.T) {
	p := WebMercator()
	if p.Code != "EPSG:3857" {
		t.Errorf("Code = %q", p.Code)
	}
	if !p.Global {
		t.Error("WebMercator should wrap horizontally")
	}
	if p.Extent.Width() <= 0 || p.Extent.Width() != p.Extent.Height() {
		t.Errorf("unexpected extent %+v", p.Extent)
	}
}
