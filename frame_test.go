package mapgl

import (
	"math"
	"testing"
)

func testFrame(w, h int, center Coordinate, resolution, rotation float64) *FrameState {
	fs := &FrameState{
		ViewState: ViewState{
			Center:     center,
			Resolution: resolution,
			Rotation:   rotation,
			Projection: WebMercator(),
		},
		Width:  w,
		Height: h,
	}
	CalculateMatrices2D(fs)
	return fs
}

func TestCalculateMatrices2DCenter(t *testing.T) {
	fs := testFrame(800, 600, Coord(1000, 2000), 2.5, 0)

	// The view center lands on the viewport center.
	px := fs.CoordinateToPixel.ApplyCoordinate(Coord(1000, 2000))
	if math.Abs(px.X-400) > 1e-9 || math.Abs(px.Y-300) > 1e-9 {
		t.Errorf("center projects to (%v, %v), want (400, 300)", px.X, px.Y)
	}

	// One resolution unit east is one pixel right; north is up on screen.
	px = fs.CoordinateToPixel.ApplyCoordinate(Coord(1000+2.5, 2000+2.5))
	if math.Abs(px.X-401) > 1e-9 || math.Abs(px.Y-299) > 1e-9 {
		t.Errorf("offset projects to (%v, %v), want (401, 299)", px.X, px.Y)
	}
}

func TestCalculateMatrices2DInverse(t *testing.T) {
	tests := []struct {
		name     string
		rotation float64
	}{
		{"unrotated", 0},
		{"rotated", math.Pi / 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := testFrame(1024, 768, Coord(-300, 450), 10, tt.rotation)
			c := Coord(123, 456)
			back := fs.PixelToCoordinate.ApplyPixel(fs.CoordinateToPixel.ApplyCoordinate(c))
			if math.Abs(back.X-c.X) > 1e-6 || math.Abs(back.Y-c.Y) > 1e-6 {
				t.Errorf("transforms are not mutually inverse: %v -> %v", c, back)
			}
		})
	}
}

func TestLayerStateVisibleAtResolution(t *testing.T) {
	tests := []struct {
		name  string
		state LayerState
		res   float64
		want  bool
	}{
		{"visible no bounds", LayerState{Visible: true, Opacity: 1}, 10, true},
		{"hidden", LayerState{Visible: false, Opacity: 1}, 10, false},
		{"zero opacity", LayerState{Visible: true, Opacity: 0}, 10, false},
		{"below min", LayerState{Visible: true, Opacity: 1, MinResolution: 5}, 4, false},
		{"at min", LayerState{Visible: true, Opacity: 1, MinResolution: 5}, 5, true},
		{"below max", LayerState{Visible: true, Opacity: 1, MaxResolution: 20}, 19, true},
		{"at max", LayerState{Visible: true, Opacity: 1, MaxResolution: 20}, 20, false},
		{"unlimited max", LayerState{Visible: true, Opacity: 1}, 1e9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.VisibleAtResolution(tt.res); got != tt.want {
				t.Errorf("VisibleAtResolution(%v) = %v, want %v", tt.res, got, tt.want)
			}
		})
	}
}

func TestPostRenderOrder(t *testing.T) {
	fs := &FrameState{}
	var got []int
	fs.PostRender(func() { got = append(got, 1) })
	fs.PostRender(func() { got = append(got, 2) })
	fs.PostRender(func() { got = append(got, 3) })

	fs.RunPostRender()

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("post-render order = %v, want [1 2 3]", got)
	}

	// A second run is a no-op; the queue drained.
	fs.RunPostRender()
	if len(got) != 3 {
		t.Errorf("queue not cleared, ran %d tasks", len(got))
	}
}

func TestPostRenderAppendDuringRun(t *testing.T) {
	// A task appended while the queue drains belongs to the next frame.
	fs := &FrameState{}
	ran := 0
	fs.PostRender(func() {
		ran++
		fs.PostRender(func() { ran += 10 })
	})

	fs.RunPostRender()
	if ran != 1 {
		t.Fatalf("first drain ran %d, want 1", ran)
	}
	fs.RunPostRender()
	if ran != 11 {
		t.Errorf("second drain ran total %d, want 11", ran)
	}
}
