package wgpu

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mapgl"
)

func TestSPIRVWords(t *testing.T) {
	// SPIR-V magic number 0x07230203 in little-endian byte order.
	b := []byte{0x03, 0x02, 0x23, 0x07, 0xFF, 0x00, 0x00, 0x00}
	words := spirvWords(b)
	if len(words) != 2 {
		t.Fatalf("len(words) = %d, want 2", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("words[0] = %#x, want 0x07230203", words[0])
	}
	if words[1] != 0xFF {
		t.Errorf("words[1] = %#x, want 0xFF", words[1])
	}
}

func TestFloatBytes(t *testing.T) {
	b := floatBytes([]float32{1.0, -2.5})
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	got := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	if got != math.Float32bits(1.0) {
		t.Errorf("first word = %#x, want %#x", got, math.Float32bits(1.0))
	}
	got = uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24
	if got != math.Float32bits(-2.5) {
		t.Errorf("second word = %#x, want %#x", got, math.Float32bits(-2.5))
	}
}

func TestImageRGBAPassthrough(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if got := imageRGBA(src); got != src {
		t.Error("zero-origin RGBA image should pass through unconverted")
	}
}

func TestImageRGBAConverts(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 2, 6, 6))
	src.SetNRGBA(2, 2, color.NRGBA{R: 255, A: 255})

	got := imageRGBA(src)
	if got.Rect.Min != (image.Point{}) {
		t.Errorf("converted image origin = %v, want (0,0)", got.Rect.Min)
	}
	if got.Rect.Dx() != 4 || got.Rect.Dy() != 4 {
		t.Errorf("converted size = %dx%d, want 4x4", got.Rect.Dx(), got.Rect.Dy())
	}
	if c := got.RGBAAt(0, 0); c.R != 255 || c.A != 255 {
		t.Errorf("pixel (0,0) = %v, want opaque red", c)
	}
}

func TestIconBindingResources(t *testing.T) {
	// Texture view and sampler bindings carry raw native handles.
	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: uintptr(0x10)}},
		{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: uintptr(0x20)}},
	}
	view, ok := entries[0].Resource.(gputypes.TextureViewBinding)
	if !ok || view.TextureView != 0x10 {
		t.Errorf("entry 0 resource = %#v, want texture view 0x10", entries[0].Resource)
	}
	sampler, ok := entries[1].Resource.(gputypes.SamplerBinding)
	if !ok || sampler.Sampler != 0x20 {
		t.Errorf("entry 1 resource = %#v, want sampler 0x20", entries[1].Resource)
	}
}

func TestTargetPassLoadOp(t *testing.T) {
	target := &Target{width: 64, height: 64}

	target.BeginFrame()
	if op := target.passLoadOp(); op != gputypes.LoadOpClear {
		t.Errorf("first pass load op = %v, want clear", op)
	}
	if op := target.passLoadOp(); op != gputypes.LoadOpLoad {
		t.Errorf("second pass load op = %v, want load", op)
	}

	// Next frame clears again.
	target.BeginFrame()
	if op := target.passLoadOp(); op != gputypes.LoadOpClear {
		t.Errorf("load op after BeginFrame = %v, want clear", op)
	}
}

func TestTargetFormatAndSize(t *testing.T) {
	target := &Target{width: 320, height: 240}
	if got := target.TextureFormat(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("TextureFormat = %v, want BGRA8Unorm", got)
	}
	w, h := target.Size()
	if w != 320 || h != 240 {
		t.Errorf("Size = %dx%d, want 320x240", w, h)
	}
}

func TestForEachLayerAtPixelOutOfBounds(t *testing.T) {
	target := &Target{width: 100, height: 100}
	fs := &mapgl.FrameState{Width: 100, Height: 100}

	pixels := []mapgl.Pixel{
		mapgl.Px(-1, 50),
		mapgl.Px(50, -1),
		mapgl.Px(100, 50),
		mapgl.Px(50, 100),
	}
	for _, px := range pixels {
		result := target.ForEachLayerAtPixel(px, fs, func(mapgl.Layer) any {
			t.Fatalf("callback should not run for out-of-bounds pixel %v", px)
			return nil
		}, nil)
		if result != nil {
			t.Errorf("result for %v = %v, want nil", px, result)
		}
	}
}
