// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/style"
)

// pointsLayer builds a fakeLayer whose renderer is a real
// PointsRenderer in CPU-only mode, styled with a 10px circle.
func pointsLayer(t *testing.T, wrapX bool, coords ...mapgl.Coordinate) *fakeLayer {
	t.Helper()
	src := &fakeSource{wrapX: wrapX}
	for _, c := range coords {
		src.add(mapgl.NewFeature(c, nil))
	}
	layer := newFakeLayer(src)
	cs := mustCompile(t, style.Symbol{Size: 10.0})
	layer.buildRenderer = func(env Env) (LayerRenderer, error) {
		return NewPointsRenderer(layer, cs, nil, env.Icons), nil
	}
	return layer
}

func TestQueryTopmostFirst(t *testing.T) {
	bottom := pointsLayer(t, false, mapgl.Coord(0, 0))
	top := pointsLayer(t, false, mapgl.Coord(0, 0))
	m := NewMapRenderer()
	fs := testFrame(bottom.State(), top.State())

	var visited []uint64
	m.ForEachFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0,
		func(f *mapgl.Feature, layer mapgl.Layer, managed bool) any {
			visited = append(visited, layer.UID())
			return nil
		}, nil)

	if len(visited) != 2 {
		t.Fatalf("visited %d features, want 2", len(visited))
	}
	if visited[0] != top.UID() || visited[1] != bottom.UID() {
		t.Error("layers not visited topmost first")
	}
}

func TestQueryStopsAtFirstResult(t *testing.T) {
	bottom := pointsLayer(t, false, mapgl.Coord(0, 0))
	top := pointsLayer(t, false, mapgl.Coord(0, 0))
	m := NewMapRenderer()
	fs := testFrame(bottom.State(), top.State())

	calls := 0
	result := m.ForEachFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0,
		func(f *mapgl.Feature, layer mapgl.Layer, managed bool) any {
			calls++
			return layer.UID()
		}, nil)

	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
	if result != top.UID() {
		t.Errorf("result = %v, want the top layer's UID %d", result, top.UID())
	}
}

func TestQueryWrapX(t *testing.T) {
	proj := mapgl.WebMercator()
	world := proj.WorldWidth()

	// Feature near the dateline; query one world width to the east.
	at := mapgl.Coord(proj.Extent.MaxX-10, 0)
	query := mapgl.Coord(at.X+world, at.Y)

	wrapping := pointsLayer(t, true, at)
	m := NewMapRenderer()
	fs := testFrame(wrapping.State())
	fs.ViewState.Projection = proj

	if !m.HasFeatureAtCoordinate(query, fs, 1, nil) {
		t.Error("wrap-enabled source missed the feature one world away")
	}

	// The same geometry on a non-wrapping source is a miss.
	flat := pointsLayer(t, false, at)
	fs = testFrame(flat.State())
	fs.ViewState.Projection = proj
	if m.HasFeatureAtCoordinate(query, fs, 1, nil) {
		t.Error("non-wrapping source hit a feature one world away")
	}
}

func TestQueryLayerFilter(t *testing.T) {
	a := pointsLayer(t, false, mapgl.Coord(0, 0))
	b := pointsLayer(t, false, mapgl.Coord(0, 0))
	m := NewMapRenderer()
	fs := testFrame(a.State(), b.State())

	result := m.ForEachFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0,
		func(f *mapgl.Feature, layer mapgl.Layer, managed bool) any {
			return layer.UID()
		},
		func(layer mapgl.Layer) bool { return layer.UID() == a.UID() })

	if result != a.UID() {
		t.Errorf("result = %v, want the admitted layer's UID %d", result, a.UID())
	}
}

func TestQueryManagedFlag(t *testing.T) {
	managed := pointsLayer(t, false, mapgl.Coord(0, 0))
	adHoc := pointsLayer(t, false, mapgl.Coord(30, 30))

	managedState := managed.State()
	managedState.Managed = true
	m := NewMapRenderer()
	fs := testFrame(managedState, adHoc.State())

	flags := make(map[uint64]bool)
	m.ForEachFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0,
		func(f *mapgl.Feature, layer mapgl.Layer, isManaged bool) any {
			flags[layer.UID()] = isManaged
			return nil
		}, nil)
	m.ForEachFeatureAtCoordinate(mapgl.Coord(30, 30), fs, 0,
		func(f *mapgl.Feature, layer mapgl.Layer, isManaged bool) any {
			flags[layer.UID()] = isManaged
			return nil
		}, nil)

	if !flags[managed.UID()] {
		t.Error("managed layer reported as unmanaged")
	}
	if flags[adHoc.UID()] {
		t.Error("ad hoc layer reported as managed")
	}
}

func TestQuerySkipsHiddenLayers(t *testing.T) {
	layer := pointsLayer(t, false, mapgl.Coord(0, 0))
	state := layer.State()
	state.Visible = false
	m := NewMapRenderer()
	fs := testFrame(state)

	if m.HasFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0, nil) {
		t.Error("hidden layer was hit-tested")
	}
}

func TestQueryResolutionBounds(t *testing.T) {
	layer := pointsLayer(t, false, mapgl.Coord(0, 0))
	state := layer.State()
	state.MinResolution = 2
	m := NewMapRenderer()

	fs := testFrame(state) // resolution 1, below the minimum
	if m.HasFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0, nil) {
		t.Error("layer hit-tested below its minimum resolution")
	}

	fs.ViewState.Resolution = 2 // minimum is inclusive
	mapgl.CalculateMatrices2D(fs)
	if !m.HasFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 0, nil) {
		t.Error("layer not hit-tested at its minimum resolution")
	}
}

func TestHasFeatureAtCoordinateMiss(t *testing.T) {
	m := NewMapRenderer()
	fs := testFrame()
	if m.HasFeatureAtCoordinate(mapgl.Coord(0, 0), fs, 100, nil) {
		t.Error("hit reported on a frame with no layers")
	}
}

func TestRenderFramePrunesDepartedLayers(t *testing.T) {
	stays := pointsLayer(t, false, mapgl.Coord(0, 0))
	leaves := pointsLayer(t, false, mapgl.Coord(1, 1))
	m := NewMapRenderer()

	fs := testFrame(stays.State(), leaves.State())
	if err := m.RenderFrame(fs); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if m.Registry().Len() != 2 {
		t.Fatalf("registry Len = %d, want 2", m.Registry().Len())
	}

	// Next frame without the second layer: its renderer goes away.
	fs = testFrame(stays.State())
	if err := m.RenderFrame(fs); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if m.Registry().Len() != 1 {
		t.Errorf("registry Len = %d after departure, want 1", m.Registry().Len())
	}
}

// erroringRenderer fails every draw. PrepareFrame succeeds so the
// failure surfaces from RenderFrame itself.
type erroringRenderer struct {
	err error
}

func (r *erroringRenderer) PrepareFrame(*mapgl.FrameState) bool { return true }

func (r *erroringRenderer) RenderFrame(*mapgl.FrameState) error { return r.err }

func (r *erroringRenderer) ForEachFeatureAtCoordinate(mapgl.Coordinate, *mapgl.FrameState, float64, FeatureCallback) any {
	return nil
}

func (r *erroringRenderer) OnChange(func()) (remove func()) { return func() {} }

func (r *erroringRenderer) Dispose() {}

func TestRenderFrameContinuesPastFailingLayer(t *testing.T) {
	drawErr := errors.New("device lost")
	bottom := newFakeLayer(&fakeSource{})
	bottom.buildRenderer = func(Env) (LayerRenderer, error) {
		return &erroringRenderer{err: drawErr}, nil
	}

	top := pointsLayer(t, false, mapgl.Coord(0, 0))
	pipe := &fakePipeline{}
	cs := mustCompile(t, style.Symbol{Size: 10.0})
	top.buildRenderer = func(env Env) (LayerRenderer, error) {
		return NewPointsRenderer(top, cs, pipe, env.Icons), nil
	}

	m := NewMapRenderer()
	fs := testFrame(bottom.State(), top.State())

	drained := false
	fs.PostRender(func() { drained = true })

	err := m.RenderFrame(fs)
	if !errors.Is(err, drawErr) {
		t.Errorf("RenderFrame error = %v, want wrapped %v", err, drawErr)
	}
	if pipe.draws != 1 {
		t.Errorf("top layer draws = %d, want 1: a failing layer must not stop later layers", pipe.draws)
	}
	if !drained {
		t.Error("post-render queue not drained after a layer failure")
	}
}

// fakeSurface implements SurfaceBinding for delegation tests.
type fakeSurface struct {
	layer mapgl.Layer
	calls int
}

func (s *fakeSurface) ForEachLayerAtPixel(px mapgl.Pixel, fs *mapgl.FrameState, cb LayerCallback, filter LayerFilter) any {
	s.calls++
	if filter != nil && !filter(s.layer) {
		return nil
	}
	return cb(s.layer)
}

func (s *fakeSurface) TextureFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

func TestForEachLayerAtPixel(t *testing.T) {
	layer := pointsLayer(t, false, mapgl.Coord(0, 0))
	surface := &fakeSurface{layer: layer}
	m := NewMapRenderer(WithSurface(surface))
	fs := testFrame(layer.State())

	result := m.ForEachLayerAtPixel(mapgl.Px(50, 50), fs,
		func(l mapgl.Layer) any { return l.UID() }, nil)
	if result != layer.UID() {
		t.Errorf("result = %v, want %d", result, layer.UID())
	}
	if surface.calls != 1 {
		t.Errorf("surface called %d times, want 1", surface.calls)
	}

	// Without a surface the query is a miss.
	bare := NewMapRenderer()
	if got := bare.ForEachLayerAtPixel(mapgl.Px(50, 50), fs, func(mapgl.Layer) any { return true }, nil); got != nil {
		t.Errorf("query without surface = %v, want nil", got)
	}
}
