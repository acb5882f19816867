// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/cache"
)

// mapOptions holds MapRenderer configuration collected from Options.
type mapOptions struct {
	device        DeviceHandle
	pipelines     PipelineFactory
	icons         *cache.IconCache
	surface       SurfaceBinding
	requestRender func()
}

// Option configures a MapRenderer.
type Option func(*mapOptions)

// WithDevice supplies the host GPU device handle.
func WithDevice(device DeviceHandle) Option {
	return func(o *mapOptions) { o.device = device }
}

// WithPipelineFactory supplies the backend that builds pipelines for
// compiled styles.
func WithPipelineFactory(factory PipelineFactory) Option {
	return func(o *mapOptions) { o.pipelines = factory }
}

// WithIconCache supplies the shared icon cache for image symbols.
func WithIconCache(icons *cache.IconCache) Option {
	return func(o *mapOptions) { o.icons = icons }
}

// WithSurface attaches the surface binding used for layer-at-pixel
// queries.
func WithSurface(surface SurfaceBinding) Option {
	return func(o *mapOptions) { o.surface = surface }
}

// WithRequestRender installs the hook invoked when asynchronous work
// invalidates rendered output. It must be safe to call from any
// goroutine.
func WithRequestRender(fn func()) Option {
	return func(o *mapOptions) { o.requestRender = fn }
}

// MapRenderer draws a frame's layers in order and answers map-wide
// queries. It owns the renderer registry and composes the optional
// surface binding; it is not a surface itself.
//
// MapRenderer runs on the render/query goroutine.
type MapRenderer struct {
	registry *Registry
	surface  SurfaceBinding
	icons    *cache.IconCache
}

// NewMapRenderer creates a map renderer.
func NewMapRenderer(opts ...Option) *MapRenderer {
	var o mapOptions
	for _, opt := range opts {
		opt(&o)
	}
	env := Env{Device: o.device, Pipelines: o.pipelines, Icons: o.icons}
	return &MapRenderer{
		registry: NewRegistry(env, o.requestRender),
		surface:  o.surface,
		icons:    o.icons,
	}
}

// Registry returns the renderer registry.
func (m *MapRenderer) Registry() *Registry {
	return m.registry
}

// RenderFrame draws the frame's layers bottom to top, prunes renderers
// for departed layers, schedules icon cache expiry, and drains the
// post-render queue. fs.CoordinateToPixel must already be derived
// (CalculateMatrices2D).
//
// A failing layer is logged and skipped; the remaining layers still
// draw and the post-render pass still runs. The first failure is
// returned after the frame completes.
func (m *MapRenderer) RenderFrame(fs *mapgl.FrameState) error {
	var firstErr error
	resolution := fs.ViewState.Resolution
	for i := range fs.LayerStates {
		ls := &fs.LayerStates[i]
		if !ls.VisibleAtResolution(resolution) {
			continue
		}
		renderer := m.registry.Get(ls.Layer)
		if renderer == nil {
			continue
		}
		if !renderer.PrepareFrame(fs) {
			continue
		}
		if err := renderer.RenderFrame(fs); err != nil {
			mapgl.Logger().Warn("layer render failed", "layer", ls.Layer.UID(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("render layer %d: %w", ls.Layer.UID(), err)
			}
		}
	}

	m.registry.PruneUnused(fs)
	if m.icons != nil {
		fs.PostRender(m.icons.Expire)
	}
	fs.RunPostRender()
	return firstErr
}

// ForEachFeatureAtCoordinate hit-tests the frame's layers topmost
// first. For sources on a horizontally wrapping projection the query
// coordinate is first shifted into the projection extent, so features
// across the antimeridian seam are still found. The traversal stops at
// the first non-nil callback result; a miss returns nil.
func (m *MapRenderer) ForEachFeatureAtCoordinate(coord mapgl.Coordinate, fs *mapgl.FrameState, hitTolerance float64, cb QueryCallback, filter LayerFilter) any {
	managed := make(map[uint64]bool, len(fs.LayerStates))
	for i := range fs.LayerStates {
		if l := fs.LayerStates[i].Layer; l != nil && fs.LayerStates[i].Managed {
			managed[l.UID()] = true
		}
	}

	wrapped := coord
	if proj := fs.ViewState.Projection; proj != nil && proj.Global {
		wrapped = proj.WrapX(coord)
	}

	resolution := fs.ViewState.Resolution
	for i := len(fs.LayerStates) - 1; i >= 0; i-- {
		ls := &fs.LayerStates[i]
		if !ls.VisibleAtResolution(resolution) {
			continue
		}
		layer := ls.Layer
		if layer == nil {
			continue
		}
		if filter != nil && !filter(layer) {
			continue
		}
		src := layer.Source()
		if src == nil {
			continue
		}
		renderer := m.registry.Get(layer)
		if renderer == nil {
			continue
		}

		queryCoord := coord
		if src.WrapX() {
			queryCoord = wrapped
		}
		result := renderer.ForEachFeatureAtCoordinate(queryCoord, fs, hitTolerance, func(f *mapgl.Feature) any {
			return cb(f, layer, managed[layer.UID()])
		})
		if result != nil {
			return result
		}
	}
	return nil
}

// hasFeature is the sentinel result of HasFeatureAtCoordinate's
// always-true callback.
var hasFeature any = true

// HasFeatureAtCoordinate reports whether any feature is hit at the
// coordinate.
func (m *MapRenderer) HasFeatureAtCoordinate(coord mapgl.Coordinate, fs *mapgl.FrameState, hitTolerance float64, filter LayerFilter) bool {
	result := m.ForEachFeatureAtCoordinate(coord, fs, hitTolerance,
		func(*mapgl.Feature, mapgl.Layer, bool) any { return hasFeature },
		filter)
	return result != nil
}

// ForEachLayerAtPixel delegates the pixel query to the surface binding.
// Without a surface the query is a miss.
func (m *MapRenderer) ForEachLayerAtPixel(px mapgl.Pixel, fs *mapgl.FrameState, cb LayerCallback, filter LayerFilter) any {
	if m.surface == nil {
		return nil
	}
	return m.surface.ForEachLayerAtPixel(px, fs, cb, filter)
}

// Dispose releases every renderer in the registry.
func (m *MapRenderer) Dispose() {
	m.registry.RemoveAll()
}
