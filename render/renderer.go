// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/cache"
	"github.com/gogpu/mapgl/style"
)

// FeatureCallback visits one feature during a per-layer hit test.
// A non-nil return value stops the traversal and becomes its result.
type FeatureCallback func(f *mapgl.Feature) any

// QueryCallback visits one feature during a map-wide hit test. managed
// reports whether the feature's layer is part of the map's managed
// layer collection. A non-nil return value stops the traversal and
// becomes its result.
type QueryCallback func(f *mapgl.Feature, layer mapgl.Layer, managed bool) any

// LayerCallback visits one layer during a pixel query. A non-nil return
// value stops the traversal and becomes its result.
type LayerCallback func(layer mapgl.Layer) any

// LayerFilter restricts a query to layers it returns true for.
// A nil filter admits every layer.
type LayerFilter func(layer mapgl.Layer) bool

// LayerRenderer renders one layer and answers hit tests against it.
//
// Lifecycle: created lazily by the Registry, driven once per frame
// (PrepareFrame then RenderFrame), disposed when its layer leaves the
// map. All methods run on the render/query goroutine.
type LayerRenderer interface {
	// PrepareFrame readies GPU-side state for the frame. It returns
	// false when there is nothing to draw (no source, empty source), in
	// which case RenderFrame is skipped for this frame.
	PrepareFrame(fs *mapgl.FrameState) bool

	// RenderFrame issues the layer's draw calls.
	RenderFrame(fs *mapgl.FrameState) error

	// ForEachFeatureAtCoordinate visits features whose rendered symbol
	// covers the coordinate (within hitTolerance pixels), nearest first.
	// It returns the first non-nil callback result, or nil for a miss.
	// Absent data is a miss, never an error.
	ForEachFeatureAtCoordinate(coord mapgl.Coordinate, fs *mapgl.FrameState, hitTolerance float64, cb FeatureCallback) any

	// OnChange registers a listener fired when asynchronous work (such
	// as an icon load) invalidates previously rendered output. The
	// returned function removes the listener. Listeners may fire from
	// goroutines other than the render goroutine.
	OnChange(fn func()) (remove func())

	// Dispose releases the renderer's resources. Safe to call more
	// than once.
	Dispose()
}

// RendererProducer is the capability a layer implements to take part in
// rendering. Layers without it are skipped each frame. The registry
// discovers it by interface assertion, so the core never depends on
// concrete layer types.
type RendererProducer interface {
	CreateRenderer(env Env) (LayerRenderer, error)
}

// Env bundles what a layer needs to build its renderer. Zero-value
// fields are legal: without a pipeline factory renderers run in
// CPU-only mode (hit testing works, drawing is skipped), and without an
// icon cache image symbols stay unresolved.
type Env struct {
	// Device is the host-supplied GPU device access.
	Device DeviceHandle

	// Pipelines builds backend pipelines for compiled styles.
	Pipelines PipelineFactory

	// Icons is the shared icon cache for image symbols.
	Icons *cache.IconCache
}

// PipelineFactory builds backend pipelines. Implemented by backends
// (see backend/wgpu.Factory).
type PipelineFactory interface {
	NewPointsPipeline(cs *style.CompiledStyle) (PointsPipeline, error)
}

// PointsPipeline is the backend contract for drawing point symbol
// quads. The renderer feeds it the interleaved vertex stream and the
// packed uniform blocks the compiled style describes.
type PointsPipeline interface {
	// UploadVertices replaces the vertex buffer contents.
	UploadVertices(data []float32, vertexCount int) error

	// SetFrameUniforms updates the per-frame uniform block
	// (style.FrameUniformValues layout).
	SetFrameUniforms(values []float32) error

	// SetStyleUniforms updates the style uniform block
	// (CompiledStyle.UniformOffset layout).
	SetStyleUniforms(values []float32) error

	// SetIcon binds the icon texture for image symbols.
	SetIcon(img image.Image) error

	// Draw issues one draw call over the uploaded vertices.
	Draw() error

	// Destroy releases GPU resources. Safe to call more than once.
	Destroy()
}

// SurfaceBinding is the surface-specific half of the query engine.
// Layer-at-pixel queries need color/depth read-back, which only the
// owning surface can do, so the map renderer delegates them here.
type SurfaceBinding interface {
	// ForEachLayerAtPixel visits layers with rendered content at the
	// pixel, topmost first, returning the first non-nil callback result.
	ForEachLayerAtPixel(px mapgl.Pixel, fs *mapgl.FrameState, cb LayerCallback, filter LayerFilter) any

	// TextureFormat is the color format the surface renders into;
	// backends configure their pipelines against it.
	TextureFormat() gputypes.TextureFormat
}
