// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/cache"
	"github.com/gogpu/mapgl/style"
)

// quadCorners is the local-space corner sequence of one point quad,
// two triangles in triangle-list order. The corner coordinate doubles
// as the fragment shader's symbol-space position.
var quadCorners = [style.VerticesPerPoint][2]float32{
	{-1, -1}, {1, -1}, {1, 1},
	{-1, -1}, {1, 1}, {-1, 1},
}

// PointsRenderer renders one point layer with a compiled symbol style.
//
// The renderer rebuilds its interleaved vertex stream only when the
// source revision changes, uploads it through the backend pipeline, and
// answers coordinate hit tests from CPU-side state. With a nil pipeline
// it runs in CPU-only mode: PrepareFrame and hit testing work,
// RenderFrame is a no-op.
type PointsRenderer struct {
	layer    mapgl.Layer
	style    *style.CompiledStyle
	pipeline PointsPipeline
	icons    *cache.IconCache

	vertices      []float32
	vertexCount   int
	builtRevision uint64
	hasData       bool

	iconBound     bool
	iconRequested bool

	// listenerMu guards the listener map: icon loads complete on loader
	// goroutines and notify through it.
	listenerMu   sync.Mutex
	listeners    map[int]func()
	nextListener int

	disposed bool
}

var _ LayerRenderer = (*PointsRenderer)(nil)

// NewPointsRenderer creates a renderer for a layer and its compiled
// style. pipeline and icons may be nil (CPU-only mode, no image
// symbols).
func NewPointsRenderer(layer mapgl.Layer, cs *style.CompiledStyle, pipeline PointsPipeline, icons *cache.IconCache) *PointsRenderer {
	return &PointsRenderer{
		layer:     layer,
		style:     cs,
		pipeline:  pipeline,
		icons:     icons,
		listeners: make(map[int]func()),
	}
}

// PrepareFrame rebuilds and re-uploads the vertex stream when the
// source changed. It returns false when the layer has nothing to draw.
func (r *PointsRenderer) PrepareFrame(fs *mapgl.FrameState) bool {
	if r.disposed {
		return false
	}
	src := r.layer.Source()
	if src == nil {
		r.hasData = false
		return false
	}
	features := src.Features()
	if len(features) == 0 {
		r.hasData = false
		return false
	}

	if rev := src.Revision(); !r.hasData || rev != r.builtRevision {
		r.buildVertices(features)
		r.builtRevision = rev
		r.hasData = true
		if r.pipeline != nil {
			if err := r.pipeline.UploadVertices(r.vertices, r.vertexCount); err != nil {
				mapgl.Logger().Warn("vertex upload failed",
					"layer", r.layer.UID(), "error", err)
			}
		}
	}

	r.ensureIcon()
	return true
}

// buildVertices fills the interleaved stream: 6 vertices per feature,
// each carrying position, local corner, and the hoisted attributes in
// schema order.
func (r *PointsRenderer) buildVertices(features []*mapgl.Feature) {
	stride := r.style.FloatsPerVertex()
	need := len(features) * style.VerticesPerPoint * stride
	if cap(r.vertices) < need {
		r.vertices = make([]float32, need)
	}
	r.vertices = r.vertices[:need]
	r.vertexCount = len(features) * style.VerticesPerPoint

	i := 0
	for _, f := range features {
		x := float32(f.Geometry.X)
		y := float32(f.Geometry.Y)
		for _, corner := range quadCorners {
			r.vertices[i] = x
			r.vertices[i+1] = y
			r.vertices[i+2] = corner[0]
			r.vertices[i+3] = corner[1]
			j := i + 4
			for _, name := range r.style.AttributeNames {
				r.vertices[j] = r.style.Attributes[name].Extract(f)
				j++
			}
			i += stride
		}
	}
}

// ensureIcon kicks off the icon load for image symbols and binds the
// texture once the load settles. Change listeners fire when the icon
// becomes available so the view re-renders.
func (r *PointsRenderer) ensureIcon() {
	if r.style.Symbol != style.SymbolImage || r.iconBound || r.icons == nil {
		return
	}

	var icon cache.Icon
	if r.iconRequested {
		var ok bool
		icon, ok = r.icons.Get(r.style.Src)
		if !ok {
			r.iconRequested = false
			return
		}
	} else {
		icon = r.icons.GetOrLoad(r.style.Src, r.notifyChange)
		r.iconRequested = true
	}

	switch icon.State {
	case cache.IconReady:
		if r.pipeline != nil {
			if err := r.pipeline.SetIcon(icon.Image); err != nil {
				mapgl.Logger().Warn("icon bind failed",
					"src", r.style.Src, "error", err)
			}
		}
		r.iconBound = true
	case cache.IconError:
		mapgl.Logger().Warn("icon load failed",
			"src", r.style.Src, "error", icon.Err)
		r.iconBound = true // do not retry every frame
	}
}

// RenderFrame uploads the frame and style uniform blocks and issues the
// draw. It is a no-op without data or without a pipeline.
func (r *PointsRenderer) RenderFrame(fs *mapgl.FrameState) error {
	if r.disposed || !r.hasData || r.pipeline == nil {
		return nil
	}
	if err := r.pipeline.SetFrameUniforms(style.FrameUniformValues(fs)); err != nil {
		return fmt.Errorf("set frame uniforms: %w", err)
	}
	if err := r.pipeline.SetStyleUniforms(r.styleUniformValues(fs)); err != nil {
		return fmt.Errorf("set style uniforms: %w", err)
	}
	if err := r.pipeline.Draw(); err != nil {
		return fmt.Errorf("draw points: %w", err)
	}
	return nil
}

// styleUniformValues packs the style uniform block for a frame using
// the compiled style's offsets.
func (r *PointsRenderer) styleUniformValues(fs *mapgl.FrameState) []float32 {
	block := make([]float32, r.style.UniformBlockSize()/4)
	for _, name := range r.style.UniformNames {
		offset := r.style.UniformOffset(name) / 4
		copy(block[offset:], r.style.Uniforms[name].At(fs))
	}
	return block
}

// pointHit is one hit-test candidate.
type pointHit struct {
	f    *mapgl.Feature
	dist float64
}

// ForEachFeatureAtCoordinate projects each feature to pixel space and
// tests the pixel distance to the query coordinate against the symbol's
// effective half-size plus hitTolerance. Candidates are visited nearest
// first; features at equal distance keep source order. Features listed
// in fs.SkippedFeatures are excluded.
func (r *PointsRenderer) ForEachFeatureAtCoordinate(coord mapgl.Coordinate, fs *mapgl.FrameState, hitTolerance float64, cb FeatureCallback) any {
	if r.disposed {
		return nil
	}
	src := r.layer.Source()
	if src == nil {
		return nil
	}

	px := fs.CoordinateToPixel.ApplyCoordinate(coord)

	var hits []pointHit
	for _, f := range src.Features() {
		if fs.Skipped(f.UID()) {
			continue
		}
		fpx := fs.CoordinateToPixel.ApplyCoordinate(f.Geometry)
		w, h := r.style.SizeAt(fs, f)
		radius := math.Max(w, h)/2 + hitTolerance
		if d := px.Distance(fpx); d <= radius {
			hits = append(hits, pointHit{f: f, dist: d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})
	for _, hit := range hits {
		if result := cb(hit.f); result != nil {
			return result
		}
	}
	return nil
}

// OnChange registers a change listener; see LayerRenderer.OnChange.
func (r *PointsRenderer) OnChange(fn func()) (remove func()) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	if r.listeners == nil {
		return func() {}
	}
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	return func() {
		r.listenerMu.Lock()
		defer r.listenerMu.Unlock()
		delete(r.listeners, id)
	}
}

// notifyChange fires all registered listeners. May run on a loader
// goroutine.
func (r *PointsRenderer) notifyChange() {
	r.listenerMu.Lock()
	fns := make([]func(), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Dispose releases the renderer's pipeline and drops all listeners.
// Safe to call more than once.
func (r *PointsRenderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true

	r.listenerMu.Lock()
	r.listeners = nil
	r.listenerMu.Unlock()

	if r.pipeline != nil {
		r.pipeline.Destroy()
	}
	r.vertices = nil
	r.hasData = false
}
