// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/mapgl"
)

// registryEntry pairs a renderer with the unsubscribe function of its
// change subscription.
type registryEntry struct {
	renderer    LayerRenderer
	unsubscribe func()
}

// Registry maps layers to their renderers by layer UID.
//
// Renderers are created lazily on first Get via the layer's
// RendererProducer capability and disposed when their layer leaves the
// map. Insertions happen synchronously during Get; removals are always
// deferred to the post-render queue so a renderer is never torn down in
// the middle of the frame that still draws it.
//
// Registry methods run on the render/query goroutine.
type Registry struct {
	env           Env
	entries       map[uint64]*registryEntry
	requestRender func()
}

// NewRegistry creates a registry. requestRender is invoked whenever any
// renderer reports a change (an icon finished loading); it must be safe
// to call from any goroutine and may be nil.
func NewRegistry(env Env, requestRender func()) *Registry {
	return &Registry{
		env:           env,
		entries:       make(map[uint64]*registryEntry),
		requestRender: requestRender,
	}
}

// Get returns the renderer for a layer, creating and caching it on
// first use. It returns nil when the layer cannot produce a renderer
// (no RendererProducer capability, or creation failed); callers skip
// the layer for this frame.
func (r *Registry) Get(layer mapgl.Layer) LayerRenderer {
	if layer == nil {
		return nil
	}
	if e, ok := r.entries[layer.UID()]; ok {
		return e.renderer
	}

	producer, ok := layer.(RendererProducer)
	if !ok {
		return nil
	}
	renderer, err := producer.CreateRenderer(r.env)
	if err != nil {
		mapgl.Logger().Warn("renderer creation failed",
			"layer", layer.UID(), "error", err)
		return nil
	}

	unsubscribe := renderer.OnChange(r.onRendererChange)
	r.entries[layer.UID()] = &registryEntry{
		renderer:    renderer,
		unsubscribe: unsubscribe,
	}
	return renderer
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// onRendererChange propagates any renderer change as a whole-view
// render request.
func (r *Registry) onRendererChange() {
	if r.requestRender != nil {
		r.requestRender()
	}
}

// remove tears down one entry. The entry leaves the map before Dispose
// runs, so a re-entrant Get during disposal creates a fresh renderer
// instead of observing a half-disposed one. Unsubscribe runs first so a
// disposal-triggered notification cannot request a render.
func (r *Registry) remove(uid uint64) {
	e, ok := r.entries[uid]
	if !ok {
		return
	}
	delete(r.entries, uid)
	e.unsubscribe()
	e.renderer.Dispose()
}

// RemoveAll disposes every renderer immediately.
func (r *Registry) RemoveAll() {
	for uid := range r.entries {
		r.remove(uid)
	}
}

// PruneUnused schedules disposal of renderers whose layer is absent
// from the frame's layer set. Disposal runs as a post-render task, so
// renderers stay valid for the remainder of the current frame.
func (r *Registry) PruneUnused(fs *mapgl.FrameState) {
	inFrame := make(map[uint64]struct{}, len(fs.LayerStates))
	for i := range fs.LayerStates {
		if fs.LayerStates[i].Layer != nil {
			inFrame[fs.LayerStates[i].Layer.UID()] = struct{}{}
		}
	}

	var stale []uint64
	for uid := range r.entries {
		if _, ok := inFrame[uid]; !ok {
			stale = append(stale, uid)
		}
	}
	if len(stale) == 0 {
		return
	}

	fs.PostRender(func() {
		for _, uid := range stale {
			r.remove(uid)
		}
	})
}
