// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render is the map rendering core: per-layer renderers, the
// renderer registry, and the composed map renderer with its coordinate
// and pixel query engine.
//
// The package draws nothing by itself. Layers produce renderers through
// the RendererProducer capability; renderers push geometry and uniforms
// through a PointsPipeline supplied by a backend (see backend/wgpu).
// Hosts integrate by providing a DeviceHandle and, for pixel queries, a
// SurfaceBinding.
//
// Unless documented otherwise, everything in this package is driven by
// a single render/query goroutine; none of it is safe for concurrent
// use. Change notifications are the one exception: they may fire from
// loader goroutines, so the render-request hook handed to the registry
// must be safe to call from any goroutine.
package render
