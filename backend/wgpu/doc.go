// Package wgpu is the hal-backed drawing backend. It turns compiled
// styles into render pipelines (WGSL compiled through naga to SPIR-V),
// owns the offscreen render target, and implements render.PipelineFactory
// and render.SurfaceBinding for the map renderer.
//
// All calls run on the render goroutine. Draw submissions are
// synchronous: each Draw encodes one pass, submits it and waits on a
// fence, which keeps buffer reuse safe without per-frame allocation
// tracking.
package wgpu
