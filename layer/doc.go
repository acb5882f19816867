// Package layer provides concrete map layers and their data sources.
//
// PointsLayer renders point features with a compiled symbol style;
// VectorSource holds the features. Layers satisfy the mapgl.Layer
// contract and expose the render.RendererProducer capability, which the
// rendering core discovers by interface assertion.
//
// Layers and sources are driven by the single render/query goroutine
// and are not safe for concurrent use.
package layer
