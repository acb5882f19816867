package mapgl

import "sync/atomic"

// uidCounter backs NewUID. Starts at 0 so the first UID handed out is 1;
// 0 is reserved as "no object".
var uidCounter atomic.Uint64

// NewUID returns a process-unique identifier. It is used as the stable
// identity key for layers and features.
//
// NewUID is safe for concurrent use.
func NewUID() uint64 {
	return uidCounter.Add(1)
}

// Feature is a point feature: a geometry plus a bag of attributes that
// style expressions can reference.
type Feature struct {
	uid        uint64
	Geometry   Coordinate
	Attributes map[string]any
}

// NewFeature creates a feature at the given coordinate.
// attrs may be nil for features without attributes.
func NewFeature(geometry Coordinate, attrs map[string]any) *Feature {
	return &Feature{
		uid:        NewUID(),
		Geometry:   geometry,
		Attributes: attrs,
	}
}

// UID returns the feature's stable identity key.
func (f *Feature) UID() uint64 {
	return f.uid
}

// Attr returns a named attribute as a float64.
// Numeric attribute types are converted; anything else yields 0.
func (f *Feature) Attr(name string) float64 {
	v, ok := f.Attributes[name]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Source supplies features to a layer's renderer.
//
// Implementations are expected to be used from the single render/query
// goroutine; they do not need to be safe for concurrent use.
type Source interface {
	// Features returns the current feature set in a stable order.
	// The returned slice must not be mutated by the caller.
	Features() []*Feature

	// Revision returns a counter that increases whenever the feature set
	// changes. Renderers use it to decide when to re-upload buffers.
	Revision() uint64

	// WrapX reports whether queries against this source should use the
	// wrap-adjusted coordinate for projections that wrap horizontally.
	WrapX() bool
}

// Layer is the contract the rendering core consumes from each map layer.
//
// Concrete layers live in the layer package. Optional capabilities (such
// as producing a renderer) are discovered by interface assertion, so the
// core never depends on concrete layer types.
type Layer interface {
	// UID returns the layer's stable identity key.
	UID() uint64

	// Source returns the layer's data source, or nil if it has none.
	// A layer without a source is skipped for drawing and hit testing.
	Source() Source

	// State returns a snapshot of the layer's placement properties.
	State() LayerState
}
