package layer

import (
	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/render"
	"github.com/gogpu/mapgl/style"
)

// Option configures a PointsLayer.
type Option func(*PointsLayer)

// WithOpacity sets the layer opacity in [0, 1]. Default 1.
func WithOpacity(opacity float64) Option {
	return func(l *PointsLayer) { l.opacity = opacity }
}

// WithVisible sets the initial visibility. Default visible.
func WithVisible(visible bool) Option {
	return func(l *PointsLayer) { l.visible = visible }
}

// WithZIndex sets the draw-order index.
func WithZIndex(z int) Option {
	return func(l *PointsLayer) { l.zIndex = z }
}

// WithExtent restricts rendering to an area in map units.
func WithExtent(extent mapgl.Extent) Option {
	return func(l *PointsLayer) { l.extent = &extent }
}

// WithMinResolution sets the smallest resolution (inclusive) at which
// the layer is visible.
func WithMinResolution(res float64) Option {
	return func(l *PointsLayer) { l.minResolution = res }
}

// WithMaxResolution sets the resolution (exclusive) above which the
// layer is hidden. Zero means unlimited.
func WithMaxResolution(res float64) Option {
	return func(l *PointsLayer) { l.maxResolution = res }
}

// PointsLayer renders the features of a VectorSource as point symbols.
//
// The symbol style compiles once at construction; a malformed style
// fails New with a *style.StyleError rather than surfacing mid-frame.
// Beyond the fixed options, arbitrary application properties live in a
// side-table with explicit observer registration (Set/Get/Observe).
type PointsLayer struct {
	uid    uint64
	source *VectorSource
	style  *style.CompiledStyle

	opacity       float64
	visible       bool
	zIndex        int
	extent        *mapgl.Extent
	minResolution float64
	maxResolution float64

	props        map[string]any
	observers    map[string]map[int]func(any)
	nextObserver int
}

var (
	_ mapgl.Layer             = (*PointsLayer)(nil)
	_ render.RendererProducer = (*PointsLayer)(nil)
)

// New creates a points layer over a source with a symbol style.
func New(source *VectorSource, desc style.SymbolDescriptor, opts ...Option) (*PointsLayer, error) {
	compiled, err := style.Compile(desc)
	if err != nil {
		return nil, err
	}

	l := &PointsLayer{
		uid:       mapgl.NewUID(),
		source:    source,
		style:     compiled,
		opacity:   1,
		visible:   true,
		props:     make(map[string]any),
		observers: make(map[string]map[int]func(any)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// UID returns the layer's stable identity key.
func (l *PointsLayer) UID() uint64 {
	return l.uid
}

// Source returns the layer's vector source.
func (l *PointsLayer) Source() mapgl.Source {
	if l.source == nil {
		return nil
	}
	return l.source
}

// VectorSource returns the concrete source for mutation.
func (l *PointsLayer) VectorSource() *VectorSource {
	return l.source
}

// Style returns the compiled symbol style.
func (l *PointsLayer) Style() *style.CompiledStyle {
	return l.style
}

// State returns a snapshot of the layer's placement properties for the
// current frame.
func (l *PointsLayer) State() mapgl.LayerState {
	return mapgl.LayerState{
		Layer:         l,
		Opacity:       l.opacity,
		Visible:       l.visible,
		ZIndex:        l.zIndex,
		Extent:        l.extent,
		MinResolution: l.minResolution,
		MaxResolution: l.maxResolution,
	}
}

// SetOpacity updates the layer opacity.
func (l *PointsLayer) SetOpacity(opacity float64) {
	l.opacity = opacity
}

// SetVisible updates the layer visibility.
func (l *PointsLayer) SetVisible(visible bool) {
	l.visible = visible
}

// CreateRenderer builds the layer's renderer. With a pipeline factory
// in the environment the renderer draws through the backend; without
// one it runs in CPU-only mode.
func (l *PointsLayer) CreateRenderer(env render.Env) (render.LayerRenderer, error) {
	var pipeline render.PointsPipeline
	if env.Pipelines != nil {
		var err error
		pipeline, err = env.Pipelines.NewPointsPipeline(l.style)
		if err != nil {
			return nil, err
		}
	}
	return render.NewPointsRenderer(l, l.style, pipeline, env.Icons), nil
}

// Set stores an application property and notifies that key's
// observers with the new value.
func (l *PointsLayer) Set(key string, value any) {
	l.props[key] = value
	for _, fn := range l.observers[key] {
		fn(value)
	}
}

// Get returns an application property and whether it is set.
func (l *PointsLayer) Get(key string) (any, bool) {
	v, ok := l.props[key]
	return v, ok
}

// Observe registers fn to run whenever the property is Set. The
// returned function removes the registration. Observation is explicit
// and per key; there is no wildcard.
func (l *PointsLayer) Observe(key string, fn func(any)) (remove func()) {
	obs := l.observers[key]
	if obs == nil {
		obs = make(map[int]func(any))
		l.observers[key] = obs
	}
	id := l.nextObserver
	l.nextObserver++
	obs[id] = fn
	return func() {
		delete(obs, id)
	}
}
