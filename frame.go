package mapgl

// ViewState is the owning view's position and scale for one frame.
// The rendering core reads it and never mutates it.
type ViewState struct {
	// Center is the map coordinate at the middle of the viewport.
	Center Coordinate

	// Resolution is the size of one pixel in projected units.
	Resolution float64

	// Rotation is the view rotation in radians, counter-clockwise.
	Rotation float64

	// Projection describes the coordinate system of Center and Resolution.
	Projection *Projection
}

// LayerState is the per-frame placement snapshot of one layer.
type LayerState struct {
	// Layer is the layer this state belongs to.
	Layer Layer

	// Opacity is the layer opacity in [0, 1].
	Opacity float64

	// Visible is the layer's visibility flag.
	Visible bool

	// Managed distinguishes layers registered through the view's layer
	// collection from layers attached ad hoc to the view.
	Managed bool

	// ZIndex orders layers for drawing; used by the view when it builds
	// the frame's layer state array.
	ZIndex int

	// Extent optionally restricts rendering to an area in map units.
	Extent *Extent

	// MinResolution is the smallest resolution (inclusive) at which the
	// layer is visible.
	MinResolution float64

	// MaxResolution is the resolution (exclusive) above which the layer
	// is hidden. Zero means unlimited.
	MaxResolution float64
}

// VisibleAtResolution reports whether the layer should be drawn and
// hit-tested at the given view resolution. The minimum bound is inclusive
// and the maximum bound exclusive, so a layer can hand over to another at
// an exact resolution without either double-drawing or a gap.
func (s *LayerState) VisibleAtResolution(resolution float64) bool {
	if !s.Visible || s.Opacity <= 0 {
		return false
	}
	if resolution < s.MinResolution {
		return false
	}
	if s.MaxResolution > 0 && resolution >= s.MaxResolution {
		return false
	}
	return true
}

// FrameState carries everything the rendering core needs for one frame.
// The view builds one per frame; renderers read it and may only append
// post-render tasks.
type FrameState struct {
	// ViewState is the view position and scale for this frame.
	ViewState ViewState

	// Width and Height are the viewport size in pixels.
	Width, Height int

	// LayerStates lists the frame's layers in draw order: index 0 is
	// drawn first (bottom), the last index is drawn on top.
	LayerStates []LayerState

	// CoordinateToPixel transforms map coordinates to viewport pixels.
	// Derived by CalculateMatrices2D; mutually inverse with
	// PixelToCoordinate.
	CoordinateToPixel Matrix

	// PixelToCoordinate transforms viewport pixels to map coordinates.
	PixelToCoordinate Matrix

	// SkippedFeatures holds UIDs of features excluded from hit testing,
	// e.g. features currently being edited.
	SkippedFeatures map[uint64]struct{}

	postRender []func()
}

// PostRender appends a deferred task. Tasks run strictly after this
// frame's draw calls complete and before the next frame begins, in the
// order appended. Tasks are not individually cancellable.
func (fs *FrameState) PostRender(fn func()) {
	fs.postRender = append(fs.postRender, fn)
}

// RunPostRender executes and clears the queued post-render tasks in the
// order they were appended. The view calls this once per frame after all
// draw calls have completed.
func (fs *FrameState) RunPostRender() {
	tasks := fs.postRender
	fs.postRender = nil
	for _, fn := range tasks {
		fn()
	}
}

// Skipped reports whether a feature UID is excluded from hit testing.
func (fs *FrameState) Skipped(uid uint64) bool {
	_, ok := fs.SkippedFeatures[uid]
	return ok
}

// CalculateMatrices2D derives the frame's two transform matrices from its
// view state and size. It is a pure function of the frame state and must
// be called before any hit test or draw in a frame.
func CalculateMatrices2D(fs *FrameState) {
	vs := fs.ViewState
	m := Translate(float64(fs.Width)/2, float64(fs.Height)/2)
	if vs.Resolution != 0 {
		m = m.Multiply(Scale(1/vs.Resolution, -1/vs.Resolution))
	}
	if vs.Rotation != 0 {
		m = m.Multiply(Rotate(-vs.Rotation))
	}
	m = m.Multiply(Translate(-vs.Center.X, -vs.Center.Y))

	fs.CoordinateToPixel = m
	fs.PixelToCoordinate = m.Invert()
}
