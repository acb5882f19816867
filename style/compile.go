package style

import (
	"sort"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mapgl"
)

// Uniform describes one shader uniform of a compiled style.
// Exactly one of Constant and Value is set: Constant for literal fields,
// Value for fields that depend on the frame's zoom or resolution.
type Uniform struct {
	// Components is the number of f32 components: 1, 2 or 4.
	Components int

	// Constant holds the fixed value of a literal field.
	Constant []float32

	// Value computes the per-frame value of a zoom/resolution-dependent
	// field. Nil when Constant is set.
	Value func(fs *mapgl.FrameState) []float32
}

// At returns the uniform's value for a frame.
func (u Uniform) At(fs *mapgl.FrameState) []float32 {
	if u.Value != nil {
		return u.Value(fs)
	}
	return u.Constant
}

// Attribute describes one per-point vertex attribute hoisted from a
// data-driven style expression.
type Attribute struct {
	// Format is the attribute's vertex format. Hoisted feature
	// attributes are always single f32 values.
	Format gputypes.VertexFormat

	// ShaderLocation is the attribute's location in the vertex shader.
	ShaderLocation int

	// Extract pulls the attribute value out of a feature for upload.
	Extract func(f *mapgl.Feature) float32
}

// Built-in geometry attribute layout, present in every compiled style
// ahead of the hoisted attributes.
const (
	// builtinFloats is the number of f32 components the built-in
	// attributes occupy per vertex: a_position (2) + a_local (2).
	builtinFloats = 4

	// VerticesPerPoint is the number of vertices the quad expansion
	// emits per point feature.
	VerticesPerPoint = 6
)

// CompiledStyle is the immutable output of Compile: shader sources plus
// the uniform and attribute schemas they reference. Every style
// identifier in the generated source appears in exactly one of Uniforms
// or Attributes; the geometry attributes a_position/a_local and the
// FrameUniforms block are fixed and shared by all programs.
type CompiledStyle struct {
	// Symbol is the validated symbol type.
	Symbol SymbolType

	// Src is the icon source for image symbols, "" otherwise.
	Src string

	// VertexSource and FragmentSource are self-contained WGSL modules.
	VertexSource   string
	FragmentSource string

	// Uniforms maps uniform names to their schema and value source.
	Uniforms map[string]Uniform

	// UniformNames lists the uniform names in shader declaration order.
	UniformNames []string

	// Attributes maps hoisted attribute identifiers (a_...) to their
	// schema. Empty for fully literal styles.
	Attributes map[string]Attribute

	// AttributeNames lists hoisted attribute identifiers in shader
	// location order.
	AttributeNames []string

	size     sizeSpec
	opacity  expr
	rotation expr
}

// sizeSpec retains how the size field was specified, for CPU-side
// evaluation during hit testing.
type sizeSpec struct {
	w, h expr // h == w for scalar sizes
}

// uniformOrder is the fixed declaration order of field uniforms,
// grouped by alignment so the WGSL struct layout is dense. Names absent
// from a particular style are skipped; relative order never changes.
var uniformOrder = []string{"u_color", "u_offset", "u_size", "u_opacity", "u_rotation"}

// Compile translates a symbol descriptor into a compiled style.
// It fails with a *StyleError when the descriptor is malformed: unknown
// symbol type, unknown operator, wrong arity, a type mismatch, or a bad
// image source. On failure no partial CompiledStyle is produced.
func Compile(desc SymbolDescriptor) (*CompiledStyle, error) {
	sym := desc.Symbol
	if !sym.Type.valid() {
		return nil, styleErrorf("symbol", "unknown symbol type %q", string(sym.Type))
	}
	if sym.Type == SymbolImage {
		if err := validateSrc(sym.Src); err != nil {
			return nil, err
		}
	}

	cs := &CompiledStyle{
		Symbol:     sym.Type,
		Uniforms:   make(map[string]Uniform),
		Attributes: make(map[string]Attribute),
	}
	if sym.Type == SymbolImage {
		cs.Src = sym.Src
	}

	sizeSrc, err := cs.compileSize(sym.Size)
	if err != nil {
		return nil, err
	}
	colorSrc, err := cs.compileColor(sym.Color)
	if err != nil {
		return nil, err
	}
	opacitySrc, err := cs.compileScalar("opacity", sym.Opacity, 1, "u_opacity", &cs.opacity)
	if err != nil {
		return nil, err
	}
	rotationSrc, err := cs.compileScalar("rotation", sym.Rotation, 0, "u_rotation", &cs.rotation)
	if err != nil {
		return nil, err
	}
	offsetSrc, err := cs.compileOffset(sym.Offset)
	if err != nil {
		return nil, err
	}

	cs.finishSchemas()

	components := make(map[string]int, len(cs.Uniforms))
	for name, u := range cs.Uniforms {
		components[name] = u.Components
	}
	cs.VertexSource, cs.FragmentSource = generate(sym.Type,
		sizeSrc, colorSrc, opacitySrc, rotationSrc, offsetSrc,
		cs.UniformNames, components, cs.attrSourceNames())

	mapgl.Logger().Debug("compiled symbol style",
		"symbol", string(sym.Type),
		"uniforms", len(cs.Uniforms),
		"attributes", len(cs.Attributes))

	return cs, nil
}

// compileScalar handles a scalar style field: literal, feature-invariant
// expression, or data-driven expression.
func (cs *CompiledStyle) compileScalar(field string, v any, def float64, uniform string, keep *expr) (fieldSource, error) {
	if v == nil {
		v = def
	}
	e, err := parseExpr(field, v, TypeNumber)
	if err != nil {
		return fieldSource{}, err
	}
	*keep = e

	if names := attrNames(e); len(names) > 0 {
		cs.hoistAttributes(names)
		return fieldSource{code: emitExpr(e)}, nil
	}
	cs.addScalarUniform(uniform, e)
	return fieldSource{uniform: uniform}, nil
}

// compileSize handles the size field, which additionally accepts a
// literal 2-vector (width, height).
func (cs *CompiledStyle) compileSize(v any) (fieldSource, error) {
	if v == nil {
		v = 8.0
	}
	if w, h, ok := asVec2(v); ok {
		cs.size = sizeSpec{w: numLit{v: w}, h: numLit{v: h}}
		cs.Uniforms["u_size"] = Uniform{Components: 2, Constant: []float32{float32(w), float32(h)}}
		return fieldSource{uniform: "u_size"}, nil
	}

	e, err := parseExpr("size", v, TypeNumber)
	if err != nil {
		return fieldSource{}, err
	}
	cs.size = sizeSpec{w: e, h: e}

	if names := attrNames(e); len(names) > 0 {
		cs.hoistAttributes(names)
		return fieldSource{code: emitExpr(e)}, nil
	}
	if e.usesContext() {
		cs.Uniforms["u_size"] = Uniform{Components: 2, Value: func(fs *mapgl.FrameState) []float32 {
			s := float32(evalNumber(e, evalCtx{fs: fs}))
			return []float32{s, s}
		}}
	} else {
		s := float32(evalNumber(e, evalCtx{}))
		cs.Uniforms["u_size"] = Uniform{Components: 2, Constant: []float32{s, s}}
	}
	return fieldSource{uniform: "u_size"}, nil
}

// compileColor handles the color field.
func (cs *CompiledStyle) compileColor(v any) (fieldSource, error) {
	if v == nil {
		v = mapgl.White
	}
	e, err := parseExpr("color", v, TypeColor)
	if err != nil {
		return fieldSource{}, err
	}

	if names := attrNames(e); len(names) > 0 {
		cs.hoistAttributes(names)
		return fieldSource{code: emitExpr(e)}, nil
	}
	if e.usesContext() {
		cs.Uniforms["u_color"] = Uniform{Components: 4, Value: func(fs *mapgl.FrameState) []float32 {
			c := evalColor(e, evalCtx{fs: fs})
			return []float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
		}}
	} else {
		c := evalColor(e, evalCtx{})
		cs.Uniforms["u_color"] = Uniform{
			Components: 4,
			Constant:   []float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)},
		}
	}
	return fieldSource{uniform: "u_color"}, nil
}

// compileOffset handles the offset field. Offsets shift whole symbols in
// pixel space, which the quad expansion applies per draw, so data-driven
// offsets are rejected.
func (cs *CompiledStyle) compileOffset(v any) (fieldSource, error) {
	var xe, ye expr
	switch {
	case v == nil:
		xe, ye = numLit{v: 0}, numLit{v: 0}
	default:
		if x, y, ok := asVec2(v); ok {
			xe, ye = numLit{v: x}, numLit{v: y}
			break
		}
		parts, ok := v.([]any)
		if !ok || len(parts) != 2 {
			return fieldSource{}, styleErrorf("offset", "offset must be a 2-element vector")
		}
		var err error
		if xe, err = parseExpr("offset", parts[0], TypeNumber); err != nil {
			return fieldSource{}, err
		}
		if ye, err = parseExpr("offset", parts[1], TypeNumber); err != nil {
			return fieldSource{}, err
		}
		if len(attrNames(xe)) > 0 || len(attrNames(ye)) > 0 {
			return fieldSource{}, styleErrorf("offset", "offset cannot be data-driven")
		}
	}

	if xe.usesContext() || ye.usesContext() {
		cs.Uniforms["u_offset"] = Uniform{Components: 2, Value: func(fs *mapgl.FrameState) []float32 {
			ctx := evalCtx{fs: fs}
			return []float32{float32(evalNumber(xe, ctx)), float32(evalNumber(ye, ctx))}
		}}
	} else {
		ctx := evalCtx{}
		cs.Uniforms["u_offset"] = Uniform{
			Components: 2,
			Constant:   []float32{float32(evalNumber(xe, ctx)), float32(evalNumber(ye, ctx))},
		}
	}
	return fieldSource{uniform: "u_offset"}, nil
}

// addScalarUniform registers a 1-component uniform for a
// feature-invariant scalar expression.
func (cs *CompiledStyle) addScalarUniform(name string, e expr) {
	if e.usesContext() {
		cs.Uniforms[name] = Uniform{Components: 1, Value: func(fs *mapgl.FrameState) []float32 {
			return []float32{float32(evalNumber(e, evalCtx{fs: fs}))}
		}}
		return
	}
	cs.Uniforms[name] = Uniform{
		Components: 1,
		Constant:   []float32{float32(evalNumber(e, evalCtx{}))},
	}
}

// hoistAttributes registers vertex attributes for referenced feature
// attribute names. Locations are assigned later, once all fields are
// compiled, so they depend only on the sorted name set.
func (cs *CompiledStyle) hoistAttributes(names []string) {
	for _, name := range names {
		ident := attrIdent(name)
		if _, ok := cs.Attributes[ident]; ok {
			continue
		}
		attrName := name
		cs.Attributes[ident] = Attribute{
			Format: gputypes.VertexFormatFloat32,
			Extract: func(f *mapgl.Feature) float32 {
				return float32(f.Attr(attrName))
			},
		}
	}
}

// finishSchemas fixes uniform declaration order and attribute locations.
func (cs *CompiledStyle) finishSchemas() {
	cs.UniformNames = cs.UniformNames[:0]
	for _, name := range uniformOrder {
		if _, ok := cs.Uniforms[name]; ok {
			cs.UniformNames = append(cs.UniformNames, name)
		}
	}

	cs.AttributeNames = sortedKeys(cs.Attributes)
	for i, ident := range cs.AttributeNames {
		a := cs.Attributes[ident]
		a.ShaderLocation = 2 + i
		cs.Attributes[ident] = a
	}
}

// attrSourceNames recovers the original feature attribute names in
// location order for code generation.
func (cs *CompiledStyle) attrSourceNames() []string {
	// Attribute identifiers are a_<sanitized-name>; codegen re-derives
	// the identifier, so passing the sanitized suffix round-trips.
	names := make([]string, len(cs.AttributeNames))
	for i, ident := range cs.AttributeNames {
		names[i] = ident[len("a_"):]
	}
	return names
}

// VertexLayout returns the vertex buffer layout of the compiled style:
// the built-in geometry attributes followed by the hoisted feature
// attributes, interleaved in one buffer.
func (cs *CompiledStyle) VertexLayout() gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, 0, 2+len(cs.AttributeNames))
	attrs = append(attrs,
		gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
	)
	offset := uint64(builtinFloats * 4)
	for _, ident := range cs.AttributeNames {
		a := cs.Attributes[ident]
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         offset,
			ShaderLocation: uint32(a.ShaderLocation),
		})
		offset += 4
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// FloatsPerVertex returns the number of f32 values per vertex in the
// interleaved buffer VertexLayout describes.
func (cs *CompiledStyle) FloatsPerVertex() int {
	return builtinFloats + len(cs.AttributeNames)
}

// SizeAt evaluates the symbol's on-screen size in pixels for a feature,
// with the same semantics as the shader. Hit testing uses it to compute
// the effective pick radius.
func (cs *CompiledStyle) SizeAt(fs *mapgl.FrameState, f *mapgl.Feature) (w, h float64) {
	ctx := evalCtx{fs: fs, f: f}
	return evalNumber(cs.size.w, ctx), evalNumber(cs.size.h, ctx)
}

// OpacityAt evaluates the symbol opacity for a feature.
func (cs *CompiledStyle) OpacityAt(fs *mapgl.FrameState, f *mapgl.Feature) float64 {
	return evalNumber(cs.opacity, evalCtx{fs: fs, f: f})
}

// UniformBlockSize returns the byte size of the style uniform block
// under WGSL struct layout rules (each member aligned to its own
// alignment, total size rounded up to 16).
func (cs *CompiledStyle) UniformBlockSize() int {
	size := 0
	for _, name := range cs.UniformNames {
		size = alignUniform(size, cs.Uniforms[name].Components)
		size += cs.Uniforms[name].Components * 4
	}
	return (size + 15) &^ 15
}

// UniformOffset returns the byte offset of a uniform inside the style
// uniform block, mirroring UniformBlockSize's layout.
func (cs *CompiledStyle) UniformOffset(name string) int {
	size := 0
	for _, n := range cs.UniformNames {
		size = alignUniform(size, cs.Uniforms[n].Components)
		if n == name {
			return size
		}
		size += cs.Uniforms[n].Components * 4
	}
	return -1
}

// alignUniform rounds offset up to the WGSL alignment of a member with
// the given component count (f32: 4, vec2: 8, vec4: 16).
func alignUniform(offset, components int) int {
	align := 4
	switch components {
	case 2:
		align = 8
	case 4:
		align = 16
	}
	return (offset + align - 1) &^ (align - 1)
}

// FrameUniformValues packs the FrameUniforms block for a frame: the
// coordinate-to-pixel transform, the viewport size, and the derived
// resolution and zoom. The trailing pad keeps the block a multiple of
// 16 bytes.
func FrameUniformValues(fs *mapgl.FrameState) []float32 {
	m := fs.CoordinateToPixel
	return []float32{
		float32(m.A), float32(m.B), float32(m.D), float32(m.E),
		float32(m.C), float32(m.F),
		float32(fs.Width), float32(fs.Height),
		float32(fs.ViewState.Resolution),
		float32(zoomForResolution(fs.ViewState)),
		0, 0,
	}
}

// asVec2 interprets a literal 2-element numeric vector.
func asVec2(v any) (x, y float64, ok bool) {
	switch vec := v.(type) {
	case []float64:
		if len(vec) == 2 {
			return vec[0], vec[1], true
		}
	case [2]float64:
		return vec[0], vec[1], true
	case []any:
		if len(vec) == 2 {
			a, okA := asNumber(vec[0])
			b, okB := asNumber(vec[1])
			if okA && okB {
				return a, b, true
			}
		}
	}
	return 0, 0, false
}

// sortedKeys returns the sorted keys of an attribute map.
func sortedKeys(m map[string]Attribute) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
