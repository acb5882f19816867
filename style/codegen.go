package style

import (
	"strconv"
	"strings"
)

// Fixed shader identifiers. The geometry attributes a_position and
// a_local and the FrameUniforms struct are part of every generated
// program; everything else is derived from the style descriptor.
const (
	frameBindingDecl = "@group(0) @binding(0) var<uniform> frame: FrameUniforms;"
	styleBindingDecl = "@group(0) @binding(1) var<uniform> style: StyleUniforms;"
)

// frameUniformsDecl is the per-frame uniform block shared by every
// generated program. The backend fills it via FrameUniformValues.
const frameUniformsDecl = `struct FrameUniforms {
    transform: vec4<f32>,
    translate: vec2<f32>,
    viewport: vec2<f32>,
    resolution: f32,
    zoom: f32,
}`

// wgslFloat formats a float64 as a WGSL f32 literal. The formatting is
// deterministic so identical expressions always lower to identical text.
func wgslFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// sanitizeAttr maps a feature attribute name to a WGSL identifier suffix.
// Characters outside [A-Za-z0-9_] become '_'.
func sanitizeAttr(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			b.WriteByte(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// attrIdent returns the shader attribute identifier for a feature
// attribute name.
func attrIdent(name string) string {
	return "a_" + sanitizeAttr(name)
}

// emitExpr lowers a type-checked expression to WGSL source. The lowering
// is referentially transparent: the same expression always produces the
// same text.
func emitExpr(e expr) string {
	switch n := e.(type) {
	case numLit:
		return wgslFloat(n.v)
	case boolLit:
		if n.v {
			return "true"
		}
		return "false"
	case colorLit:
		return "vec4<f32>(" + wgslFloat(n.v.R) + ", " + wgslFloat(n.v.G) + ", " +
			wgslFloat(n.v.B) + ", " + wgslFloat(n.v.A) + ")"
	case getAttr:
		return "in." + attrIdent(n.name)
	case ctxVar:
		if n.kind == ctxZoom {
			return "frame.zoom"
		}
		return "frame.resolution"
	case *call:
		return emitCall(n)
	}
	return "0.0"
}

func emitCall(c *call) string {
	switch c.op {
	case "+", "*":
		parts := make([]string, len(c.args))
		for i, a := range c.args {
			parts[i] = emitExpr(a)
		}
		return "(" + strings.Join(parts, " "+c.op+" ") + ")"
	case "-", "/", "%":
		return "(" + emitExpr(c.args[0]) + " " + c.op + " " + emitExpr(c.args[1]) + ")"
	case "^":
		return "pow(" + emitExpr(c.args[0]) + ", " + emitExpr(c.args[1]) + ")"
	case "clamp":
		return "clamp(" + emitExpr(c.args[0]) + ", " + emitExpr(c.args[1]) + ", " + emitExpr(c.args[2]) + ")"
	case "stretch":
		v := emitExpr(c.args[0])
		lo := emitExpr(c.args[1])
		hi := emitExpr(c.args[2])
		outLo := emitExpr(c.args[3])
		outHi := emitExpr(c.args[4])
		return "(" + outLo + " + (clamp(" + v + ", " + lo + ", " + hi + ") - " + lo + ") * (" +
			outHi + " - " + outLo + ") / (" + hi + " - " + lo + "))"
	case "==", "!=", "<", "<=", ">", ">=":
		return "(" + emitExpr(c.args[0]) + " " + c.op + " " + emitExpr(c.args[1]) + ")"
	case "!":
		return "(!" + emitExpr(c.args[0]) + ")"
	case "all", "any":
		join := " && "
		if c.op == "any" {
			join = " || "
		}
		parts := make([]string, len(c.args))
		for i, a := range c.args {
			parts[i] = emitExpr(a)
		}
		return "(" + strings.Join(parts, join) + ")"
	case "case":
		// Fold from the fallback outward so the first matching condition
		// wins, mirroring CPU evaluation order.
		out := emitExpr(c.args[len(c.args)-1])
		for i := len(c.args) - 3; i >= 0; i -= 2 {
			out = "select(" + out + ", " + emitExpr(c.args[i+1]) + ", " + emitExpr(c.args[i]) + ")"
		}
		return out
	case "interpolate":
		// Chained clamped mixes yield piecewise-linear interpolation.
		t := emitExpr(c.args[0])
		out := emitExpr(c.args[2])
		for i := 3; i+1 < len(c.args); i += 2 {
			prevIn := emitExpr(c.args[i-2])
			in := emitExpr(c.args[i])
			stop := emitExpr(c.args[i+1])
			out = "mix(" + out + ", " + stop + ", clamp((" + t + " - " + prevIn +
				") / (" + in + " - " + prevIn + "), 0.0, 1.0))"
		}
		return out
	}
	return "0.0"
}

// fieldSource is how a style field reaches the shader: through a uniform
// or through inline expression code over vertex attributes.
type fieldSource struct {
	// uniform is the uniform name, or "" when the field is data-driven.
	uniform string

	// code is the inline WGSL expression for data-driven fields.
	code string
}

func (f fieldSource) scalar() string {
	if f.uniform != "" {
		return "style." + f.uniform
	}
	return f.code
}

// generate assembles the vertex and fragment shader sources.
func generate(symbol SymbolType, size, color, opacity, rotation, offset fieldSource,
	uniformNames []string, uniformComponents map[string]int, attribNames []string) (vertex, fragment string) {

	var v strings.Builder

	v.WriteString(frameUniformsDecl)
	v.WriteString("\n\n")
	v.WriteString(frameBindingDecl)
	v.WriteString("\n")
	if len(uniformNames) > 0 {
		v.WriteString("\nstruct StyleUniforms {\n")
		for _, name := range uniformNames {
			v.WriteString("    " + name + ": " + wgslType(uniformComponents[name]) + ",\n")
		}
		v.WriteString("}\n\n")
		v.WriteString(styleBindingDecl)
		v.WriteString("\n")
	}

	v.WriteString("\nstruct VertexInput {\n")
	v.WriteString("    @location(0) a_position: vec2<f32>,\n")
	v.WriteString("    @location(1) a_local: vec2<f32>,\n")
	for i, name := range attribNames {
		v.WriteString("    @location(" + strconv.Itoa(2+i) + ") " + attrIdent(name) + ": f32,\n")
	}
	v.WriteString("}\n")

	v.WriteString(`
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_local: vec2<f32>,
    @location(1) v_color: vec4<f32>,
    @location(2) v_opacity: f32,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
`)
	if size.uniform != "" {
		v.WriteString("    let size = style." + size.uniform + ";\n")
	} else {
		v.WriteString("    let size_scalar = " + size.code + ";\n")
		v.WriteString("    let size = vec2<f32>(size_scalar, size_scalar);\n")
	}
	v.WriteString("    let rotation = " + rotation.scalar() + ";\n")
	// Offset is always feature-invariant, so it is always a uniform.
	v.WriteString("    let offset = style." + offset.uniform + ";\n")
	v.WriteString(`    let cos_r = cos(rotation);
    let sin_r = sin(rotation);
    let corner = in.a_local * size * 0.5;
    let rotated = vec2<f32>(corner.x * cos_r - corner.y * sin_r, corner.x * sin_r + corner.y * cos_r);
    let px = vec2<f32>(
        frame.transform.x * in.a_position.x + frame.transform.y * in.a_position.y + frame.translate.x,
        frame.transform.z * in.a_position.x + frame.transform.w * in.a_position.y + frame.translate.y,
    ) + rotated + offset;
    out.position = vec4<f32>(px.x / frame.viewport.x * 2.0 - 1.0, 1.0 - px.y / frame.viewport.y * 2.0, 0.0, 1.0);
    out.v_local = in.a_local;
`)
	v.WriteString("    out.v_color = " + color.scalar() + ";\n")
	v.WriteString("    out.v_opacity = " + opacity.scalar() + ";\n")
	v.WriteString("    return out;\n}\n")

	var f strings.Builder
	if symbol == SymbolImage {
		f.WriteString("@group(1) @binding(0) var icon_texture: texture_2d<f32>;\n")
		f.WriteString("@group(1) @binding(1) var icon_sampler: sampler;\n\n")
	}
	f.WriteString(`struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_local: vec2<f32>,
    @location(1) v_color: vec4<f32>,
    @location(2) v_opacity: f32,
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
`)
	switch symbol {
	case SymbolCircle:
		f.WriteString("    if (length(in.v_local) > 1.0) {\n        discard;\n    }\n")
		f.WriteString("    var color = in.v_color;\n")
	case SymbolImage:
		f.WriteString("    let uv = in.v_local * vec2<f32>(0.5, -0.5) + vec2<f32>(0.5, 0.5);\n")
		f.WriteString("    var color = textureSample(icon_texture, icon_sampler, uv) * in.v_color;\n")
	default: // square
		f.WriteString("    var color = in.v_color;\n")
	}
	f.WriteString(`    let alpha = color.a * in.v_opacity;
    return vec4<f32>(color.rgb * alpha, alpha);
}
`)

	return v.String(), f.String()
}

// wgslType returns the WGSL type for a uniform component count.
func wgslType(components int) string {
	switch components {
	case 1:
		return "f32"
	case 2:
		return "vec2<f32>"
	default:
		return "vec4<f32>"
	}
}
