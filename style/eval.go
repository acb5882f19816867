package style

import (
	"math"

	"github.com/gogpu/mapgl"
)

// evalCtx carries the inputs of CPU-side expression evaluation. The
// feature is nil when evaluating feature-invariant expressions (uniform
// callbacks).
type evalCtx struct {
	fs *mapgl.FrameState
	f  *mapgl.Feature
}

func (c evalCtx) resolution() float64 {
	if c.fs == nil {
		return 0
	}
	return c.fs.ViewState.Resolution
}

// zoom derives a zoom level from the view resolution relative to the
// projection extent, matching the shader-side derivation.
func (c evalCtx) zoom() float64 {
	if c.fs == nil {
		return 0
	}
	return zoomForResolution(c.fs.ViewState)
}

// zoomForResolution converts a view resolution to a zoom level: zoom 0
// shows one world across 256 pixels, each level halves the resolution.
func zoomForResolution(vs mapgl.ViewState) float64 {
	if vs.Projection == nil || vs.Resolution <= 0 {
		return 0
	}
	width := vs.Projection.Extent.Width()
	if width <= 0 {
		return 0
	}
	base := width / 256
	return math.Log2(base / vs.Resolution)
}

// evalNumber evaluates a number- or boolean-typed expression to a float64
// (booleans evaluate to 0 or 1, matching the shader lowering).
func evalNumber(e expr, ctx evalCtx) float64 {
	switch n := e.(type) {
	case numLit:
		return n.v
	case boolLit:
		if n.v {
			return 1
		}
		return 0
	case getAttr:
		if ctx.f == nil {
			return 0
		}
		return ctx.f.Attr(n.name)
	case ctxVar:
		if n.kind == ctxZoom {
			return ctx.zoom()
		}
		return ctx.resolution()
	case *call:
		return evalCall(n, ctx)
	}
	return 0
}

func evalBool(e expr, ctx evalCtx) bool {
	return evalNumber(e, ctx) != 0
}

func evalCall(c *call, ctx evalCtx) float64 {
	switch c.op {
	case "+":
		sum := 0.0
		for _, a := range c.args {
			sum += evalNumber(a, ctx)
		}
		return sum
	case "*":
		prod := 1.0
		for _, a := range c.args {
			prod *= evalNumber(a, ctx)
		}
		return prod
	case "-":
		return evalNumber(c.args[0], ctx) - evalNumber(c.args[1], ctx)
	case "/":
		return evalNumber(c.args[0], ctx) / evalNumber(c.args[1], ctx)
	case "%":
		return math.Mod(evalNumber(c.args[0], ctx), evalNumber(c.args[1], ctx))
	case "^":
		return math.Pow(evalNumber(c.args[0], ctx), evalNumber(c.args[1], ctx))
	case "clamp":
		return clampf(evalNumber(c.args[0], ctx), evalNumber(c.args[1], ctx), evalNumber(c.args[2], ctx))
	case "stretch":
		v := evalNumber(c.args[0], ctx)
		lo := evalNumber(c.args[1], ctx)
		hi := evalNumber(c.args[2], ctx)
		outLo := evalNumber(c.args[3], ctx)
		outHi := evalNumber(c.args[4], ctx)
		if hi == lo {
			return outLo
		}
		t := (clampf(v, lo, hi) - lo) / (hi - lo)
		return outLo + t*(outHi-outLo)
	case "==":
		return boolVal(evalNumber(c.args[0], ctx) == evalNumber(c.args[1], ctx))
	case "!=":
		return boolVal(evalNumber(c.args[0], ctx) != evalNumber(c.args[1], ctx))
	case "<":
		return boolVal(evalNumber(c.args[0], ctx) < evalNumber(c.args[1], ctx))
	case "<=":
		return boolVal(evalNumber(c.args[0], ctx) <= evalNumber(c.args[1], ctx))
	case ">":
		return boolVal(evalNumber(c.args[0], ctx) > evalNumber(c.args[1], ctx))
	case ">=":
		return boolVal(evalNumber(c.args[0], ctx) >= evalNumber(c.args[1], ctx))
	case "!":
		return boolVal(!evalBool(c.args[0], ctx))
	case "all":
		for _, a := range c.args {
			if !evalBool(a, ctx) {
				return 0
			}
		}
		return 1
	case "any":
		for _, a := range c.args {
			if evalBool(a, ctx) {
				return 1
			}
		}
		return 0
	case "case":
		for i := 0; i+1 < len(c.args); i += 2 {
			if evalBool(c.args[i], ctx) {
				return evalNumber(c.args[i+1], ctx)
			}
		}
		return evalNumber(c.args[len(c.args)-1], ctx)
	case "interpolate":
		return evalInterpolateNumber(c, ctx)
	}
	return 0
}

func evalInterpolateNumber(c *call, ctx evalCtx) float64 {
	t := evalNumber(c.args[0], ctx)
	result := evalNumber(c.args[2], ctx)
	for i := 3; i+1 < len(c.args); i += 2 {
		prevIn := evalNumber(c.args[i-2], ctx)
		in := evalNumber(c.args[i], ctx)
		out := evalNumber(c.args[i+1], ctx)
		ratio := clampf((t-prevIn)/(in-prevIn), 0, 1)
		result += ratio * (out - result)
	}
	return result
}

// evalColor evaluates a color-typed expression.
func evalColor(e expr, ctx evalCtx) mapgl.RGBA {
	switch n := e.(type) {
	case colorLit:
		return n.v
	case *call:
		switch n.op {
		case "case":
			for i := 0; i+1 < len(n.args); i += 2 {
				if evalBool(n.args[i], ctx) {
					return evalColor(n.args[i+1], ctx)
				}
			}
			return evalColor(n.args[len(n.args)-1], ctx)
		case "interpolate":
			t := evalNumber(n.args[0], ctx)
			result := evalColor(n.args[2], ctx)
			for i := 3; i+1 < len(n.args); i += 2 {
				prevIn := evalNumber(n.args[i-2], ctx)
				in := evalNumber(n.args[i], ctx)
				out := evalColor(n.args[i+1], ctx)
				ratio := clampf((t-prevIn)/(in-prevIn), 0, 1)
				result = result.Lerp(out, ratio)
			}
			return result
		}
	}
	return mapgl.RGBA{}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
