package style

import (
	"net/url"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/gogpu/mapgl"
)

// SymbolType identifies the shape drawn for each point.
type SymbolType string

// Supported symbol types.
const (
	// SymbolCircle draws a filled circle (an ellipse for 2-vector sizes).
	SymbolCircle SymbolType = "circle"

	// SymbolSquare draws a filled axis-aligned square before rotation.
	SymbolSquare SymbolType = "square"

	// SymbolImage samples an icon texture loaded from Symbol.Src.
	SymbolImage SymbolType = "image"
)

// valid reports whether the symbol type is one the compiler understands.
func (t SymbolType) valid() bool {
	switch t {
	case SymbolCircle, SymbolSquare, SymbolImage:
		return true
	}
	return false
}

// SymbolDescriptor is the immutable input of the style compiler.
type SymbolDescriptor struct {
	Symbol Symbol
}

// Symbol describes how to render one point.
//
// Size, Color, Opacity, Offset and Rotation each hold either a literal or
// an expression tree. Expressions are slices whose first element is the
// operator name: []any{"get", "population"}, []any{"*", ...}. Literals are
// Go numbers, bools, color strings ("#33AAFF", "tomato"), mapgl.RGBA
// values, or 2-/4-element numeric slices.
//
// A nil field takes its default: size 8, color white, opacity 1,
// offset (0, 0), rotation 0.
type Symbol struct {
	// Type selects the symbol shape. Unknown types are rejected at
	// compile time, not at draw time.
	Type SymbolType

	// Size is the symbol size in pixels: a scalar, a 2-element vector
	// (width, height), or a scalar expression.
	Size any

	// Color is the symbol fill color: a literal or a color expression.
	Color any

	// Opacity is the symbol opacity in [0, 1]: a scalar or expression.
	// An opacity of exactly 0 still compiles; skipping fully transparent
	// symbols is the caller's concern.
	Opacity any

	// Offset shifts the symbol from its anchor, in pixels. A 2-element
	// vector of scalars or feature-invariant scalar expressions.
	Offset any

	// Rotation rotates the symbol around its anchor, in radians.
	Rotation any

	// Src is the icon source for SymbolImage; ignored otherwise.
	Src string
}

// validateSrc checks an image symbol source. The cache resolves the
// actual bytes later; compilation only rejects values that cannot name
// an image at all.
func validateSrc(src string) *StyleError {
	if strings.TrimSpace(src) == "" {
		return styleErrorf("src", "image symbol requires a non-empty src")
	}
	if _, err := url.Parse(src); err != nil {
		return styleErrorf("src", "malformed src %q: %v", src, err)
	}
	return nil
}

// parseColorLiteral interprets a literal color value: a hex string, a CSS
// color name, a mapgl.RGBA, or a numeric slice of 3 or 4 components in
// [0, 1]. The second return value reports success.
func parseColorLiteral(v any) (mapgl.RGBA, bool) {
	switch c := v.(type) {
	case mapgl.RGBA:
		return c, true
	case string:
		if rgba, ok := mapgl.Hex(c); ok {
			return rgba, true
		}
		if named, ok := colornames.Map[strings.ToLower(c)]; ok {
			return mapgl.FromColor(named), true
		}
		return mapgl.RGBA{}, false
	case []float64:
		return colorFromComponents(c)
	case [4]float64:
		return mapgl.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, true
	case []any:
		nums := make([]float64, 0, len(c))
		for _, e := range c {
			n, ok := asNumber(e)
			if !ok {
				return mapgl.RGBA{}, false
			}
			nums = append(nums, n)
		}
		return colorFromComponents(nums)
	}
	return mapgl.RGBA{}, false
}

func colorFromComponents(c []float64) (mapgl.RGBA, bool) {
	switch len(c) {
	case 3:
		return mapgl.RGBA{R: c[0], G: c[1], B: c[2], A: 1}, true
	case 4:
		return mapgl.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, true
	}
	return mapgl.RGBA{}, false
}

// asNumber converts the numeric literal types accepted in descriptors.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}
