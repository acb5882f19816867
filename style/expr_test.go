package style

import (
	"math"
	"strings"
	"testing"

	"github.com/gogpu/mapgl"
)

func mustParse(t *testing.T, v any, hint Type) expr {
	t.Helper()
	e, err := parseExpr("test", v, hint)
	if err != nil {
		t.Fatalf("parseExpr failed: %v", err)
	}
	return e
}

func TestEvalOperators(t *testing.T) {
	f := mapgl.NewFeature(mapgl.Coord(0, 0), map[string]any{"n": 6.0, "flag": true})
	ctx := evalCtx{f: f}

	tests := []struct {
		name string
		v    any
		want float64
	}{
		{"add", []any{"+", 1.0, 2.0, 3.0}, 6},
		{"sub", []any{"-", 10.0, 4.0}, 6},
		{"mul", []any{"*", 2.0, 3.0}, 6},
		{"div", []any{"/", 12.0, 2.0}, 6},
		{"mod", []any{"%", 13.0, 7.0}, 6},
		{"pow", []any{"^", 2.0, 3.0}, 8},
		{"clamp low", []any{"clamp", -5.0, 0.0, 10.0}, 0},
		{"clamp high", []any{"clamp", 15.0, 0.0, 10.0}, 10},
		{"get", []any{"get", "n"}, 6},
		{"get missing", []any{"get", "absent"}, 0},
		{"stretch mid", []any{"stretch", 5.0, 0.0, 10.0, 0.0, 100.0}, 50},
		{"stretch clamps input", []any{"stretch", 20.0, 0.0, 10.0, 0.0, 100.0}, 100},
		{"nested", []any{"+", []any{"*", []any{"get", "n"}, 2.0}, 1.0}, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustParse(t, tt.v, TypeNumber)
			if got := evalNumber(e, ctx); got != tt.want {
				t.Errorf("evalNumber = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalBooleans(t *testing.T) {
	f := mapgl.NewFeature(mapgl.Coord(0, 0), map[string]any{"n": 6.0})
	ctx := evalCtx{f: f}

	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"lt", []any{"<", 1.0, 2.0}, true},
		{"lte equal", []any{"<=", 2.0, 2.0}, true},
		{"gt", []any{">", []any{"get", "n"}, 5.0}, true},
		{"eq", []any{"==", []any{"get", "n"}, 6.0}, true},
		{"neq", []any{"!=", []any{"get", "n"}, 6.0}, false},
		{"not", []any{"!", []any{">", 1.0, 2.0}}, true},
		{"all", []any{"all", []any{">", 2.0, 1.0}, []any{"<", 1.0, 2.0}}, true},
		{"all short", []any{"all", []any{">", 1.0, 2.0}, []any{"<", 1.0, 2.0}}, false},
		{"any", []any{"any", []any{">", 1.0, 2.0}, []any{"<", 1.0, 2.0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustParse(t, tt.v, TypeBoolean)
			if got := evalBool(e, ctx); got != tt.want {
				t.Errorf("evalBool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalCaseFirstMatchWins(t *testing.T) {
	e := mustParse(t, []any{"case",
		[]any{">", []any{"get", "n"}, 0.0}, 1.0,
		[]any{">", []any{"get", "n"}, 5.0}, 2.0,
		3.0,
	}, TypeNumber)

	f := mapgl.NewFeature(mapgl.Coord(0, 0), map[string]any{"n": 10.0})
	if got := evalNumber(e, evalCtx{f: f}); got != 1 {
		t.Errorf("evalNumber = %v, want 1 (first matching branch)", got)
	}

	none := mapgl.NewFeature(mapgl.Coord(0, 0), map[string]any{"n": -1.0})
	if got := evalNumber(e, evalCtx{f: none}); got != 3 {
		t.Errorf("evalNumber = %v, want 3 (fallback)", got)
	}
}

func TestEvalInterpolateColor(t *testing.T) {
	e := mustParse(t, []any{"interpolate", []any{"get", "t"},
		0.0, "#000000",
		1.0, "#FFFFFF",
	}, TypeColor)

	f := mapgl.NewFeature(mapgl.Coord(0, 0), map[string]any{"t": 0.5})
	c := evalColor(e, evalCtx{f: f})
	if math.Abs(c.R-0.5) > 1e-6 || math.Abs(c.G-0.5) > 1e-6 || math.Abs(c.B-0.5) > 1e-6 {
		t.Errorf("evalColor = %+v, want mid gray", c)
	}
}

func TestZoomForResolution(t *testing.T) {
	proj := mapgl.WebMercator()
	base := proj.Extent.Width() / 256

	tests := []struct {
		resolution float64
		want       float64
	}{
		{base, 0},
		{base / 2, 1},
		{base / 16, 4},
	}
	for _, tt := range tests {
		vs := mapgl.ViewState{Projection: proj, Resolution: tt.resolution}
		if got := zoomForResolution(vs); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("zoomForResolution(%v) = %v, want %v", tt.resolution, got, tt.want)
		}
	}

	if got := zoomForResolution(mapgl.ViewState{Resolution: 10}); got != 0 {
		t.Errorf("zoom without projection = %v, want 0", got)
	}
}

func TestWGSLFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{-3, "-3.0"},
		{0.5, "0.5"},
		{2.5, "2.5"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := wgslFloat(tt.in); got != tt.want {
			t.Errorf("wgslFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeAttr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"magnitude", "magnitude"},
		{"snake_case", "snake_case"},
		{"dash-name", "dash_name"},
		{"dot.name", "dot_name"},
		{"2fast", "_2fast"},
		{"mixed 1.0", "mixed_1_0"},
	}
	for _, tt := range tests {
		if got := sanitizeAttr(tt.in); got != tt.want {
			t.Errorf("sanitizeAttr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmitExprDeterministic(t *testing.T) {
	v := []any{"stretch", []any{"get", "magnitude"}, 0.0, 10.0, 4.0, 20.0}
	a := emitExpr(mustParse(t, v, TypeNumber))
	b := emitExpr(mustParse(t, v, TypeNumber))
	if a != b {
		t.Errorf("same expression lowered to different text:\n%s\n%s", a, b)
	}
	if !strings.Contains(a, "in.a_magnitude") {
		t.Errorf("lowered text %q does not reference the hoisted attribute", a)
	}
	if !strings.Contains(a, "clamp(") {
		t.Errorf("stretch lowering %q does not clamp its input", a)
	}
}

func TestEmitCaseSelectsFirstMatch(t *testing.T) {
	e := mustParse(t, []any{"case",
		[]any{">", []any{"get", "n"}, 0.0}, 1.0,
		[]any{">", []any{"get", "n"}, 5.0}, 2.0,
		3.0,
	}, TypeNumber)

	// The first condition must be the outermost select so it wins when
	// several conditions hold, matching CPU evaluation.
	got := emitExpr(e)
	first := strings.Index(got, "(in.a_n > 0.0)")
	second := strings.Index(got, "(in.a_n > 5.0)")
	if first < 0 || second < 0 {
		t.Fatalf("lowered case missing conditions: %q", got)
	}
	if !strings.HasPrefix(got, "select(") {
		t.Errorf("case did not lower to select: %q", got)
	}
	if first < second {
		t.Errorf("first condition emitted before second in fold order: %q", got)
	}
}

func TestEmitInterpolate(t *testing.T) {
	e := mustParse(t, []any{"interpolate", []any{"zoom"},
		0.0, 4.0,
		10.0, 16.0,
	}, TypeNumber)
	got := emitExpr(e)
	if !strings.Contains(got, "mix(") {
		t.Errorf("interpolate lowering %q does not use mix", got)
	}
	if !strings.Contains(got, "frame.zoom") {
		t.Errorf("interpolate lowering %q does not read frame.zoom", got)
	}
	if !strings.Contains(got, "clamp(") {
		t.Errorf("interpolate lowering %q does not clamp segment ratios", got)
	}
}
