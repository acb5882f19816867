package style

import (
	"fmt"
	"sort"

	"github.com/gogpu/mapgl"
)

// Type is the type of a style expression.
type Type uint8

// Expression types.
const (
	TypeNumber Type = iota
	TypeBoolean
	TypeString
	TypeColor
)

// String returns a human-readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeColor:
		return "color"
	default:
		return "unknown"
	}
}

// expr is a type-checked expression node.
type expr interface {
	// typ returns the node's inferred type.
	typ() Type

	// collectAttrs records every feature attribute the node references.
	collectAttrs(set map[string]struct{})

	// usesContext reports whether the node references zoom or resolution.
	usesContext() bool
}

// numLit is a numeric literal.
type numLit struct{ v float64 }

func (numLit) typ() Type                        { return TypeNumber }
func (numLit) collectAttrs(map[string]struct{}) {}
func (numLit) usesContext() bool                { return false }

// boolLit is a boolean literal.
type boolLit struct{ v bool }

func (boolLit) typ() Type                        { return TypeBoolean }
func (boolLit) collectAttrs(map[string]struct{}) {}
func (boolLit) usesContext() bool                { return false }

// colorLit is a color literal.
type colorLit struct{ v mapgl.RGBA }

func (colorLit) typ() Type                        { return TypeColor }
func (colorLit) collectAttrs(map[string]struct{}) {}
func (colorLit) usesContext() bool                { return false }

// getAttr reads a numeric feature attribute. Each distinct attribute name
// is hoisted to a vertex attribute by the compiler.
type getAttr struct{ name string }

func (getAttr) typ() Type { return TypeNumber }
func (g getAttr) collectAttrs(set map[string]struct{}) {
	set[g.name] = struct{}{}
}
func (getAttr) usesContext() bool { return false }

// ctxKind selects which implicit context variable a ctxVar reads.
type ctxKind uint8

const (
	ctxZoom ctxKind = iota
	ctxResolution
)

// ctxVar reads an implicit per-frame context variable.
type ctxVar struct{ kind ctxKind }

func (ctxVar) typ() Type                        { return TypeNumber }
func (ctxVar) collectAttrs(map[string]struct{}) {}
func (ctxVar) usesContext() bool                { return true }

// call is an operator application.
type call struct {
	op   string
	args []expr
	t    Type
}

func (c *call) typ() Type { return c.t }
func (c *call) collectAttrs(set map[string]struct{}) {
	for _, a := range c.args {
		a.collectAttrs(set)
	}
}
func (c *call) usesContext() bool {
	for _, a := range c.args {
		if a.usesContext() {
			return true
		}
	}
	return false
}

// opSpec describes the arity and typing of a regular operator: every
// argument has the same type and the result type is fixed. Irregular
// operators (get, case, interpolate) are handled separately.
type opSpec struct {
	minArgs int
	maxArgs int // 0 means unbounded
	arg     Type
	result  Type
}

// operators is the fixed operator table. An expression referencing a name
// outside this table (or get/zoom/resolution/case/interpolate) fails to
// compile.
var operators = map[string]opSpec{
	"+":     {minArgs: 2, maxArgs: 0, arg: TypeNumber, result: TypeNumber},
	"*":     {minArgs: 2, maxArgs: 0, arg: TypeNumber, result: TypeNumber},
	"-":     {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeNumber},
	"/":     {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeNumber},
	"%":     {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeNumber},
	"^":     {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeNumber},
	"clamp": {minArgs: 3, maxArgs: 3, arg: TypeNumber, result: TypeNumber},
	// stretch(value, low, high, outLow, outHigh): linear remap of value
	// from [low, high] to [outLow, outHigh], input clamped to [low, high].
	"stretch": {minArgs: 5, maxArgs: 5, arg: TypeNumber, result: TypeNumber},
	"==":      {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeBoolean},
	"!=":      {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeBoolean},
	"<":       {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeBoolean},
	"<=":      {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeBoolean},
	">":       {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeBoolean},
	">=":      {minArgs: 2, maxArgs: 2, arg: TypeNumber, result: TypeBoolean},
	"!":       {minArgs: 1, maxArgs: 1, arg: TypeBoolean, result: TypeBoolean},
	"all":     {minArgs: 2, maxArgs: 0, arg: TypeBoolean, result: TypeBoolean},
	"any":     {minArgs: 2, maxArgs: 0, arg: TypeBoolean, result: TypeBoolean},
}

// parseExpr parses a literal-or-expression value into a typed node.
// hint guides the interpretation of ambiguous literals (a string is a
// color in a color slot) and is checked against the inferred type.
// field names the style field for error reporting.
func parseExpr(field string, v any, hint Type) (expr, error) {
	e, err := parseValue(field, v, hint)
	if err != nil {
		return nil, err
	}
	if e.typ() != hint {
		return nil, styleErrorf(field, "expression has type %s, %s required", e.typ(), hint)
	}
	return e, nil
}

func parseValue(field string, v any, hint Type) (expr, error) {
	if n, ok := asNumber(v); ok {
		return numLit{v: n}, nil
	}
	switch val := v.(type) {
	case bool:
		return boolLit{v: val}, nil
	case string:
		if hint == TypeColor {
			c, ok := parseColorLiteral(val)
			if !ok {
				return nil, styleErrorf(field, "malformed color literal %q", val)
			}
			return colorLit{v: c}, nil
		}
		return nil, styleErrorf(field, "string literal %q not allowed here", val)
	case mapgl.RGBA:
		return colorLit{v: val}, nil
	case []float64, [4]float64:
		c, ok := parseColorLiteral(val)
		if !ok {
			return nil, styleErrorf(field, "malformed color components %v", val)
		}
		return colorLit{v: c}, nil
	case []any:
		return parseCall(field, val, hint)
	case nil:
		return nil, styleErrorf(field, "missing value")
	}
	return nil, styleErrorf(field, "unsupported value %T", v)
}

// parseCall parses an operator application []any{"op", args...}.
func parseCall(field string, parts []any, hint Type) (expr, error) {
	if len(parts) == 0 {
		return nil, styleErrorf(field, "empty expression")
	}
	op, ok := parts[0].(string)
	if !ok {
		// A slice not starting with an operator name may be a color
		// literal in a color slot.
		if hint == TypeColor {
			if c, lit := parseColorLiteral(parts); lit {
				return colorLit{v: c}, nil
			}
		}
		return nil, styleErrorf(field, "expression must start with an operator name, got %T", parts[0])
	}
	args := parts[1:]

	switch op {
	case "get":
		if len(args) != 1 {
			return nil, styleErrorf(field, "get requires 1 argument, got %d", len(args))
		}
		name, ok := args[0].(string)
		if !ok || name == "" {
			return nil, styleErrorf(field, "get requires an attribute name string")
		}
		return getAttr{name: name}, nil

	case "zoom":
		if len(args) != 0 {
			return nil, styleErrorf(field, "zoom takes no arguments")
		}
		return ctxVar{kind: ctxZoom}, nil

	case "resolution":
		if len(args) != 0 {
			return nil, styleErrorf(field, "resolution takes no arguments")
		}
		return ctxVar{kind: ctxResolution}, nil

	case "case":
		return parseCase(field, args, hint)

	case "interpolate":
		return parseInterpolate(field, args, hint)
	}

	spec, known := operators[op]
	if !known {
		return nil, styleErrorf(field, "unknown operator %q", op)
	}
	if len(args) < spec.minArgs || (spec.maxArgs > 0 && len(args) > spec.maxArgs) {
		return nil, styleErrorf(field, "operator %q requires %s, got %d",
			op, arityString(spec), len(args))
	}
	parsed := make([]expr, len(args))
	for i, a := range args {
		e, err := parseValue(field, a, spec.arg)
		if err != nil {
			return nil, err
		}
		if e.typ() != spec.arg {
			return nil, styleErrorf(field, "operator %q argument %d has type %s, %s required",
				op, i+1, e.typ(), spec.arg)
		}
		parsed[i] = e
	}
	return &call{op: op, args: parsed, t: spec.result}, nil
}

// parseCase parses case(cond1, value1, ..., condN, valueN, fallback).
// Value arguments are numbers or colors; every value (and the fallback)
// must share one type.
func parseCase(field string, args []any, hint Type) (expr, error) {
	if len(args) < 3 || len(args)%2 == 0 {
		return nil, styleErrorf(field, "case requires an odd number of arguments (conditions, values, fallback), got %d", len(args))
	}
	valueType := hint
	if valueType != TypeColor {
		valueType = TypeNumber
	}
	parsed := make([]expr, len(args))
	for i, a := range args {
		want := valueType
		if i%2 == 0 && i != len(args)-1 {
			want = TypeBoolean
		}
		e, err := parseValue(field, a, want)
		if err != nil {
			return nil, err
		}
		if e.typ() != want {
			return nil, styleErrorf(field, "case argument %d has type %s, %s required", i+1, e.typ(), want)
		}
		parsed[i] = e
	}
	return &call{op: "case", args: parsed, t: valueType}, nil
}

// parseInterpolate parses interpolate(input, stop1In, stop1Out, ...):
// piecewise-linear interpolation of the input over the given stops. Stop
// inputs are numeric literals in ascending order; outputs are numbers or
// colors sharing one type.
func parseInterpolate(field string, args []any, hint Type) (expr, error) {
	if len(args) < 5 || len(args)%2 == 0 {
		return nil, styleErrorf(field, "interpolate requires an input and at least two stops, got %d arguments", len(args))
	}
	outType := hint
	if outType != TypeColor {
		outType = TypeNumber
	}
	parsed := make([]expr, len(args))
	input, err := parseValue(field, args[0], TypeNumber)
	if err != nil {
		return nil, err
	}
	if input.typ() != TypeNumber {
		return nil, styleErrorf(field, "interpolate input has type %s, number required", input.typ())
	}
	parsed[0] = input

	var prev float64
	for i := 1; i < len(args); i += 2 {
		in, ok := asNumber(args[i])
		if !ok {
			return nil, styleErrorf(field, "interpolate stop %d input must be a numeric literal", (i+1)/2)
		}
		if i > 1 && in <= prev {
			return nil, styleErrorf(field, "interpolate stop inputs must be strictly ascending")
		}
		prev = in
		parsed[i] = numLit{v: in}

		out, err := parseValue(field, args[i+1], outType)
		if err != nil {
			return nil, err
		}
		if out.typ() != outType {
			return nil, styleErrorf(field, "interpolate stop %d output has type %s, %s required",
				(i+1)/2, out.typ(), outType)
		}
		parsed[i+1] = out
	}
	return &call{op: "interpolate", args: parsed, t: outType}, nil
}

func arityString(spec opSpec) string {
	if spec.maxArgs == 0 {
		return fmt.Sprintf("at least %d arguments", spec.minArgs)
	}
	if spec.minArgs == spec.maxArgs {
		return fmt.Sprintf("%d arguments", spec.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", spec.minArgs, spec.maxArgs)
}

// attrNames returns the sorted list of feature attributes an expression
// references. Sorting keeps shader layouts deterministic.
func attrNames(e expr) []string {
	set := make(map[string]struct{})
	e.collectAttrs(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
