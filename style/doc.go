// Package style compiles declarative point-symbol styles into WGSL shader
// programs plus their uniform and attribute schemas.
//
// A style descriptor is a JSON-like value: each field (size, color, opacity,
// offset, rotation) is either a literal or a small typed expression over
// feature attributes and the view's zoom/resolution. Compilation
// type-checks every expression, hoists feature-dependent leaves to vertex
// attributes and feature-invariant fields to uniforms, and emits
// deterministic shader source: compiling the same descriptor twice yields
// byte-identical output.
//
// Compilation happens once, at layer construction. A broken descriptor
// fails construction with a *StyleError and never reaches the render loop.
package style
