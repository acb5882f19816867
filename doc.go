// Package mapgl provides the runtime core of a GPU map-rendering library.
//
// # Overview
//
// mapgl turns declarative point-symbol styles into WGSL shader programs and
// manages the per-layer renderers of a layered map view. It is designed to
// integrate with the GoGPU ecosystem: the host application owns the window,
// the GPU device, and the render loop; mapgl owns style compilation, renderer
// lifecycle, and coordinate/pixel queries.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/mapgl"
//	    "github.com/gogpu/mapgl/layer"
//	    "github.com/gogpu/mapgl/render"
//	    "github.com/gogpu/mapgl/style"
//	)
//
//	src := layer.NewVectorSource()
//	src.AddFeature(mapgl.NewFeature(mapgl.Coord(12.49, 41.89), map[string]any{"pop": 2873000.0}))
//
//	lyr, err := layer.New(src, style.SymbolDescriptor{
//	    Symbol: style.Symbol{
//	        Type:    style.SymbolCircle,
//	        Size:    []any{"stretch", []any{"get", "pop"}, 0.0, 5e6, 4.0, 24.0},
//	        Color:   "#33AAFF",
//	        Opacity: 0.9,
//	    },
//	})
//
//	mr := render.NewMapRenderer(render.WithRequestRender(requestFrame))
//	// per frame: mapgl.CalculateMatrices2D(fs); mr.RenderFrame(fs); fs.RunPostRender()
//	// on click:  mr.ForEachFeatureAtCoordinate(coord, fs, 4, cb, nil)
//
// # Architecture
//
// The library is organized into:
//   - Root package: geometry, transforms, colors, projections, frame state,
//     and the layer/source capability contracts.
//   - style: the symbol style compiler (expression IR, type checking, WGSL
//     code generation, uniform/attribute schemas).
//   - layer: concrete point layers and vector sources.
//   - render: per-layer renderers, the renderer registry, and the map-level
//     renderer with coordinate and pixel queries.
//   - backend/wgpu: the hal-backed points pipeline (naga shader compilation,
//     buffers, draw submission).
//   - cache: the shared icon image cache.
//
// # Coordinate System
//
// Map coordinates are projected units with Y increasing up; pixel
// coordinates have the origin at the top-left with Y increasing down. The
// frame's affine transforms convert between the two.
package mapgl

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
