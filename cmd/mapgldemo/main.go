// Command mapgldemo demonstrates the mapgl runtime core: it builds a
// small point layer over Web Mercator, renders a frame in CPU-only
// mode and answers hit queries against it.
package main

import (
	"flag"
	"log"

	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/layer"
	"github.com/gogpu/mapgl/render"
	"github.com/gogpu/mapgl/style"
)

func main() {
	var (
		width  = flag.Int("width", 800, "viewport width in pixels")
		height = flag.Int("height", 600, "viewport height in pixels")
	)
	flag.Parse()

	src := layer.NewVectorSource(layer.WithWrapX())
	src.AddFeatures([]*mapgl.Feature{
		mapgl.NewFeature(mapgl.Coord(0, 0), map[string]any{"name": "origin", "magnitude": 4.0}),
		mapgl.NewFeature(mapgl.Coord(2000, 1500), map[string]any{"name": "northeast", "magnitude": 7.0}),
		mapgl.NewFeature(mapgl.Coord(-3000, -500), map[string]any{"name": "west", "magnitude": 2.5}),
	})

	cities, err := layer.New(src, style.SymbolDescriptor{
		Symbol: style.Symbol{
			Type:    style.SymbolCircle,
			Size:    []any{"interpolate", []any{"get", "magnitude"}, 0.0, 6.0, 10.0, 24.0},
			Color:   "#33AAFF",
			Opacity: 0.9,
		},
	})
	if err != nil {
		log.Fatalf("compile layer style: %v", err)
	}

	mr := render.NewMapRenderer()
	defer mr.Dispose()

	fs := &mapgl.FrameState{
		ViewState: mapgl.ViewState{
			Center:     mapgl.Coord(0, 0),
			Resolution: 10,
			Projection: mapgl.WebMercator(),
		},
		Width:  *width,
		Height: *height,
		LayerStates: []mapgl.LayerState{
			cities.State(),
		},
	}
	mapgl.CalculateMatrices2D(fs)

	if err := mr.RenderFrame(fs); err != nil {
		log.Fatalf("render frame: %v", err)
	}

	for _, f := range src.Features() {
		coord := f.Geometry
		result := mr.ForEachFeatureAtCoordinate(coord, fs, 0,
			func(hit *mapgl.Feature, _ mapgl.Layer, managed bool) any {
				return map[string]any{"name": hit.Attributes["name"], "managed": managed}
			}, nil)
		log.Printf("query %v -> %v", coord, result)
	}

	hit := mr.HasFeatureAtCoordinate(mapgl.Coord(1e6, 1e6), fs, 0, nil)
	log.Printf("query far from any feature -> hit=%v", hit)
}
