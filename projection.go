package mapgl

import "math"

// Projection describes the coordinate reference system of a map view.
// Only the pieces the rendering core needs are modeled: the valid extent
// and whether the projection wraps around the horizontal axis.
type Projection struct {
	// Code is the identifier of the projection (e.g. "EPSG:3857").
	Code string

	// Extent is the area of validity in projected units.
	Extent Extent

	// Global reports whether the projection wraps horizontally, so that
	// x-coordinates outside the extent refer to another copy of the world.
	Global bool
}

// WebMercator is the spherical mercator projection used by most tile
// services.
func WebMercator() *Projection {
	const half = 20037508.342789244
	return &Projection{
		Code:   "EPSG:3857",
		Extent: Extent{MinX: -half, MinY: -half, MaxX: half, MaxY: half},
		Global: true,
	}
}

// WorldWidth returns the horizontal span of one world copy, or 0 when the
// projection does not wrap.
func (p *Projection) WorldWidth() float64 {
	if p == nil || !p.Global {
		return 0
	}
	return p.Extent.Width()
}

// WrapX translates the x-coordinate by whole world-width multiples so that
// the result falls inside the projection extent. Coordinates already inside
// the extent, and coordinates of non-wrapping projections, are returned
// unchanged.
func (p *Projection) WrapX(c Coordinate) Coordinate {
	w := p.WorldWidth()
	if w == 0 {
		return c
	}
	if c.X >= p.Extent.MinX && c.X <= p.Extent.MaxX {
		return c
	}
	worlds := math.Ceil((p.Extent.MinX - c.X) / w)
	return Coordinate{X: c.X + w*worlds, Y: c.Y}
}
