package mapgl

import "math"

// Coordinate represents a position in projected map units.
type Coordinate struct {
	X, Y float64
}

// Coord is a convenience function to create a Coordinate.
func Coord(x, y float64) Coordinate {
	return Coordinate{X: x, Y: y}
}

// Add returns the sum of two coordinates (vector addition).
func (c Coordinate) Add(d Coordinate) Coordinate {
	return Coordinate{X: c.X + d.X, Y: c.Y + d.Y}
}

// Sub returns the difference of two coordinates (vector subtraction).
func (c Coordinate) Sub(d Coordinate) Coordinate {
	return Coordinate{X: c.X - d.X, Y: c.Y - d.Y}
}

// Distance returns the euclidean distance between two coordinates.
func (c Coordinate) Distance(d Coordinate) float64 {
	dx := c.X - d.X
	dy := c.Y - d.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Pixel represents a position on the rendering surface in CSS pixels.
// The origin is at the top-left corner; Y increases downward.
type Pixel struct {
	X, Y float64
}

// Px is a convenience function to create a Pixel.
func Px(x, y float64) Pixel {
	return Pixel{X: x, Y: y}
}

// Distance returns the euclidean distance between two pixels.
func (p Pixel) Distance(q Pixel) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Extent is an axis-aligned bounding box in map units.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal span of the extent.
func (e Extent) Width() float64 {
	return e.MaxX - e.MinX
}

// Height returns the vertical span of the extent.
func (e Extent) Height() float64 {
	return e.MaxY - e.MinY
}

// Contains reports whether the coordinate lies inside the extent.
// Points on the boundary are inside.
func (e Extent) Contains(c Coordinate) bool {
	return c.X >= e.MinX && c.X <= e.MaxX && c.Y >= e.MinY && c.Y <= e.MaxY
}

// Empty reports whether the extent has no area.
func (e Extent) Empty() bool {
	return e.MaxX <= e.MinX || e.MaxY <= e.MinY
}
