// Package geom provides the 2D primitives shared by the engine and the
// rasterizer: points, axis-aligned rectangles, point-to-segment distance and
// circle containment.
package geom

import "math"

// Point is a position or vector in world or device space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dist returns the euclidean distance between p and q.
func Dist(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether (x, y) lies inside r. Edges are inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty reports whether r has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// SegmentDistance returns the distance from p to the segment a-b.
//
// A zero-length segment projects with parameter -1, which clamps to a, so the
// result is the distance from p to a.
func SegmentDistance(p, a, b Point) float64 {
	cx := b.X - a.X
	cy := b.Y - a.Y

	dot := (p.X-a.X)*cx + (p.Y-a.Y)*cy
	lenSq := cx*cx + cy*cy
	param := -1.0
	if lenSq != 0 {
		param = dot / lenSq
	}

	var nearest Point
	switch {
	case param < 0:
		nearest = a
	case param > 1:
		nearest = b
	default:
		nearest = Point{a.X + param*cx, a.Y + param*cy}
	}
	return Dist(p, nearest)
}

// CircleContains reports whether p lies within radius of center (inclusive).
func CircleContains(center Point, radius float64, p Point) bool {
	return Dist(center, p) <= radius
}

// Bounds returns the bounding box of pts, or an empty Rect when pts is empty.
func Bounds(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
