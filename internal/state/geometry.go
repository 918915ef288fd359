package state

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Rect is an axis-aligned rectangle in canvas units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the rectangle spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Center returns the centroid of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.MaxX() <= r.MaxX() && o.MaxY() <= r.MaxY()
}

// Intersects reports whether the rectangles overlap, touching edges included.
func (r Rect) Intersects(o Rect) bool {
	return !(r.MaxX() < o.X || o.MaxX() < r.X || r.MaxY() < o.Y || o.MaxY() < r.Y)
}

// Union returns the smallest rectangle containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Grow grows the rectangle by d on every side (shrinks for negative d).
func (r Rect) Grow(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Envelope returns the min/max box of the points. An empty slice yields
// the zero rectangle.
func Envelope(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Bounds returns the rendered axis-aligned bounds of el. all is the full
// element list, needed to aggregate group children. Parent cycles are
// rejected when elements are stored, so the recursion terminates.
func Bounds(el Element, all []Element) Rect {
	switch el.Type {
	case TypeImage, TypeVideo, TypeShape, TypeText:
		return el.Rect()
	case TypeLine, TypeArrow:
		if el.Line == nil {
			return el.Rect()
		}
		return Envelope(el.Line.Points[:])
	case TypePath:
		if el.Path == nil {
			return Rect{}
		}
		return Envelope(el.Path.Points)
	case TypeGroup:
		var (
			out   Rect
			found bool
		)
		for _, child := range all {
			if child.ParentID != el.ID {
				continue
			}
			b := Bounds(child, all)
			if !found {
				out, found = b, true
				continue
			}
			out = out.Union(b)
		}
		if !found {
			return el.Rect()
		}
		return out
	}
	return el.Rect()
}

// UnionBounds returns the union of the bounds of els, and false when els is
// empty.
func UnionBounds(els []Element, all []Element) (Rect, bool) {
	if len(els) == 0 {
		return Rect{}, false
	}
	out := Bounds(els[0], all)
	for _, el := range els[1:] {
		out = out.Union(Bounds(el, all))
	}
	return out, true
}
