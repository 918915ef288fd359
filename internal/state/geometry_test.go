package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsRectangular(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	for _, el := range []Element{
		NewImage("a.png", "image/png", r),
		NewVideo("v.mp4", r),
		NewShape(ShapeEllipse, r, "transparent", "#000", 2),
	} {
		assert.Equal(t, r, Bounds(el, nil), el.Type)
	}
}

func TestBoundsSegmentIgnoresStoredRect(t *testing.T) {
	for _, el := range []Element{
		NewLine(Point{X: 50, Y: 10}, Point{X: 5, Y: 80}, "#f00", 3),
		NewArrow(Point{X: 50, Y: 10}, Point{X: 5, Y: 80}, "#f00", 3),
	} {
		el.X, el.Y, el.Width, el.Height = 999, 999, 1, 1
		assert.Equal(t, Rect{X: 5, Y: 10, Width: 45, Height: 70}, Bounds(el, nil), el.Type)
	}
}

func TestBoundsPath(t *testing.T) {
	el := NewPath(Point{X: 3, Y: 4}, "#000", 2, 1, BrushPen)
	el.AppendPoint(Point{X: -1, Y: 10})
	el.AppendPoint(Point{X: 7, Y: 0})
	assert.Equal(t, Rect{X: -1, Y: 0, Width: 8, Height: 10}, Bounds(el, nil))

	el.Path.Points = nil
	assert.Equal(t, Rect{}, Bounds(el, nil))
}

func TestBoundsGroupUnion(t *testing.T) {
	g := NewGroup("g", Rect{X: 0, Y: 0, Width: 1, Height: 1})
	a := NewImage("a", "image/png", Rect{X: 10, Y: 10, Width: 10, Height: 10})
	a.ParentID = g.ID
	inner := NewGroup("inner", Rect{X: -500, Y: -500, Width: 1, Height: 1})
	inner.ParentID = g.ID
	b := NewLine(Point{X: 100, Y: 5}, Point{X: 40, Y: 50}, "#000", 1)
	b.ParentID = inner.ID
	other := NewImage("o", "image/png", Rect{X: 1000, Y: 1000, Width: 5, Height: 5})
	all := []Element{g, a, inner, b, other}

	assert.Equal(t, Rect{X: 40, Y: 5, Width: 60, Height: 45}, Bounds(inner, all))
	assert.Equal(t, Rect{X: 10, Y: 5, Width: 90, Height: 45}, Bounds(g, all))
}

func TestBoundsEmptyGroupFallsBack(t *testing.T) {
	r := Rect{X: 7, Y: 8, Width: 9, Height: 10}
	g := NewGroup("empty", r)
	assert.Equal(t, r, Bounds(g, []Element{g}))
}

func TestRectHelpers(t *testing.T) {
	r := RectFromPoints(Point{X: 30, Y: 40}, Point{X: 10, Y: 0})
	assert.Equal(t, Rect{X: 10, Y: 0, Width: 20, Height: 40}, r)
	assert.Equal(t, Point{X: 20, Y: 20}, r.Center())
	assert.True(t, r.Contains(Point{X: 10, Y: 40}))
	assert.False(t, r.Contains(Point{X: 9.9, Y: 20}))
	assert.True(t, r.Intersects(Rect{X: 29, Y: 39, Width: 5, Height: 5}))
	assert.False(t, r.Intersects(Rect{X: 31, Y: 0, Width: 5, Height: 5}))
	assert.Equal(t, Rect{X: 5, Y: -5, Width: 30, Height: 50}, r.Grow(5))
	assert.True(t, r.ContainsRect(Rect{X: 10, Y: 0, Width: 20, Height: 40}))
}
