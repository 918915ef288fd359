package state

import "math"

const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// Viewport maps canvas coordinates to screen coordinates:
// screen = canvas*Zoom + Pan.
type Viewport struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity mapping.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToCanvas maps a screen point to canvas coordinates.
func (v Viewport) ToCanvas(p Point) Point {
	z := v.zoom()
	return Point{X: (p.X - v.PanX) / z, Y: (p.Y - v.PanY) / z}
}

// ToScreen maps a canvas point to screen coordinates.
func (v Viewport) ToScreen(p Point) Point {
	z := v.zoom()
	return Point{X: p.X*z + v.PanX, Y: p.Y*z + v.PanY}
}

// ZoomAt returns the viewport zoomed by factor about the screen point
// anchor, which keeps its canvas position. Zoom is clamped to
// [MinZoom, MaxZoom].
func (v Viewport) ZoomAt(anchor Point, factor float64) Viewport {
	before := v.ToCanvas(anchor)
	next := v
	next.Zoom = math.Max(MinZoom, math.Min(MaxZoom, v.zoom()*factor))
	next.PanX = anchor.X - before.X*next.Zoom
	next.PanY = anchor.Y - before.Y*next.Zoom
	return next
}

// Visible returns the canvas rectangle shown in a w×h screen.
func (v Viewport) Visible(w, h float64) Rect {
	tl := v.ToCanvas(Point{})
	z := v.zoom()
	return Rect{X: tl.X, Y: tl.Y, Width: w / z, Height: h / z}
}
