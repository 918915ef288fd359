package state

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResizeHandles(t *testing.T) {
	start := Rect{X: 100, Y: 100, Width: 200, Height: 100}
	tests := []struct {
		name   string
		handle Handle
		d      Point
		want   Rect
	}{
		{"bottom right grows", HandleBottomRight, Point{X: 50, Y: 20}, Rect{X: 100, Y: 100, Width: 250, Height: 120}},
		{"top left shrinks", HandleTopLeft, Point{X: 10, Y: 10}, Rect{X: 110, Y: 110, Width: 190, Height: 90}},
		{"top only moves y", HandleTop, Point{X: 40, Y: -30}, Rect{X: 100, Y: 70, Width: 200, Height: 130}},
		{"right only moves width", HandleRight, Point{X: -50, Y: 99}, Rect{X: 100, Y: 100, Width: 150, Height: 100}},
		{"left clamps to min", HandleLeft, Point{X: 500}, Rect{X: 280, Y: 100, Width: 20, Height: 100}},
		{"bottom clamps to min", HandleBottom, Point{Y: -500}, Rect{X: 100, Y: 100, Width: 200, Height: 20}},
		{"move", HandleMove, Point{X: -5, Y: 7}, Rect{X: 95, Y: 107, Width: 200, Height: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resize(start, tt.handle, tt.d, 20))
		})
	}
}

func TestHandleAt(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}
	assert.Equal(t, HandleTopLeft, HandleAt(r, Point{X: 2, Y: -3}, 5))
	assert.Equal(t, HandleBottom, HandleAt(r, Point{X: 50, Y: 52}, 5))
	assert.Equal(t, HandleMove, HandleAt(r, Point{X: 30, Y: 20}, 5))
	assert.Equal(t, HandleNone, HandleAt(r, Point{X: 300, Y: 20}, 5))
}

func TestResizeWithinStaysInside(t *testing.T) {
	outer := Rect{X: 50, Y: 40, Width: 300, Height: 200}
	rng := rand.New(rand.NewSource(7))
	handles := append([]Handle{HandleMove}, ResizeHandles...)
	box := outer
	for i := 0; i < 500; i++ {
		h := handles[rng.Intn(len(handles))]
		d := Point{X: rng.Float64()*800 - 400, Y: rng.Float64()*800 - 400}
		box = ResizeWithin(box, outer, h, d, 20)
		assert.GreaterOrEqual(t, box.X, outer.X)
		assert.GreaterOrEqual(t, box.Y, outer.Y)
		assert.LessOrEqual(t, box.MaxX(), outer.MaxX()+1e-9)
		assert.LessOrEqual(t, box.MaxY(), outer.MaxY()+1e-9)
		assert.GreaterOrEqual(t, box.Width, 20-1e-9)
		assert.GreaterOrEqual(t, box.Height, 20-1e-9)
	}
}

func TestViewportZoomAtKeepsAnchor(t *testing.T) {
	v := DefaultViewport()
	anchor := Point{X: 200, Y: 100}
	before := v.ToCanvas(anchor)
	v = v.ZoomAt(anchor, 2)
	assert.Equal(t, 2.0, v.Zoom)
	assert.InDelta(t, before.X, v.ToCanvas(anchor).X, 1e-9)
	assert.InDelta(t, before.Y, v.ToCanvas(anchor).Y, 1e-9)

	assert.Equal(t, MaxZoom, v.ZoomAt(anchor, 1000).Zoom)
	assert.Equal(t, MinZoom, v.ZoomAt(anchor, 0.0001).Zoom)
}
