package state

import "math"

// Handle names a grip on a selection or crop box.
type Handle string

const (
	HandleNone        Handle = ""
	HandleTopLeft     Handle = "tl"
	HandleTop         Handle = "tm"
	HandleTopRight    Handle = "tr"
	HandleLeft        Handle = "ml"
	HandleRight       Handle = "mr"
	HandleBottomLeft  Handle = "bl"
	HandleBottom      Handle = "bm"
	HandleBottomRight Handle = "br"
	HandleMove        Handle = "move"
)

// ResizeHandles lists the eight edge and corner grips.
var ResizeHandles = []Handle{
	HandleTopLeft, HandleTop, HandleTopRight,
	HandleLeft, HandleRight,
	HandleBottomLeft, HandleBottom, HandleBottomRight,
}

func (h Handle) left() bool   { return h == HandleTopLeft || h == HandleLeft || h == HandleBottomLeft }
func (h Handle) right() bool  { return h == HandleTopRight || h == HandleRight || h == HandleBottomRight }
func (h Handle) top() bool    { return h == HandleTopLeft || h == HandleTop || h == HandleTopRight }
func (h Handle) bottom() bool { return h == HandleBottomLeft || h == HandleBottom || h == HandleBottomRight }

// Anchor returns where the grip sits on r.
func (h Handle) Anchor(r Rect) Point {
	x, y := r.X+r.Width/2, r.Y+r.Height/2
	switch {
	case h.left():
		x = r.X
	case h.right():
		x = r.MaxX()
	}
	switch {
	case h.top():
		y = r.Y
	case h.bottom():
		y = r.MaxY()
	}
	return Point{X: x, Y: y}
}

// HandleAt returns the grip of r under p. Grips win over the interior,
// which reports HandleMove.
func HandleAt(r Rect, p Point, tolerance float64) Handle {
	for _, h := range ResizeHandles {
		a := h.Anchor(r)
		if math.Abs(p.X-a.X) <= tolerance && math.Abs(p.Y-a.Y) <= tolerance {
			return h
		}
	}
	if r.Contains(p) {
		return HandleMove
	}
	return HandleNone
}

// Resize returns start with grip h dragged by d. Width and height never go
// below min; the edge opposite the grip stays put.
func Resize(start Rect, h Handle, d Point, min float64) Rect {
	if h == HandleMove {
		return Rect{X: start.X + d.X, Y: start.Y + d.Y, Width: start.Width, Height: start.Height}
	}
	l, t, r, b := start.X, start.Y, start.MaxX(), start.MaxY()
	if h.left() {
		l += d.X
	}
	if h.right() {
		r += d.X
	}
	if h.top() {
		t += d.Y
	}
	if h.bottom() {
		b += d.Y
	}
	if r-l < min {
		if h.left() {
			l = r - min
		} else {
			r = l + min
		}
	}
	if b-t < min {
		if h.top() {
			t = b - min
		} else {
			b = t + min
		}
	}
	return Rect{X: l, Y: t, Width: r - l, Height: b - t}
}

// ResizeWithin is Resize for a box that must stay inside outer, as the crop
// box does. Moving keeps the size and slides the box against the edges;
// resizing stops each edge at outer.
func ResizeWithin(start, outer Rect, h Handle, d Point, min float64) Rect {
	min = math.Min(min, math.Min(outer.Width, outer.Height))
	if h == HandleMove {
		x := clamp(start.X+d.X, outer.X, outer.MaxX()-start.Width)
		y := clamp(start.Y+d.Y, outer.Y, outer.MaxY()-start.Height)
		return Rect{X: x, Y: y, Width: start.Width, Height: start.Height}
	}
	r := Resize(start, h, d, min)
	l, t, rr, b := r.X, r.Y, r.MaxX(), r.MaxY()
	if h.left() {
		l = clamp(l, outer.X, rr-min)
	}
	if h.right() {
		rr = clamp(rr, l+min, outer.MaxX())
	}
	if h.top() {
		t = clamp(t, outer.Y, b-min)
	}
	if h.bottom() {
		b = clamp(b, t+min, outer.MaxY())
	}
	return Rect{X: l, Y: t, Width: rr - l, Height: b - t}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
