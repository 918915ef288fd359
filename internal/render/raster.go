package render

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

var (
	// ErrNotRasterizable is returned when asked to rasterize an image element.
	ErrNotRasterizable = errors.New("render: element is already a bitmap")
	// ErrEmptyBounds is returned when there is nothing to draw.
	ErrEmptyBounds = errors.New("render: empty bounds")
	// ErrNoSourceBitmap is returned when an image has no decoded handle yet.
	ErrNoSourceBitmap = errors.New("render: source bitmap not resolved")
)

// DefaultPadding is the margin added around rasterized elements.
const DefaultPadding = 10

// Rasterizer turns vector elements into bitmaps.
type Rasterizer struct {
	Padding float64
	painter *painter
}

// NewRasterizer returns a rasterizer with the given padding. A negative
// padding uses DefaultPadding.
func NewRasterizer(padding float64) *Rasterizer {
	if padding < 0 {
		padding = DefaultPadding
	}
	return &Rasterizer{Padding: padding, painter: newPainter()}
}

// Rasterize draws el on a transparent surface sized to its bounds plus the
// padding on each side. A group is drawn with all its descendants.
func (r *Rasterizer) Rasterize(el state.Element, all []state.Element) (Bitmap, error) {
	if el.Type == state.TypeImage {
		return Bitmap{}, ErrNotRasterizable
	}
	b := state.Bounds(el, all)
	w := int(math.Ceil(b.Width + 2*r.Padding))
	h := int(math.Ceil(b.Height + 2*r.Padding))
	if w <= 0 || h <= 0 {
		return Bitmap{}, fmt.Errorf("%w: %s", ErrEmptyBounds, el.ID)
	}

	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.Translate(r.Padding-b.X, r.Padding-b.Y)
	for _, part := range withDescendants(el, all) {
		if err := r.painter.paint(dc, part, 0); err != nil {
			return Bitmap{}, fmt.Errorf("rasterize %s: %w", part.ID, err)
		}
	}
	return Encode(dc.Image())
}

// Flatten draws annotations onto the base image at the image's native
// resolution. Annotation coordinates are canvas units; they are scaled by
// the native-to-display ratio of the base.
func (r *Rasterizer) Flatten(base state.Element, annotations []state.Element) (Bitmap, image.Image, error) {
	if base.Type != state.TypeImage || base.Image.Handle == nil {
		return Bitmap{}, nil, ErrNoSourceBitmap
	}
	src := base.Image.Handle
	nb := src.Bounds()
	if nb.Empty() || base.Width <= 0 || base.Height <= 0 {
		return Bitmap{}, nil, fmt.Errorf("%w: %s", ErrEmptyBounds, base.ID)
	}

	dc := gg.NewContext(nb.Dx(), nb.Dy())
	defer dc.Close()
	dc.DrawImageEx(r.painter.imageBuf(src), gg.DrawImageOptions{Interpolation: gg.InterpNearest, Opacity: 1})
	dc.Scale(float64(nb.Dx())/base.Width, float64(nb.Dy())/base.Height)
	dc.Translate(-base.X, -base.Y)
	for _, a := range annotations {
		if a.ID == base.ID || a.Type == state.TypeGroup {
			continue
		}
		if err := r.painter.paint(dc, a, 0); err != nil {
			return Bitmap{}, nil, fmt.Errorf("flatten %s: %w", a.ID, err)
		}
	}
	img := dc.Image()
	bm, err := Encode(img)
	if err != nil {
		return Bitmap{}, nil, err
	}
	logging.Logger().Debug("annotations flattened", "image", base.ID, "annotations", len(annotations), "bytes", len(bm.Data))
	return bm, img, nil
}

// Crop copies the part of el's bitmap under box, a rectangle in canvas
// units. Display units map to source pixels by the native/display ratio
// of each axis, measured on the current handle, so repeated crops never
// compound their scale.
func (r *Rasterizer) Crop(el state.Element, box state.Rect) (Bitmap, image.Image, error) {
	if el.Type != state.TypeImage || el.Image.Handle == nil {
		return Bitmap{}, nil, ErrNoSourceBitmap
	}
	src := el.Image.Handle
	nb := src.Bounds()
	if el.Width <= 0 || el.Height <= 0 {
		return Bitmap{}, nil, fmt.Errorf("%w: %s", ErrEmptyBounds, el.ID)
	}
	sx := float64(nb.Dx()) / el.Width
	sy := float64(nb.Dy()) / el.Height
	rect := image.Rect(
		nb.Min.X+int(math.Round((box.X-el.X)*sx)),
		nb.Min.Y+int(math.Round((box.Y-el.Y)*sy)),
		nb.Min.X+int(math.Round((box.MaxX()-el.X)*sx)),
		nb.Min.Y+int(math.Round((box.MaxY()-el.Y)*sy)),
	).Intersect(nb)
	if rect.Empty() {
		return Bitmap{}, nil, fmt.Errorf("%w: crop of %s", ErrEmptyBounds, el.ID)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, src, rect, draw.Src, nil)
	bm, err := Encode(dst)
	if err != nil {
		return Bitmap{}, nil, err
	}
	logging.Logger().Debug("image cropped", "image", el.ID, "source", rect.String())
	return bm, dst, nil
}

// Fit scales img down so neither side exceeds maxSide pixels. Smaller
// images are returned unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Lanczos3)
}

// withDescendants returns el followed by every element below it, in store
// order.
func withDescendants(el state.Element, all []state.Element) []state.Element {
	if el.Type != state.TypeGroup {
		return []state.Element{el}
	}
	below := map[string]bool{el.ID: true}
	// Parents may come after their children in z-order, so repeat until no
	// new members are found.
	for changed := true; changed; {
		changed = false
		for _, e := range all {
			if !below[e.ID] && below[e.ParentID] {
				below[e.ID] = true
				changed = true
			}
		}
	}
	out := []state.Element{el}
	for _, e := range all {
		if e.ID != el.ID && below[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
