package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanvasBoard/internal/state"
)

func decode(t *testing.T, bm Bitmap) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(bm.Data))
	require.NoError(t, err)
	assert.Equal(t, bm.Width, img.Bounds().Dx())
	assert.Equal(t, bm.Height, img.Bounds().Dy())
	return img
}

func isRed(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return a > 0xc000 && r > 0xc000 && g < 0x4000 && b < 0x4000
}

func isWhite(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return a > 0xf000 && r > 0xf000 && g > 0xf000 && b > 0xf000
}

// quadrants returns a w×h image whose left half is red and right half is
// blue.
func quadrants(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want [4]float64
	}{
		{"#ff0000", true, [4]float64{255, 0, 0, 255}},
		{"#0f0", true, [4]float64{0, 255, 0, 255}},
		{"#0000ff80", true, [4]float64{0, 0, 255, 128}},
		{"white", true, [4]float64{255, 255, 255, 255}},
		{"transparent", true, [4]float64{}},
		{"#12345", false, [4]float64{}},
		{"#zzzzzz", false, [4]float64{}},
		{"chartreuse-ish", false, [4]float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, ok := ParseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				got := [4]float64{c.R * 255, c.G * 255, c.B * 255, c.A * 255}
				for i := range got {
					assert.InDelta(t, tt.want[i], got[i], 0.5)
				}
			}
		})
	}
}

func TestRasterizeShapeWithPadding(t *testing.T) {
	r := NewRasterizer(DefaultPadding)
	el := state.NewShape(state.ShapeRectangle, state.Rect{X: 100, Y: 50, Width: 40, Height: 30}, "#ff0000", "#ff0000", 0)
	bm, err := r.Rasterize(el, []state.Element{el})
	require.NoError(t, err)
	assert.Equal(t, "image/png", bm.MimeType)
	assert.Equal(t, 60, bm.Width)
	assert.Equal(t, 50, bm.Height)

	img := decode(t, bm)
	assert.True(t, isRed(img.At(30, 25)), "shape interior")
	_, _, _, a := img.At(2, 2).RGBA()
	assert.Zero(t, a, "padding stays transparent")
	assert.Contains(t, bm.DataURL(), "data:image/png;base64,")
}

func TestRasterizeRejectsImages(t *testing.T) {
	r := NewRasterizer(DefaultPadding)
	el := state.NewImage("a.png", "image/png", state.Rect{Width: 10, Height: 10})
	_, err := r.Rasterize(el, nil)
	assert.ErrorIs(t, err, ErrNotRasterizable)
}

func TestRasterizeGroupIncludesChildren(t *testing.T) {
	a := state.NewShape(state.ShapeRectangle, state.Rect{X: 0, Y: 0, Width: 10, Height: 10}, "#ff0000", "", 0)
	b := state.NewShape(state.ShapeRectangle, state.Rect{X: 30, Y: 0, Width: 10, Height: 10}, "#ff0000", "", 0)
	store, err := state.NewStore(a, b)
	require.NoError(t, err)
	g, err := store.Group("", a.ID, b.ID)
	require.NoError(t, err)

	bm, err := NewRasterizer(0).Rasterize(g, store.Elements())
	require.NoError(t, err)
	img := decode(t, bm)
	assert.Equal(t, 40, bm.Width)
	assert.True(t, isRed(img.At(5, 5)))
	assert.True(t, isRed(img.At(35, 5)))
}

func TestCropMapsDisplayToNative(t *testing.T) {
	el := state.NewImage("q.png", "image/png", state.Rect{X: 100, Y: 100, Width: 100, Height: 50})
	el.Image.Handle = quadrants(200, 100)

	// Right half of the display rect: native pixels 100..200.
	bm, img, err := NewRasterizer(DefaultPadding).Crop(el, state.Rect{X: 150, Y: 110, Width: 50, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, 100, bm.Width)
	assert.Equal(t, 40, bm.Height)
	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.NotZero(t, b)

	_, _, err = NewRasterizer(0).Crop(state.NewImage("x", "image/png", state.Rect{Width: 1, Height: 1}), state.Rect{})
	assert.ErrorIs(t, err, ErrNoSourceBitmap)
}

func TestCropAfterCropDoesNotCompound(t *testing.T) {
	el := state.NewImage("q.png", "image/png", state.Rect{X: 0, Y: 0, Width: 100, Height: 50})
	el.Image.Handle = quadrants(200, 100)
	rz := NewRasterizer(0)

	_, first, err := rz.Crop(el, state.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	require.NoError(t, err)
	el.Image.Handle = first
	el.Width, el.Height = 50, 50
	assert.Equal(t, image.Rect(0, 0, 100, 100), first.Bounds())

	_, second, err := rz.Crop(el, state.Rect{X: 0, Y: 0, Width: 25, Height: 25})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 50), second.Bounds())
}

func TestFlattenDrawsAtNativeResolution(t *testing.T) {
	white := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	base := state.NewImage("w.png", "image/png", state.Rect{X: 10, Y: 10, Width: 50, Height: 50})
	base.Image.Handle = white
	mark := state.NewShape(state.ShapeRectangle, state.Rect{X: 10, Y: 10, Width: 25, Height: 25}, "#ff0000", "", 0)

	bm, img, err := NewRasterizer(DefaultPadding).Flatten(base, []state.Element{mark})
	require.NoError(t, err)
	assert.Equal(t, 100, bm.Width)
	assert.True(t, isRed(img.At(20, 20)))
	assert.True(t, isWhite(img.At(80, 80)))

	base.Image.Handle = nil
	_, _, err = NewRasterizer(0).Flatten(base, nil)
	assert.ErrorIs(t, err, ErrNoSourceBitmap)
}

func TestRenderImageAppliesViewport(t *testing.T) {
	el := state.NewShape(state.ShapeRectangle, state.Rect{X: 0, Y: 0, Width: 10, Height: 10}, "#ff0000", "", 0)
	p := NewPipeline()
	img, err := p.RenderImage(100, 100, Frame{
		Elements: []state.Element{el},
		Viewport: state.Viewport{PanX: 40, PanY: 40, Zoom: 2},
		Time:     time.Unix(0, 0),
	})
	require.NoError(t, err)
	assert.True(t, isRed(img.At(50, 50)))
	assert.True(t, isWhite(img.At(20, 20)))
	assert.True(t, isWhite(img.At(70, 70)))
}

func TestRenderSkipsHiddenAndDrawsPlaceholder(t *testing.T) {
	hidden := state.NewShape(state.ShapeRectangle, state.Rect{X: 0, Y: 0, Width: 50, Height: 50}, "#ff0000", "", 0)
	hidden.Visible = false
	pending := state.NewImage("later.png", "image/png", state.Rect{X: 50, Y: 50, Width: 40, Height: 40})
	img, err := NewPipeline().RenderImage(100, 100, Frame{
		Elements: []state.Element{hidden, pending},
		Viewport: state.DefaultViewport(),
	})
	require.NoError(t, err)
	assert.True(t, isWhite(img.At(25, 25)))
	assert.False(t, isWhite(img.At(60, 75)), "placeholder fill")
}

func TestNeedsContinuousRedraw(t *testing.T) {
	v := state.NewVideo("v.mp4", state.Rect{Width: 10, Height: 10})
	assert.False(t, NeedsContinuousRedraw([]state.Element{v}))
	v.Video.IsPlaying = true
	assert.True(t, NeedsContinuousRedraw([]state.Element{v}))
	p := state.NewVideo("", state.Rect{Width: 10, Height: 10})
	p.Video.Generating = true
	assert.True(t, NeedsContinuousRedraw([]state.Element{p}))
}

func TestMeasureText(t *testing.T) {
	w1, h1 := MeasureText("hi", 20)
	w2, h2 := MeasureText("hi there", 20)
	assert.Greater(t, w1, 0.0)
	assert.Greater(t, w2, w1)
	assert.Equal(t, h1, h2)
	_, h3 := MeasureText("a\nb", 20)
	assert.InDelta(t, 2*h1, h3, 1e-9)
}

func TestFitKeepsSmallImages(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 10, 20))
	assert.Same(t, small, Fit(small, 100))
	big := Fit(image.NewRGBA(image.Rect(0, 0, 400, 200)), 100)
	assert.Equal(t, 100, big.Bounds().Dx())
	assert.Equal(t, 50, big.Bounds().Dy())
}
