package render

import (
	"image"
	"time"

	"github.com/gogpu/gg"

	"CanvasBoard/internal/state"
)

// cullMargin widens element bounds before culling so strokes and arrow
// heads near the edge still draw.
const cullMargin = 64

// Overlay is the transient interaction state drawn on top of the board.
type Overlay struct {
	Selection  []string
	Hover      string
	Handles    bool
	CropTarget string
	CropBox    *state.Rect
	Lasso      []state.Point
	EditingID  string
	Caret      bool
	Marquee    *state.Rect
}

// Frame is everything needed to draw one frame.
type Frame struct {
	Elements []state.Element
	Viewport state.Viewport
	Overlay  Overlay
	Time     time.Time
}

// Pipeline draws frames.
type Pipeline struct {
	Background gg.RGBA
	// HandleSize is the on-screen edge length of a resize grip.
	HandleSize float64

	painter *painter
}

// NewPipeline returns a pipeline with a white background.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Background: gg.RGB(1, 1, 1),
		HandleSize: 8,
		painter:    newPainter(),
	}
}

// Render clears dc and draws the frame. Elements are drawn in slice order,
// so later elements cover earlier ones.
func (p *Pipeline) Render(dc *gg.Context, f Frame) error {
	dc.ClearWithColor(p.Background)
	vp := f.Viewport
	if vp.Zoom <= 0 {
		vp.Zoom = 1
	}
	visible := vp.Visible(float64(dc.Width()), float64(dc.Height()))
	progress := float64(f.Time.UnixMilli()%2000) / 2000

	dc.Push()
	defer dc.Pop()
	dc.Translate(vp.PanX, vp.PanY)
	dc.Scale(vp.Zoom, vp.Zoom)
	for _, el := range f.Elements {
		if !el.Visible || el.Type == state.TypeGroup {
			continue
		}
		if el.ID == f.Overlay.EditingID && el.Type == state.TypeText && el.Text.Text == "" {
			continue
		}
		if b := state.Bounds(el, f.Elements); !b.Grow(cullMargin).Intersects(visible) {
			continue
		}
		if err := p.painter.paint(dc, el, progress); err != nil {
			return err
		}
	}
	return p.paintOverlay(dc, f, vp.Zoom)
}

// RenderImage draws the frame into a new w×h image.
func (p *Pipeline) RenderImage(w, h int, f Frame) (image.Image, error) {
	dc := gg.NewContext(w, h)
	defer dc.Close()
	if err := p.Render(dc, f); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// NeedsContinuousRedraw reports whether the frame changes without input:
// a video is playing or a generation placeholder is waiting.
func NeedsContinuousRedraw(elements []state.Element) bool {
	for _, el := range elements {
		if el.Type == state.TypeVideo && el.Video != nil && (el.Video.IsPlaying || el.Video.Generating) {
			return true
		}
	}
	return false
}
