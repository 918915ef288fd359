package render

import (
	"image"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg"

	"CanvasBoard/internal/state"
)

var (
	placeholderFill   = gg.Hex("#e5e7eb")
	placeholderStroke = gg.Hex("#9ca3af")
	videoFill         = gg.Hex("#111827")
	defaultInk        = gg.Hex("#111111")
)

// painter draws elements onto a gg context in canvas coordinates. It keeps
// the gg image buffers of decoded handles so a frame does not convert every
// bitmap again.
type painter struct {
	fonts *fontBook

	mu   sync.Mutex
	bufs map[image.Image]*gg.ImageBuf
}

func newPainter() *painter {
	return &painter{fonts: defaultFonts, bufs: make(map[image.Image]*gg.ImageBuf)}
}

func (p *painter) imageBuf(img image.Image) *gg.ImageBuf {
	p.mu.Lock()
	defer p.mu.Unlock()
	if buf, ok := p.bufs[img]; ok {
		return buf
	}
	if len(p.bufs) >= 128 {
		p.bufs = make(map[image.Image]*gg.ImageBuf)
	}
	buf := gg.ImageBufFromImage(img)
	p.bufs[img] = buf
	return buf
}

// paint draws one element. Hidden elements and groups draw nothing; a
// group's children are drawn as elements in their own right.
func (p *painter) paint(dc *gg.Context, el state.Element, progress float64) error {
	if !el.Visible {
		return nil
	}
	switch el.Type {
	case state.TypeImage:
		return p.paintImage(dc, el)
	case state.TypeVideo:
		return p.paintVideo(dc, el, progress)
	case state.TypePath:
		return p.paintPath(dc, el)
	case state.TypeShape:
		return p.paintShape(dc, el)
	case state.TypeText:
		p.paintText(dc, el)
	case state.TypeLine, state.TypeArrow:
		return p.paintSegment(dc, el)
	}
	return nil
}

func (p *painter) paintImage(dc *gg.Context, el state.Element) error {
	if el.Image.Handle == nil {
		return paintPlaceholder(dc, el.Rect())
	}
	dc.Push()
	defer dc.Pop()
	if r := el.Image.BorderRadius; r > 0 {
		dc.DrawRoundedRectangle(el.X, el.Y, el.Width, el.Height, r)
		dc.Clip()
	}
	dc.DrawImageEx(p.imageBuf(el.Image.Handle), gg.DrawImageOptions{
		X:             el.X,
		Y:             el.Y,
		DstWidth:      el.Width,
		DstHeight:     el.Height,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
	return nil
}

func paintPlaceholder(dc *gg.Context, r state.Rect) error {
	dc.SetColor(placeholderFill.Color())
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.SetColor(placeholderStroke.Color())
	dc.SetLineWidth(1)
	dc.SetDash(6, 4)
	defer dc.ClearDash()
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	dc.MoveTo(r.X, r.Y)
	dc.LineTo(r.MaxX(), r.MaxY())
	dc.MoveTo(r.MaxX(), r.Y)
	dc.LineTo(r.X, r.MaxY())
	return dc.Stroke()
}

// paintVideo draws a poster frame: there is no video decoder, so a
// reachable source shows a play or pause glyph and a progress bar while
// playing.
func (p *painter) paintVideo(dc *gg.Context, el state.Element, progress float64) error {
	r := el.Rect()
	if el.Video.Handle == nil {
		if err := paintPlaceholder(dc, r); err != nil {
			return err
		}
		if el.Video.Generating {
			return paintSpinner(dc, r.Center(), math.Min(r.Width, r.Height)/6, progress)
		}
		return nil
	}
	dc.SetColor(videoFill.Color())
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	if err := dc.Fill(); err != nil {
		return err
	}
	c := r.Center()
	s := math.Min(r.Width, r.Height) / 6
	dc.SetRGBA(1, 1, 1, 0.85)
	if el.Video.IsPlaying {
		dc.DrawRectangle(c.X-s*0.6, c.Y-s, s*0.4, 2*s)
		dc.DrawRectangle(c.X+s*0.2, c.Y-s, s*0.4, 2*s)
		if err := dc.Fill(); err != nil {
			return err
		}
		bar := r.Width * (progress - math.Floor(progress))
		dc.SetRGBA(1, 1, 1, 0.6)
		dc.DrawRectangle(r.X, r.MaxY()-4, bar, 4)
		return dc.Fill()
	}
	dc.MoveTo(c.X-s*0.7, c.Y-s)
	dc.LineTo(c.X+s, c.Y)
	dc.LineTo(c.X-s*0.7, c.Y+s)
	dc.ClosePath()
	return dc.Fill()
}

func paintSpinner(dc *gg.Context, c state.Point, radius, progress float64) error {
	if radius <= 0 {
		return nil
	}
	start := 2 * math.Pi * (progress - math.Floor(progress))
	dc.SetColor(placeholderStroke.Color())
	dc.SetLineWidth(math.Max(2, radius/5))
	dc.DrawArc(c.X, c.Y, radius, start, start+1.5*math.Pi)
	return dc.Stroke()
}

func (p *painter) paintPath(dc *gg.Context, el state.Element) error {
	d := el.Path
	col := withAlpha(colorOr(d.StrokeColor, defaultInk), d.StrokeOpacity)
	dc.SetColor(col.Color())
	if len(d.Points) == 1 {
		dc.DrawCircle(d.Points[0].X, d.Points[0].Y, math.Max(d.StrokeWidth/2, 0.5))
		return dc.Fill()
	}
	dc.SetLineWidth(d.StrokeWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.MoveTo(d.Points[0].X, d.Points[0].Y)
	for _, pt := range d.Points[1:] {
		dc.LineTo(pt.X, pt.Y)
	}
	return dc.Stroke()
}

func (p *painter) paintShape(dc *gg.Context, el state.Element) error {
	d := el.Shape
	shapePath := func() {
		switch d.ShapeType {
		case state.ShapeEllipse:
			dc.DrawEllipse(el.X+el.Width/2, el.Y+el.Height/2, el.Width/2, el.Height/2)
		case state.ShapeTriangle:
			dc.MoveTo(el.X+el.Width/2, el.Y)
			dc.LineTo(el.X+el.Width, el.Y+el.Height)
			dc.LineTo(el.X, el.Y+el.Height)
			dc.ClosePath()
		default:
			if d.BorderRadius > 0 {
				dc.DrawRoundedRectangle(el.X, el.Y, el.Width, el.Height, d.BorderRadius)
			} else {
				dc.DrawRectangle(el.X, el.Y, el.Width, el.Height)
			}
		}
	}
	if fill, ok := ParseColor(d.FillColor); ok && fill.A > 0 {
		dc.SetColor(fill.Color())
		shapePath()
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	if d.StrokeWidth > 0 {
		dc.SetColor(colorOr(d.StrokeColor, defaultInk).Color())
		dc.SetLineWidth(d.StrokeWidth)
		dc.SetLineJoin(gg.LineJoinRound)
		shapePath()
		return dc.Stroke()
	}
	return nil
}

func (p *painter) paintText(dc *gg.Context, el state.Element) {
	d := el.Text
	face := p.fonts.face(d.FontSize)
	if face == nil {
		return
	}
	dc.SetFont(face)
	dc.SetColor(colorOr(d.FillColor, defaultInk).Color())
	ascent := face.Metrics().Ascent
	for i, line := range strings.Split(d.Text, "\n") {
		dc.DrawString(line, el.X, el.Y+ascent+float64(i)*d.FontSize*lineSpacing)
	}
}

func (p *painter) paintSegment(dc *gg.Context, el state.Element) error {
	d := el.Line
	a, b := d.Points[0], d.Points[1]
	col := colorOr(d.StrokeColor, defaultInk)
	dc.SetColor(col.Color())
	dc.SetLineWidth(d.StrokeWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	if err := dc.Stroke(); err != nil {
		return err
	}
	if el.Type != state.TypeArrow {
		return nil
	}
	return paintArrowHead(dc, a, b, d.StrokeWidth)
}

// arrowHeadAngle is the half-angle of the arrow head.
const arrowHeadAngle = math.Pi / 6

func paintArrowHead(dc *gg.Context, from, to state.Point, width float64) error {
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx == 0 && dy == 0 {
		return nil
	}
	angle := math.Atan2(dy, dx)
	size := math.Max(10, width*3)
	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-size*math.Cos(angle-arrowHeadAngle), to.Y-size*math.Sin(angle-arrowHeadAngle))
	dc.LineTo(to.X-size*math.Cos(angle+arrowHeadAngle), to.Y-size*math.Sin(angle+arrowHeadAngle))
	dc.ClosePath()
	return dc.Fill()
}
