// Package export writes boards to PDF.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/render"
	"CanvasBoard/internal/state"
)

// ErrEmptyBoard is returned when there is nothing visible to export.
var ErrEmptyBoard = errors.New("export: board has no visible elements")

// Options controls PDF output.
type Options struct {
	// Margin around the content, in canvas units.
	Margin float64
	Title  string
}

// DefaultOptions is a 24 unit margin and no title.
func DefaultOptions() Options {
	return Options{Margin: 24}
}

// ExportPDF writes elements as a single page sized to their visible
// bounds. One canvas unit is one point.
func ExportPDF(w io.Writer, elements []state.Element, opts Options) error {
	page, ok := contentBounds(elements)
	if !ok {
		return ErrEmptyBoard
	}
	page = page.Grow(opts.Margin)

	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	p.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		p.SetTitle(opts.Title, true)
	}
	p.SetCreator("CanvasBoard", true)
	p.AddPage()

	d := &pdfDrawer{pdf: p, origin: state.Point{X: page.X, Y: page.Y}, tr: p.UnicodeTranslatorFromDescriptor("")}
	for _, el := range elements {
		if !el.Visible || el.Type == state.TypeGroup {
			continue
		}
		d.draw(el)
		if err := p.Error(); err != nil {
			return fmt.Errorf("export %s: %w", el.ID, err)
		}
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	logging.Logger().Info("board exported", "elements", len(elements), "width", page.Width, "height", page.Height)
	return nil
}

// ExportFile is ExportPDF into the file at path.
func ExportFile(path string, elements []state.Element, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportPDF(f, elements, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func contentBounds(elements []state.Element) (state.Rect, bool) {
	var visible []state.Element
	for _, el := range elements {
		if el.Visible && el.Type != state.TypeGroup {
			visible = append(visible, el)
		}
	}
	r, ok := state.UnionBounds(visible, elements)
	if !ok || r.Width <= 0 || r.Height <= 0 {
		return state.Rect{}, false
	}
	return r, true
}

type pdfDrawer struct {
	pdf    *gofpdf.Fpdf
	origin state.Point
	tr     func(string) string
}

func (d *pdfDrawer) pt(p state.Point) (float64, float64) {
	return p.X - d.origin.X, p.Y - d.origin.Y
}

func (d *pdfDrawer) draw(el state.Element) {
	switch el.Type {
	case state.TypeImage:
		d.image(el)
	case state.TypeVideo:
		d.placeholder(el.Rect())
	case state.TypePath:
		d.path(el.Path)
	case state.TypeShape:
		d.shape(el)
	case state.TypeText:
		d.text(el)
	case state.TypeLine, state.TypeArrow:
		d.segment(el)
	}
}

// stroke sets the draw color and alpha from a CSS color. It reports false
// for transparent colors.
func (d *pdfDrawer) stroke(css string, width, opacity float64) bool {
	c, ok := render.ParseColor(css)
	if !ok || c.A == 0 {
		return false
	}
	d.pdf.SetDrawColor(channel(c.R), channel(c.G), channel(c.B))
	d.pdf.SetAlpha(c.A*opacity, "Normal")
	d.pdf.SetLineWidth(width)
	return true
}

func (d *pdfDrawer) fill(css string) bool {
	c, ok := render.ParseColor(css)
	if !ok || c.A == 0 {
		return false
	}
	d.pdf.SetFillColor(channel(c.R), channel(c.G), channel(c.B))
	return true
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func (d *pdfDrawer) image(el state.Element) {
	if el.Image.Handle == nil {
		d.placeholder(el.Rect())
		return
	}
	bm, err := render.Encode(el.Image.Handle)
	if err != nil {
		logging.Logger().Warn("image skipped in export", "element", el.ID, "err", err)
		d.placeholder(el.Rect())
		return
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(el.ID, opt, bytes.NewReader(bm.Data))
	x, y := d.pt(state.Point{X: el.X, Y: el.Y})
	d.pdf.ImageOptions(el.ID, x, y, el.Width, el.Height, false, opt, 0, "")
}

func (d *pdfDrawer) placeholder(r state.Rect) {
	d.pdf.SetAlpha(1, "Normal")
	d.pdf.SetFillColor(229, 231, 235)
	x, y := d.pt(state.Point{X: r.X, Y: r.Y})
	d.pdf.Rect(x, y, r.Width, r.Height, "F")
}

func (d *pdfDrawer) path(p *state.PathData) {
	if !d.stroke(p.StrokeColor, p.StrokeWidth, p.StrokeOpacity) {
		return
	}
	d.pdf.SetLineCapStyle("round")
	d.pdf.SetLineJoinStyle("round")
	if len(p.Points) == 1 {
		c, _ := render.ParseColor(p.StrokeColor)
		d.pdf.SetFillColor(channel(c.R), channel(c.G), channel(c.B))
		x, y := d.pt(p.Points[0])
		d.pdf.Circle(x, y, p.StrokeWidth/2, "F")
		return
	}
	x, y := d.pt(p.Points[0])
	d.pdf.MoveTo(x, y)
	for _, q := range p.Points[1:] {
		x, y = d.pt(q)
		d.pdf.LineTo(x, y)
	}
	d.pdf.DrawPath("D")
}

func (d *pdfDrawer) shape(el state.Element) {
	s := el.Shape
	style := ""
	if d.fill(s.FillColor) {
		style += "F"
	}
	if d.stroke(s.StrokeColor, s.StrokeWidth, 1) {
		style += "D"
	} else {
		d.pdf.SetAlpha(1, "Normal")
	}
	if style == "" {
		return
	}
	x, y := d.pt(state.Point{X: el.X, Y: el.Y})
	switch s.ShapeType {
	case state.ShapeEllipse:
		d.pdf.Ellipse(x+el.Width/2, y+el.Height/2, el.Width/2, el.Height/2, 0, style)
	case state.ShapeTriangle:
		d.pdf.Polygon([]gofpdf.PointType{
			{X: x + el.Width/2, Y: y},
			{X: x + el.Width, Y: y + el.Height},
			{X: x, Y: y + el.Height},
		}, style)
	default:
		d.pdf.Rect(x, y, el.Width, el.Height, style)
	}
}

func (d *pdfDrawer) segment(el state.Element) {
	l := el.Line
	if !d.stroke(l.StrokeColor, l.StrokeWidth, 1) {
		return
	}
	d.pdf.SetLineCapStyle("round")
	ax, ay := d.pt(l.Points[0])
	bx, by := d.pt(l.Points[1])
	d.pdf.Line(ax, ay, bx, by)
	if el.Type != state.TypeArrow {
		return
	}
	size := math.Max(10, l.StrokeWidth*3)
	angle := math.Atan2(by-ay, bx-ax)
	d.fill(l.StrokeColor)
	d.pdf.Polygon([]gofpdf.PointType{
		{X: bx, Y: by},
		{X: bx - size*math.Cos(angle-math.Pi/6), Y: by - size*math.Sin(angle-math.Pi/6)},
		{X: bx - size*math.Cos(angle+math.Pi/6), Y: by - size*math.Sin(angle+math.Pi/6)},
	}, "F")
}

func (d *pdfDrawer) text(el state.Element) {
	t := el.Text
	c, ok := render.ParseColor(t.FillColor)
	if !ok || t.Text == "" {
		return
	}
	style := ""
	if t.FontWeight == "bold" || t.FontWeight == "700" {
		style = "B"
	}
	d.pdf.SetAlpha(c.A, "Normal")
	d.pdf.SetTextColor(channel(c.R), channel(c.G), channel(c.B))
	d.pdf.SetFont("Helvetica", style, t.FontSize)
	x, y := d.pt(state.Point{X: el.X, Y: el.Y})
	for i, line := range strings.Split(t.Text, "\n") {
		baseline := y + t.FontSize*0.8 + float64(i)*t.FontSize*1.2
		d.pdf.Text(x, baseline, d.tr(line))
	}
}
