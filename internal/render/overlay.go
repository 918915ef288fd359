package render

import (
	"slices"

	"github.com/gogpu/gg"

	"CanvasBoard/internal/state"
)

var (
	selectionColor = gg.Hex("#2563eb")
	hoverColor     = gg.Hex("#93c5fd")
	cropShade      = gg.RGBA2(0, 0, 0, 0.45)
)

func (p *Pipeline) paintOverlay(dc *gg.Context, f Frame, zoom float64) error {
	o := f.Overlay
	px := 1 / zoom

	if o.Hover != "" && !slices.Contains(o.Selection, o.Hover) {
		if b, ok := boundsOf(o.Hover, f.Elements); ok {
			dc.SetColor(hoverColor.Color())
			dc.SetLineWidth(px)
			dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
			if err := dc.Stroke(); err != nil {
				return err
			}
		}
	}

	var selected []state.Rect
	for _, id := range o.Selection {
		if b, ok := boundsOf(id, f.Elements); ok {
			selected = append(selected, b)
		}
	}
	dc.SetColor(selectionColor.Color())
	dc.SetLineWidth(1.5 * px)
	for _, b := range selected {
		dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	if o.Handles && len(selected) == 1 && o.CropBox == nil {
		if err := p.paintHandles(dc, selected[0], px); err != nil {
			return err
		}
	}

	if o.CropBox != nil {
		if err := p.paintCrop(dc, f, *o.CropBox, px); err != nil {
			return err
		}
	}

	if len(o.Lasso) > 1 {
		dc.SetColor(selectionColor.Color())
		dc.SetLineWidth(px)
		dc.SetDash(4*px, 4*px)
		dc.MoveTo(o.Lasso[0].X, o.Lasso[0].Y)
		for _, pt := range o.Lasso[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		err := dc.Stroke()
		dc.ClearDash()
		if err != nil {
			return err
		}
	}

	if o.Marquee != nil {
		m := *o.Marquee
		dc.SetColor(withAlpha(selectionColor, 0.15).Color())
		dc.DrawRectangle(m.X, m.Y, m.Width, m.Height)
		if err := dc.Fill(); err != nil {
			return err
		}
	}

	if o.EditingID != "" && o.Caret {
		if el, ok := find(o.EditingID, f.Elements); ok && el.Type == state.TypeText {
			_, h := MeasureText(el.Text.Text, el.Text.FontSize)
			lineH := el.Text.FontSize * lineSpacing
			dc.SetColor(colorOr(el.Text.FillColor, defaultInk).Color())
			dc.SetLineWidth(px)
			x := el.X + lastLineWidth(el.Text.Text, el.Text.FontSize)
			dc.DrawLine(x+px, el.Y+h-lineH, x+px, el.Y+h)
			return dc.Stroke()
		}
	}
	return nil
}

func (p *Pipeline) paintHandles(dc *gg.Context, r state.Rect, px float64) error {
	s := p.HandleSize * px
	for _, h := range state.ResizeHandles {
		a := h.Anchor(r)
		dc.DrawRectangle(a.X-s/2, a.Y-s/2, s, s)
	}
	dc.SetRGB(1, 1, 1)
	if err := dc.FillPreserve(); err != nil {
		return err
	}
	dc.SetColor(selectionColor.Color())
	dc.SetLineWidth(px)
	return dc.Stroke()
}

// paintCrop shades the part of the target outside the crop box and draws
// the box with its grips.
func (p *Pipeline) paintCrop(dc *gg.Context, f Frame, box state.Rect, px float64) error {
	if el, ok := find(f.Overlay.CropTarget, f.Elements); ok {
		r := el.Rect()
		dc.SetColor(cropShade.Color())
		for _, band := range []state.Rect{
			{X: r.X, Y: r.Y, Width: r.Width, Height: box.Y - r.Y},
			{X: r.X, Y: box.MaxY(), Width: r.Width, Height: r.MaxY() - box.MaxY()},
			{X: r.X, Y: box.Y, Width: box.X - r.X, Height: box.Height},
			{X: box.MaxX(), Y: box.Y, Width: r.MaxX() - box.MaxX(), Height: box.Height},
		} {
			if band.Width > 0 && band.Height > 0 {
				dc.DrawRectangle(band.X, band.Y, band.Width, band.Height)
			}
		}
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(1.5 * px)
	dc.SetDash(6*px, 3*px)
	dc.DrawRectangle(box.X, box.Y, box.Width, box.Height)
	err := dc.Stroke()
	dc.ClearDash()
	if err != nil {
		return err
	}
	return p.paintHandles(dc, box, px)
}

func lastLineWidth(s string, fontSize float64) float64 {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			s = s[i+1:]
			break
		}
	}
	w, _ := MeasureText(s, fontSize)
	return w
}

func boundsOf(id string, all []state.Element) (state.Rect, bool) {
	el, ok := find(id, all)
	if !ok {
		return state.Rect{}, false
	}
	return state.Bounds(el, all), true
}

func find(id string, all []state.Element) (state.Element, bool) {
	for _, el := range all {
		if el.ID == id {
			return el, true
		}
	}
	return state.Element{}, false
}
