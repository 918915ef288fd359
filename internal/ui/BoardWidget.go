package ui

import (
	"context"
	"image"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/editor"
	"CanvasBoard/internal/interact"
	"CanvasBoard/internal/render"
	"CanvasBoard/internal/state"
)

const (
	tickInterval = 50 * time.Millisecond
	zoomStep     = 1.1
)

// BoardWidget hosts the board: it turns fyne pointer and keyboard events
// into controller events and paints frames from the render pipeline.
type BoardWidget struct {
	widget.BaseWidget
	ed       *editor.Editor
	pipeline *render.Pipeline
	raster   *canvas.Raster
	mods     interact.Modifiers
	OnStatus func(string)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Focusable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ fyne.Shortcutable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Keyable = (*BoardWidget)(nil)

func NewBoardWidget(ed *editor.Editor) *BoardWidget {
	b := &BoardWidget{
		ed:       ed,
		pipeline: render.NewPipeline(),
	}
	b.raster = canvas.NewRaster(b.draw)
	b.ExtendBaseWidget(b)
	ed.OnChange(b.raster.Refresh)
	return b
}

func (b *BoardWidget) ctl() *interact.Controller { return b.ed.Controller() }

// draw renders one frame at the raster's pixel size. The viewport is in
// device independent units, so it is scaled to pixels here.
func (b *BoardWidget) draw(w, h int) image.Image {
	size := b.Size()
	b.ed.SetViewSize(float64(size.Width), float64(size.Height))
	f := b.ed.Frame()
	if size.Width > 0 {
		s := float64(w) / float64(size.Width)
		f.Viewport.Zoom *= s
		f.Viewport.PanX *= s
		f.Viewport.PanY *= s
	}
	img, err := b.pipeline.RenderImage(w, h, f)
	if err != nil {
		log.Printf("Render failed: %v", err)
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return img
}

// Animate refreshes the board while something on it moves by itself, such
// as a playing video or the caret of a text edit, until ctx is done.
func (b *BoardWidget) Animate(ctx context.Context) {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fyne.Do(func() {
				if b.ed.NeedsContinuousRedraw() || b.ctl().Editing() != "" {
					b.raster.Refresh()
				}
			})
		}
	}
}

func (b *BoardWidget) status(text string) {
	if b.OnStatus != nil {
		b.OnStatus(text)
	}
}

func toPoint(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func toModifiers(m fyne.KeyModifier) interact.Modifiers {
	var out interact.Modifiers
	if m&fyne.KeyModifierShift != 0 {
		out |= interact.ModShift
	}
	if m&fyne.KeyModifierControl != 0 {
		out |= interact.ModCtrl
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= interact.ModAlt
	}
	if m&fyne.KeyModifierSuper != 0 {
		out |= interact.ModSuper
	}
	return out
}

func toButton(btn desktop.MouseButton) interact.Button {
	switch btn {
	case desktop.MouseButtonSecondary:
		return interact.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return interact.ButtonTertiary
	}
	return interact.ButtonPrimary
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
	p := toPoint(e.Position)
	if e.Button == desktop.MouseButtonSecondary {
		// Secondary click plays or pauses a video without starting a drag.
		if id := b.ctl().ElementAt(p); id != "" {
			if el, ok := b.ed.Store().Get(id); ok && el.Type == state.TypeVideo {
				b.ed.TogglePlay(id)
			}
		}
		return
	}
	b.ctl().PointerDown(interact.PointerEvent{Screen: p, Button: toButton(e.Button), Modifiers: toModifiers(e.Modifier)})
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.ctl().PointerUp(interact.PointerEvent{Screen: toPoint(e.Position), Modifiers: toModifiers(e.Modifier)})
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.ctl().PointerMove(interact.PointerEvent{Screen: toPoint(e.Position), Modifiers: b.mods})
}

func (b *BoardWidget) DragEnd() {}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	b.ctl().PointerMove(interact.PointerEvent{Screen: toPoint(e.Position), Modifiers: toModifiers(e.Modifier)})
}

func (b *BoardWidget) MouseOut() {
	b.ctl().PointerLeave()
}

// Scrolled zooms about the pointer.
func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	factor := zoomStep
	if e.Scrolled.DY < 0 {
		factor = 1 / zoomStep
	}
	b.ctl().ZoomAt(toPoint(e.Position), factor)
}

func (b *BoardWidget) FocusGained() {}
func (b *BoardWidget) FocusLost()   {}

func (b *BoardWidget) TypedRune(r rune) {
	if b.ctl().Editing() != "" {
		b.ctl().TypeText(string(r))
	}
}

func (b *BoardWidget) TypedKey(e *fyne.KeyEvent) {
	ev := interact.KeyEvent{Key: interact.Key(e.Name), Modifiers: b.mods}
	if e.Name == fyne.KeyEnter {
		ev.Key = interact.KeyEnter
	}
	b.ctl().Key(ev)
}

func (b *BoardWidget) KeyDown(e *fyne.KeyEvent) {
	b.mods |= keyModifier(e.Name)
}

func (b *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	b.mods &^= keyModifier(e.Name)
}

func keyModifier(k fyne.KeyName) interact.Modifiers {
	switch k {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return interact.ModShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return interact.ModCtrl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return interact.ModAlt
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return interact.ModSuper
	}
	return 0
}

// TypedShortcut forwards Ctrl/Cmd combinations to the controller.
func (b *BoardWidget) TypedShortcut(s fyne.Shortcut) {
	cs, ok := s.(*desktop.CustomShortcut)
	if !ok {
		return
	}
	b.ctl().Key(interact.KeyEvent{Key: interact.Key(cs.KeyName), Modifiers: toModifiers(cs.Modifier)})
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(b.raster)
}

func (b *BoardWidget) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}
