package interact

import (
	"math"
	"slices"

	"CanvasBoard/internal/state"
)

// GestureState is the scratch state of the gesture in progress. It is
// replaced wholesale when a gesture ends.
type GestureState struct {
	State       State
	StartScreen state.Point
	Start       state.Point
	TargetID    string
	Handle      state.Handle
	StartRect   state.Rect
	// Origins holds the elements touched by a drag or resize as they were
	// when the gesture began.
	Origins  map[string]state.Element
	Moved    bool
	Lasso    []state.Point
	PanStart state.Viewport
}

// PointerDown starts a gesture according to the active mode.
func (c *Controller) PointerDown(ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	p := c.viewport.ToCanvas(ev.Screen)
	if s := c.gesture.State; s != StateIdle && s != StateEditingText {
		c.gesture = GestureState{}
	}

	if c.edit != nil {
		if el, ok := c.store.Get(c.edit.id); ok && el.Rect().Contains(p) {
			return
		}
		c.CommitText()
	}
	if c.crop != nil {
		c.cropDown(p, ev)
		c.notify()
		return
	}

	switch {
	case c.mode == ModePan:
		c.beginPan(ev)
	case c.mode == ModeSelect:
		c.selectDown(p, ev)
	case c.mode.annotates():
		if !c.onMedia(p) {
			return
		}
		c.beginAnnotation(p, ev)
	case c.mode == ModeText:
		c.textDown(p)
	case c.mode == ModeLasso:
		c.gesture = GestureState{State: StateDrawingLasso, Start: p, StartScreen: ev.Screen, Lasso: []state.Point{p}}
	case c.mode == ModeCrop:
		if id := c.hitType(p, state.TypeImage); id != "" {
			c.BeginCrop(id)
		}
	}
	c.notify()
}

// PointerMove continues the gesture in progress, or updates the hover
// target when idle.
func (c *Controller) PointerMove(ev PointerEvent) {
	p := c.viewport.ToCanvas(ev.Screen)
	switch c.gesture.State {
	case StateIdle, StateEditingText:
		if c.mode != ModeSelect {
			return
		}
		if h := c.hitTest(p); h != c.hover {
			c.hover = h
			c.notify()
		}
		return
	}
	if c.track(ev, p) {
		c.notify()
	}
}

// track moves the gesture in progress to p. It reports false when the
// sample changed nothing.
func (c *Controller) track(ev PointerEvent, p state.Point) bool {
	g := &c.gesture
	switch g.State {
	case StatePanning:
		v := g.PanStart
		v.PanX += ev.Screen.X - g.StartScreen.X
		v.PanY += ev.Screen.Y - g.StartScreen.Y
		c.viewport = v
	case StateDragging:
		if !g.Moved && distance(ev.Screen, g.StartScreen) < ClickThreshold {
			return false
		}
		g.Moved = true
		c.applyMove(p.Sub(g.Start))
	case StateResizing:
		c.applyResize(state.Resize(g.StartRect, g.Handle, p.Sub(g.Start), MinSize))
	case StateDrawingPath:
		c.update(g.TargetID, func(el *state.Element) { el.AppendPoint(p) })
	case StateDrawingShape:
		r := state.RectFromPoints(g.Start, p)
		c.update(g.TargetID, func(el *state.Element) {
			el.X, el.Y, el.Width, el.Height = r.X, r.Y, r.Width, r.Height
		})
	case StateDrawingLine:
		c.update(g.TargetID, func(el *state.Element) { el.SetEndpoint(1, p) })
	case StateDrawingLasso:
		g.Lasso = append(g.Lasso, p)
	case StateCropDragging:
		c.crop.box = state.ResizeWithin(g.StartRect, c.crop.original, g.Handle, p.Sub(g.Start), MinSize)
	default:
		return false
	}
	return true
}

// PointerUp ends the gesture in progress at the release point. Completed
// drags, resizes and drawings are recorded in history; clicks and
// degenerate drawings are not.
func (c *Controller) PointerUp(ev PointerEvent) {
	p := c.viewport.ToCanvas(ev.Screen)
	c.track(ev, p)
	g := c.gesture
	switch g.State {
	case StateDragging:
		if !g.Moved {
			c.restoreOrigins()
			if ev.Modifiers&(ModShift|ModCtrl) == 0 {
				c.selection = []string{g.TargetID}
			}
			c.lastClick = click{id: c.lastClick.id, at: c.clock.Now()}
		} else {
			c.Commit()
		}
	case StateResizing, StateDrawingPath:
		c.Commit()
	case StateDrawingShape, StateDrawingLine:
		c.finishShape(g.TargetID)
	case StateDrawingLasso:
		c.finishLasso(g.Lasso)
	}
	c.gesture = GestureState{State: c.restingState()}
	c.notify()
}

// PointerLeave aborts drags, resizes, crop drags and pans without a
// history entry; their geometry stays as last drawn. Drawings in progress
// are finished as if released; a lasso is dropped.
func (c *Controller) PointerLeave() {
	g := c.gesture
	switch g.State {
	case StateDrawingPath:
		c.Commit()
	case StateDrawingShape, StateDrawingLine:
		c.finishShape(g.TargetID)
	}
	c.gesture = GestureState{State: c.restingState()}
	c.hover = ""
	c.notify()
}

func (c *Controller) restingState() State {
	if c.edit != nil {
		return StateEditingText
	}
	return StateIdle
}

func (c *Controller) beginPan(ev PointerEvent) {
	c.gesture = GestureState{State: StatePanning, StartScreen: ev.Screen, PanStart: c.viewport}
}

func (c *Controller) selectDown(p state.Point, ev PointerEvent) {
	if len(c.selection) == 1 {
		if b, ok := c.store.Bounds(c.selection[0]); ok {
			tol := HandleTolerance / c.viewport.Zoom
			if h := state.HandleAt(b, p, tol); h != state.HandleNone && h != state.HandleMove {
				c.beginResize(c.selection[0], h, b, p, ev)
				return
			}
		}
	}

	direct, root := c.hit(p)
	if root == "" {
		c.selection = nil
		c.beginPan(ev)
		return
	}

	now := c.clock.Now()
	if el, ok := c.store.Get(direct); ok && el.Type == state.TypeText &&
		c.lastClick.id == direct && now.Sub(c.lastClick.at) < DoubleClickWindow {
		c.lastClick = click{}
		c.beginEditing(direct, false)
		return
	}
	c.lastClick = click{id: direct, at: now}

	if ev.Modifiers&(ModShift|ModCtrl) != 0 {
		c.toggle(root)
		return
	}
	if !slices.Contains(c.selection, root) {
		c.selection = []string{root}
	}
	c.beginDrag(root, p, ev)
}

func (c *Controller) beginDrag(target string, p state.Point, ev PointerEvent) {
	c.gesture = GestureState{
		State:       StateDragging,
		StartScreen: ev.Screen,
		Start:       p,
		TargetID:    target,
		Origins:     c.snapshot(c.withDescendants(c.selection)),
	}
}

func (c *Controller) beginResize(id string, h state.Handle, b state.Rect, p state.Point, ev PointerEvent) {
	c.gesture = GestureState{
		State:       StateResizing,
		StartScreen: ev.Screen,
		Start:       p,
		TargetID:    id,
		Handle:      h,
		StartRect:   b,
		Origins:     c.snapshot(c.withDescendants([]string{id})),
	}
}

func (c *Controller) snapshot(ids []string) map[string]state.Element {
	out := make(map[string]state.Element, len(ids))
	for _, id := range ids {
		if el, ok := c.store.Get(id); ok {
			out[id] = el
		}
	}
	return out
}

func (c *Controller) applyMove(d state.Point) {
	for id, o := range c.gesture.Origins {
		c.update(id, func(el *state.Element) {
			restoreGeometry(el, o)
			el.Translate(d.X, d.Y)
		})
	}
}

func (c *Controller) applyResize(r state.Rect) {
	from := c.gesture.StartRect
	for id, o := range c.gesture.Origins {
		c.update(id, func(el *state.Element) {
			restoreGeometry(el, o)
			el.MapRect(from, r)
			if el.Text != nil && from.Height > 0 {
				el.Text.FontSize = o.Text.FontSize * r.Height / from.Height
			}
		})
	}
}

func (c *Controller) restoreOrigins() {
	for id, o := range c.gesture.Origins {
		c.update(id, func(el *state.Element) { restoreGeometry(el, o) })
	}
}

// restoreGeometry resets position, size and points of el to those of o,
// leaving everything else, media handles included, as it is now.
func restoreGeometry(el *state.Element, o state.Element) {
	el.X, el.Y, el.Width, el.Height = o.X, o.Y, o.Width, o.Height
	if el.Path != nil && o.Path != nil {
		el.Path.Points = append(el.Path.Points[:0], o.Path.Points...)
	}
	if el.Line != nil && o.Line != nil {
		el.Line.Points = o.Line.Points
	}
	if el.Text != nil && o.Text != nil {
		el.Text.FontSize = o.Text.FontSize
	}
}

func (c *Controller) beginAnnotation(p state.Point, ev PointerEvent) {
	s := c.style
	var (
		el   state.Element
		next State
	)
	switch c.mode {
	case ModeDraw:
		el, next = state.NewPath(p, s.StrokeColor, s.StrokeWidth, 1, state.BrushPen), StateDrawingPath
	case ModeHighlighter:
		el, next = state.NewPath(p, s.StrokeColor, s.StrokeWidth*3, 0.4, state.BrushHighlighter), StateDrawingPath
	case ModeErase:
		el, next = state.NewPath(p, s.EraseColor, s.StrokeWidth*3, 0.5, state.BrushErase), StateDrawingPath
	case ModeRectangle:
		el, next = state.NewShape(state.ShapeRectangle, state.Rect{X: p.X, Y: p.Y}, s.FillColor, s.StrokeColor, s.StrokeWidth), StateDrawingShape
	case ModeEllipse:
		el, next = state.NewShape(state.ShapeEllipse, state.Rect{X: p.X, Y: p.Y}, s.FillColor, s.StrokeColor, s.StrokeWidth), StateDrawingShape
	case ModeTriangle:
		el, next = state.NewShape(state.ShapeTriangle, state.Rect{X: p.X, Y: p.Y}, s.FillColor, s.StrokeColor, s.StrokeWidth), StateDrawingShape
	case ModeLine:
		el, next = state.NewLine(p, p, s.StrokeColor, s.StrokeWidth), StateDrawingLine
	case ModeArrow:
		el, next = state.NewArrow(p, p, s.StrokeColor, s.StrokeWidth), StateDrawingLine
	default:
		return
	}
	el.Locked = true
	if err := c.store.Add(el); err != nil {
		return
	}
	c.gesture = GestureState{State: next, Start: p, StartScreen: ev.Screen, TargetID: el.ID}
}

// finishShape keeps a drawn shape or segment and records it, or discards
// it when it has next to no extent.
func (c *Controller) finishShape(id string) {
	b, ok := c.store.Bounds(id)
	if !ok {
		return
	}
	el, _ := c.store.Get(id)
	degenerate := b.Width < minShapeSize || b.Height < minShapeSize
	if el.Line != nil {
		a, z := el.Line.Points[0], el.Line.Points[1]
		degenerate = distance(a, z) < minShapeSize
	}
	if degenerate {
		c.store.Remove(id)
		return
	}
	c.Commit()
}

func (c *Controller) finishLasso(points []state.Point) {
	els := c.store.Elements()
	var candidates []state.Element
	for _, el := range els {
		if el.Visible && !el.Locked {
			candidates = append(candidates, el)
		}
	}
	var sel []string
	for _, id := range state.SelectInLasso(points, candidates, els) {
		if root := rootOf(id, els); root != "" && !slices.Contains(sel, root) {
			sel = append(sel, root)
		}
	}
	c.selection = sel
}

// hit returns the topmost hittable element under p and its outermost
// group. Hidden and locked elements are skipped, as are elements inside a
// hidden or locked group.
func (c *Controller) hit(p state.Point) (direct, root string) {
	els := c.store.Elements()
	for i := len(els) - 1; i >= 0; i-- {
		el := els[i]
		if !el.Visible || el.Locked || el.Type == state.TypeGroup {
			continue
		}
		if !state.Bounds(el, els).Contains(p) {
			continue
		}
		if r := rootOf(el.ID, els); r != "" {
			return el.ID, r
		}
	}
	return "", ""
}

func (c *Controller) hitTest(p state.Point) string {
	_, root := c.hit(p)
	return root
}

// ElementAt returns the topmost hittable element under a screen point,
// without walking up to its group.
func (c *Controller) ElementAt(screen state.Point) string {
	direct, _ := c.hit(c.viewport.ToCanvas(screen))
	return direct
}

// hitType returns the topmost visible, unlocked element of type t under p.
func (c *Controller) hitType(p state.Point, t state.ElementType) string {
	els := c.store.Elements()
	for i := len(els) - 1; i >= 0; i-- {
		el := els[i]
		if el.Type == t && el.Visible && !el.Locked && el.Rect().Contains(p) {
			return el.ID
		}
	}
	return ""
}

// onMedia reports whether p lies on a visible image or video.
func (c *Controller) onMedia(p state.Point) bool {
	for _, el := range c.store.Elements() {
		if el.IsMedia() && el.Visible && el.Rect().Contains(p) {
			return true
		}
	}
	return false
}

// rootOf walks up the parent chain of id. It returns "" when an ancestor
// is hidden or locked.
func rootOf(id string, els []state.Element) string {
	byID := make(map[string]state.Element, len(els))
	for _, el := range els {
		byID[el.ID] = el
	}
	cur := id
	for {
		el, ok := byID[cur]
		if !ok {
			return ""
		}
		if el.ParentID == "" {
			return cur
		}
		parent, ok := byID[el.ParentID]
		if !ok {
			return cur
		}
		if !parent.Visible || parent.Locked {
			return ""
		}
		cur = parent.ID
	}
}

func distance(a, b state.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
