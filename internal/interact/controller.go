// Package interact is the pointer and keyboard state machine of the board.
// It owns tool modes, selection, the viewport, text editing and the crop
// workflow, and it is the only writer of the element store during
// interaction. A Controller is not safe for concurrent use; the host feeds
// it events from one goroutine.
package interact

import (
	"image"
	"slices"
	"time"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/render"
	"CanvasBoard/internal/state"
)

const (
	// ClickThreshold is the screen distance below which a drag is a click.
	ClickThreshold = 5.0
	// DoubleClickWindow is the time within which a second press on the same
	// text element starts editing it.
	DoubleClickWindow = 300 * time.Millisecond
	// MinSize is the smallest width or height reachable by resizing.
	MinSize = 20.0
	// HandleTolerance is the screen distance within which a grip is hit.
	HandleTolerance = 6.0

	minShapeSize = 2.0
)

// TextMeasurer returns the laid-out size of text at fontSize.
type TextMeasurer func(text string, fontSize float64) (width, height float64)

// Cropper materializes the part of an image element under a crop box.
type Cropper interface {
	Crop(el state.Element, box state.Rect) (render.Bitmap, image.Image, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for double-click detection.
func WithClock(c state.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithTextMeasurer sets how committed text is measured.
func WithTextMeasurer(m TextMeasurer) Option {
	return func(ctl *Controller) { ctl.measure = m }
}

// WithCropper sets the crop backend.
func WithCropper(cr Cropper) Option {
	return func(ctl *Controller) { ctl.cropper = cr }
}

// WithStyle sets the initial drawing style.
func WithStyle(s Style) Option {
	return func(ctl *Controller) { ctl.style = s }
}

type click struct {
	id string
	at time.Time
}

type cropSession struct {
	targetID string
	box      state.Rect
	original state.Rect
}

type textEdit struct {
	id      string
	created bool
}

// Controller turns pointer and keyboard events into store mutations.
type Controller struct {
	store   *state.Store
	history *state.History
	clock   state.Clock
	measure TextMeasurer
	cropper Cropper
	style   Style

	mode      Mode
	viewport  state.Viewport
	selection []string
	hover     string
	gesture   GestureState
	lastClick click
	crop      *cropSession
	edit      *textEdit

	onChange  []func()
	onCommit  []func([]state.Element)
	onRestore []func([]state.Element)
}

// New creates a controller over store. History is seeded with the store's
// current contents when it is empty.
func New(store *state.Store, history *state.History, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		history:  history,
		clock:    state.SystemClock{},
		measure:  render.MeasureText,
		cropper:  render.NewRasterizer(0),
		style:    DefaultStyle(),
		mode:     ModeSelect,
		viewport: state.DefaultViewport(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if history.Len() == 0 {
		history.Reset(store.Elements())
	}
	return c
}

// OnChange registers fn to run after every change that affects drawing.
func (c *Controller) OnChange(fn func()) {
	c.onChange = append(c.onChange, fn)
}

// OnCommit registers fn to run after every history entry, with the
// committed element list.
func (c *Controller) OnCommit(fn func([]state.Element)) {
	c.onCommit = append(c.onCommit, fn)
}

// OnRestore registers fn to run after undo or redo replaced the store,
// with the restored list. Media handles not carried over from the previous
// list are nil and need resolving.
func (c *Controller) OnRestore(fn func([]state.Element)) {
	c.onRestore = append(c.onRestore, fn)
}

func (c *Controller) notify() {
	for _, fn := range c.onChange {
		fn()
	}
}

// Store returns the element store.
func (c *Controller) Store() *state.Store { return c.store }

// History returns the undo log.
func (c *Controller) History() *state.History { return c.history }

// Mode returns the active tool.
func (c *Controller) Mode() Mode { return c.mode }

// State returns the gesture state.
func (c *Controller) State() State { return c.gesture.State }

// Style returns the drawing style.
func (c *Controller) Style() Style { return c.style }

// SetStyle replaces the drawing style used by new annotations.
func (c *Controller) SetStyle(s Style) { c.style = s }

// SetMode switches tools. Open text edits are committed and an active crop
// is cancelled, except when switching to crop with one image selected,
// which starts cropping it.
func (c *Controller) SetMode(m Mode) {
	if c.edit != nil {
		c.CommitText()
	}
	if c.crop != nil && m != ModeCrop {
		c.CancelCrop()
	}
	c.gesture = GestureState{}
	c.mode = m
	if m == ModeCrop && c.crop == nil && len(c.selection) == 1 {
		if el, ok := c.store.Get(c.selection[0]); ok && el.Type == state.TypeImage {
			c.BeginCrop(el.ID)
		}
	}
	logging.Logger().Debug("mode changed", "mode", m)
	c.notify()
}

// Finish closes whatever modal work is open: a text edit is committed and
// a crop is cancelled. Hosts call it before saving or switching boards.
func (c *Controller) Finish() {
	if c.edit != nil {
		c.CommitText()
	}
	if c.crop != nil {
		c.CancelCrop()
	}
	c.gesture = GestureState{}
}

// Viewport returns the pan and zoom.
func (c *Controller) Viewport() state.Viewport { return c.viewport }

// SetViewport replaces the pan and zoom. Zoom is clamped.
func (c *Controller) SetViewport(v state.Viewport) {
	v.Zoom = max(state.MinZoom, min(state.MaxZoom, v.Zoom))
	c.viewport = v
	c.notify()
}

// ZoomAt zooms by factor about a screen point.
func (c *Controller) ZoomAt(screen state.Point, factor float64) {
	c.viewport = c.viewport.ZoomAt(screen, factor)
	c.notify()
}

// Selection returns the selected ids in selection order.
func (c *Controller) Selection() []string {
	return slices.Clone(c.selection)
}

// Select replaces the selection. Unknown ids are dropped.
func (c *Controller) Select(ids ...string) {
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.store.Get(id); ok && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	c.selection = next
	c.notify()
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	if len(c.selection) == 0 {
		return
	}
	c.selection = nil
	c.notify()
}

func (c *Controller) toggle(id string) {
	if i := slices.Index(c.selection, id); i >= 0 {
		c.selection = slices.Delete(c.selection, i, i+1)
		return
	}
	c.selection = append(c.selection, id)
}

// Commit records the store in history. It reports false when nothing
// changed since the last entry.
func (c *Controller) Commit() bool {
	els := c.store.Elements()
	if !c.history.Push(els) {
		return false
	}
	for _, fn := range c.onCommit {
		fn(els)
	}
	return true
}

// Undo restores the previous history entry. It is a no-op at the start of
// history.
func (c *Controller) Undo() bool {
	return c.restore(c.history.Undo)
}

// Redo restores the next history entry. It is a no-op at the end of
// history.
func (c *Controller) Redo() bool {
	return c.restore(c.history.Redo)
}

func (c *Controller) restore(step func() ([]state.Element, bool)) bool {
	if c.edit != nil {
		c.CommitText()
	}
	c.crop = nil
	c.gesture = GestureState{}
	els, ok := step()
	if !ok {
		return false
	}
	carryHandles(els, c.store.Elements())
	if err := c.store.Replace(els); err != nil {
		logging.Logger().Error("history entry rejected", "err", err)
		return false
	}
	c.pruneSelection()
	for _, fn := range c.onRestore {
		fn(c.store.Elements())
	}
	c.notify()
	return true
}

// update applies fn to element id. A rejected change leaves the element
// as it was.
func (c *Controller) update(id string, fn func(*state.Element)) {
	if err := c.store.Update(id, fn); err != nil {
		logging.Logger().Debug("update rejected", "element", id, "err", err)
	}
}

// carryHandles copies decoded handles from current into next wherever the
// element and its source are unchanged.
func carryHandles(next, current []state.Element) {
	byID := make(map[string]state.Element, len(current))
	for _, el := range current {
		byID[el.ID] = el
	}
	for i := range next {
		old, ok := byID[next[i].ID]
		if !ok || old.Source() != next[i].Source() {
			continue
		}
		switch {
		case next[i].Image != nil && old.Image != nil:
			next[i].Image.Handle = old.Image.Handle
		case next[i].Video != nil && old.Video != nil:
			next[i].Video.Handle = old.Video.Handle
		}
	}
}

func (c *Controller) pruneSelection() {
	kept := c.selection[:0]
	for _, id := range c.selection {
		if _, ok := c.store.Get(id); ok {
			kept = append(kept, id)
		}
	}
	c.selection = kept
	if c.hover != "" {
		if _, ok := c.store.Get(c.hover); !ok {
			c.hover = ""
		}
	}
}

// DeleteSelection removes the selected elements. Children of a deleted
// group stay on the board.
func (c *Controller) DeleteSelection() {
	if len(c.selection) == 0 {
		return
	}
	n := c.store.Remove(c.selection...)
	c.selection = nil
	if n > 0 {
		c.Commit()
	}
	c.notify()
}

// GroupSelection wraps the selection in a new group and selects it.
func (c *Controller) GroupSelection() {
	if len(c.selection) < 2 {
		return
	}
	g, err := c.store.Group("", c.selection...)
	if err != nil {
		logging.Logger().Warn("group failed", "err", err)
		return
	}
	c.selection = []string{g.ID}
	c.Commit()
	c.notify()
}

// UngroupSelection dissolves every selected group and selects its former
// children.
func (c *Controller) UngroupSelection() {
	var next []string
	changed := false
	for _, id := range c.selection {
		el, ok := c.store.Get(id)
		if !ok || el.Type != state.TypeGroup {
			next = append(next, id)
			continue
		}
		children, err := c.store.Ungroup(id)
		if err != nil {
			continue
		}
		changed = true
		next = append(next, children...)
	}
	if !changed {
		return
	}
	c.selection = next
	c.Commit()
	c.notify()
}

// BringToFront raises the selection, groups with their members.
func (c *Controller) BringToFront() {
	c.reorder(c.store.BringToFront)
}

// SendToBack lowers the selection, groups with their members.
func (c *Controller) SendToBack() {
	c.reorder(c.store.SendToBack)
}

func (c *Controller) reorder(move func(ids ...string)) {
	if len(c.selection) == 0 {
		return
	}
	move(c.withDescendants(c.selection)...)
	c.Commit()
	c.notify()
}

// SetLocked locks or unlocks the selection. Locked elements are not hit by
// the pointer.
func (c *Controller) SetLocked(locked bool) {
	for _, id := range c.selection {
		c.update(id, func(el *state.Element) { el.Locked = locked })
	}
	if locked {
		c.selection = nil
	}
	c.Commit()
	c.notify()
}

// Overlay describes the interaction state for the render pipeline.
func (c *Controller) Overlay() render.Overlay {
	o := render.Overlay{
		Selection: c.Selection(),
		Hover:     c.hover,
		Handles:   c.mode == ModeSelect && c.edit == nil,
	}
	if c.crop != nil {
		box := c.crop.box
		o.CropBox = &box
		o.CropTarget = c.crop.targetID
	}
	if c.gesture.State == StateDrawingLasso {
		o.Lasso = slices.Clone(c.gesture.Lasso)
	}
	if c.edit != nil {
		o.EditingID = c.edit.id
		o.Caret = c.clock.Now().UnixMilli()/500%2 == 0
	}
	return o
}

// Frame assembles a render frame for the current state.
func (c *Controller) Frame() render.Frame {
	return render.Frame{
		Elements: c.store.Elements(),
		Viewport: c.viewport,
		Overlay:  c.Overlay(),
		Time:     c.clock.Now(),
	}
}

// Editing returns the id of the text element being edited.
func (c *Controller) Editing() string {
	if c.edit == nil {
		return ""
	}
	return c.edit.id
}

func (c *Controller) withDescendants(ids []string) []string {
	out := slices.Clone(ids)
	for _, id := range ids {
		for _, d := range c.store.Descendants(id) {
			if !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	return out
}
