package interact

import (
	"fmt"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

// BeginCrop starts cropping image id. The crop box starts at the image's
// full bounds and can never leave them.
func (c *Controller) BeginCrop(id string) bool {
	el, ok := c.store.Get(id)
	if !ok || el.Type != state.TypeImage {
		return false
	}
	if c.edit != nil {
		c.CommitText()
	}
	r := el.Rect()
	c.crop = &cropSession{targetID: id, box: r, original: r}
	c.selection = []string{id}
	c.gesture = GestureState{}
	c.notify()
	return true
}

// CropBox returns the active crop box.
func (c *Controller) CropBox() (state.Rect, bool) {
	if c.crop == nil {
		return state.Rect{}, false
	}
	return c.crop.box, true
}

// Cropping reports whether a crop is active.
func (c *Controller) Cropping() bool { return c.crop != nil }

func (c *Controller) cropDown(p state.Point, ev PointerEvent) {
	tol := HandleTolerance / c.viewport.Zoom
	h := state.HandleAt(c.crop.box, p, tol)
	if h == state.HandleNone {
		c.CancelCrop()
		return
	}
	c.gesture = GestureState{
		State:       StateCropDragging,
		StartScreen: ev.Screen,
		Start:       p,
		Handle:      h,
		StartRect:   c.crop.box,
	}
}

// CommitCrop replaces the image's bitmap with the part under the crop box
// and moves the element onto the box. The element keeps its id. On error
// the crop stays active.
func (c *Controller) CommitCrop() error {
	sess := c.crop
	if sess == nil {
		return nil
	}
	el, ok := c.store.Get(sess.targetID)
	if !ok {
		c.crop = nil
		c.notify()
		return fmt.Errorf("crop: %w: %s", state.ErrNotFound, sess.targetID)
	}
	if sess.box == el.Rect() {
		c.CancelCrop()
		return nil
	}
	bm, img, err := c.cropper.Crop(el, sess.box)
	if err != nil {
		return fmt.Errorf("crop %s: %w", el.ID, err)
	}
	box := sess.box
	err = c.store.Update(el.ID, func(e *state.Element) {
		e.Image.Href = bm.DataURL()
		e.Image.MimeType = bm.MimeType
		e.Image.Handle = img
		e.X, e.Y, e.Width, e.Height = box.X, box.Y, box.Width, box.Height
	})
	if err != nil {
		return err
	}
	c.crop = nil
	c.gesture = GestureState{}
	c.Commit()
	logging.Logger().Info("image cropped", "element", el.ID, "width", bm.Width, "height", bm.Height)
	c.notify()
	return nil
}

// CancelCrop drops the crop box without touching the element.
func (c *Controller) CancelCrop() {
	if c.crop == nil {
		return
	}
	c.crop = nil
	if c.gesture.State == StateCropDragging {
		c.gesture = GestureState{}
	}
	c.notify()
}
