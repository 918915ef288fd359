package interact

import "CanvasBoard/internal/logging"

// Key handles a key press. It reports whether the key was used. While a
// text element is being edited Backspace erases before the caret and
// Delete does nothing; otherwise both delete the selection.
func (c *Controller) Key(ev KeyEvent) bool {
	ctrl := ev.Modifiers.Has(ModCtrl) || ev.Modifiers.Has(ModSuper)
	shift := ev.Modifiers.Has(ModShift)
	switch {
	case ev.Key == KeyDelete && c.edit != nil:
		return false
	case ev.Key == KeyDelete || ev.Key == KeyBackspace:
		if c.edit != nil {
			c.Backspace()
		} else {
			c.DeleteSelection()
		}
	case ev.Key == KeyEscape:
		switch {
		case c.crop != nil:
			c.CancelCrop()
		case c.edit != nil:
			c.CommitText()
		default:
			c.ClearSelection()
		}
	case ev.Key == KeyEnter:
		switch {
		case c.crop != nil:
			if err := c.CommitCrop(); err != nil {
				logging.Logger().Warn("crop failed", "err", err)
			}
		case c.edit != nil && shift:
			c.TypeText("\n")
		case c.edit != nil:
			c.CommitText()
		default:
			return false
		}
	case ctrl && ev.Key == KeyZ && shift, ctrl && ev.Key == KeyY:
		c.Redo()
	case ctrl && ev.Key == KeyZ:
		c.Undo()
	case ctrl && ev.Key == KeyG && shift:
		c.UngroupSelection()
	case ctrl && ev.Key == KeyG:
		c.GroupSelection()
	default:
		return false
	}
	return true
}
