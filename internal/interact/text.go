package interact

import (
	"strings"
	"unicode/utf8"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

func (c *Controller) textDown(p state.Point) {
	if id := c.hitType(p, state.TypeText); id != "" {
		c.beginEditing(id, false)
		return
	}
	el := state.NewText(p, "", c.style.FontSize, c.style.TextColor)
	if err := c.store.Add(el); err != nil {
		return
	}
	c.beginEditing(el.ID, true)
}

// beginEditing opens id for typing. Any other open edit is committed
// first.
func (c *Controller) beginEditing(id string, created bool) {
	if c.edit != nil && c.edit.id != id {
		c.CommitText()
	}
	el, ok := c.store.Get(id)
	if !ok || el.Text == nil {
		return
	}
	c.edit = &textEdit{id: id, created: created}
	c.selection = []string{id}
	c.gesture = GestureState{State: StateEditingText}
}

// TypeText appends s to the text being edited.
func (c *Controller) TypeText(s string) {
	if c.edit == nil || s == "" {
		return
	}
	c.update(c.edit.id, func(el *state.Element) {
		el.Text.Text += s
		c.fitText(el)
	})
	c.notify()
}

// Backspace removes the last character of the text being edited.
func (c *Controller) Backspace() {
	if c.edit == nil {
		return
	}
	c.update(c.edit.id, func(el *state.Element) {
		t := el.Text.Text
		if t == "" {
			return
		}
		_, size := utf8.DecodeLastRuneInString(t)
		el.Text.Text = t[:len(t)-size]
		c.fitText(el)
	})
	c.notify()
}

func (c *Controller) fitText(el *state.Element) {
	w, h := c.measure(el.Text.Text, el.Text.FontSize)
	el.Width = w
	el.Height = max(h, el.Text.FontSize)
}

// CommitText closes the open text edit. Empty text discards the element;
// otherwise its measured size is stored and the edit recorded.
func (c *Controller) CommitText() {
	e := c.edit
	if e == nil {
		return
	}
	c.edit = nil
	if c.gesture.State == StateEditingText {
		c.gesture = GestureState{}
	}
	el, ok := c.store.Get(e.id)
	if !ok {
		c.notify()
		return
	}
	if strings.TrimSpace(el.Text.Text) == "" {
		c.store.Remove(e.id)
		c.pruneSelection()
		if !e.created {
			c.Commit()
		}
		logging.Logger().Debug("empty text discarded", "element", e.id)
		c.notify()
		return
	}
	c.update(e.id, func(el *state.Element) { c.fitText(el) })
	c.Commit()
	c.notify()
}
