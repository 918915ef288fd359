package interact

import "CanvasBoard/internal/state"

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Has reports whether every modifier in m is held.
func (mods Modifiers) Has(m Modifiers) bool { return mods&m == m }

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonTertiary
)

// PointerEvent is a pointer sample in screen coordinates.
type PointerEvent struct {
	Screen    state.Point
	Button    Button
	Modifiers Modifiers
}

// Key names a key the controller reacts to. Letter keys use their upper
// case letter.
type Key string

const (
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "BackSpace"
	KeyEscape    Key = "Escape"
	KeyEnter     Key = "Return"
	KeyG         Key = "G"
	KeyY         Key = "Y"
	KeyZ         Key = "Z"
)

// KeyEvent is a key press.
type KeyEvent struct {
	Key       Key
	Modifiers Modifiers
}
