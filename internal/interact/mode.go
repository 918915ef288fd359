package interact

// Mode is the tool selected by the user. It decides what a pointer-down
// starts.
type Mode string

const (
	ModeSelect      Mode = "select"
	ModePan         Mode = "pan"
	ModeDraw        Mode = "draw"
	ModeHighlighter Mode = "highlighter"
	ModeErase       Mode = "erase"
	ModeRectangle   Mode = "rectangle"
	ModeEllipse     Mode = "ellipse"
	ModeTriangle    Mode = "triangle"
	ModeLine        Mode = "line"
	ModeArrow       Mode = "arrow"
	ModeText        Mode = "text"
	ModeLasso       Mode = "lasso"
	ModeCrop        Mode = "crop"
)

// Modes lists every tool in toolbar order.
var Modes = []Mode{
	ModeSelect, ModePan, ModeDraw, ModeHighlighter, ModeErase,
	ModeRectangle, ModeEllipse, ModeTriangle, ModeLine, ModeArrow,
	ModeText, ModeLasso, ModeCrop,
}

// annotates reports whether the mode draws an annotation, which must start
// on an image or video.
func (m Mode) annotates() bool {
	switch m {
	case ModeDraw, ModeHighlighter, ModeErase,
		ModeRectangle, ModeEllipse, ModeTriangle,
		ModeLine, ModeArrow:
		return true
	}
	return false
}

// State is the transient gesture state. Only one non-idle state is active
// at a time.
type State int

const (
	StateIdle State = iota
	StatePanning
	StateDragging
	StateResizing
	StateDrawingPath
	StateDrawingShape
	StateDrawingLine
	StateDrawingLasso
	StateCropDragging
	StateEditingText
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StatePanning:      "panning",
	StateDragging:     "dragging",
	StateResizing:     "resizing",
	StateDrawingPath:  "drawing-path",
	StateDrawingShape: "drawing-shape",
	StateDrawingLine:  "drawing-line",
	StateDrawingLasso: "drawing-lasso",
	StateCropDragging: "crop-dragging",
	StateEditingText:  "editing-text",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Style holds the defaults applied to new annotations and text.
type Style struct {
	StrokeColor string
	StrokeWidth float64
	FillColor   string
	FontSize    float64
	TextColor   string
	// EraseColor is the marker color of the erase tool.
	EraseColor string
}

// DefaultStyle returns the built-in drawing defaults.
func DefaultStyle() Style {
	return Style{
		StrokeColor: "#ef4444",
		StrokeWidth: 4,
		FillColor:   "transparent",
		FontSize:    24,
		TextColor:   "#111111",
		EraseColor:  "#ffffff",
	}
}
