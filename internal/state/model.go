// Package state holds the canvas data model: elements, the ordered element
// store, bounds computation, the undo/redo history and boards.
package state

import (
	"fmt"
	"image"
)

// Point is a position in canvas units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// ElementType tags the variant carried by an Element.
type ElementType string

const (
	TypeImage ElementType = "image"
	TypeVideo ElementType = "video"
	TypePath  ElementType = "path"
	TypeShape ElementType = "shape"
	TypeText  ElementType = "text"
	TypeLine  ElementType = "line"
	TypeArrow ElementType = "arrow"
	TypeGroup ElementType = "group"
)

// ShapeType selects the outline drawn for a shape element.
type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeEllipse   ShapeType = "ellipse"
	ShapeTriangle  ShapeType = "triangle"
)

// Brush records which freehand tool produced a path.
type Brush string

const (
	BrushPen         Brush = "pen"
	BrushHighlighter Brush = "highlighter"
	BrushErase       Brush = "erase"
)

// MediaInfo is the resolved handle of a video source. There is no video
// decoder here; the handle records that the source was reachable and what
// it contains.
type MediaInfo struct {
	Source      string
	ContentType string
	Size        int64
}

// ImageData is the payload of an image element.
type ImageData struct {
	Href         string  `json:"href"`
	MimeType     string  `json:"mimeType"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
	VideoPrompt  string  `json:"videoPrompt,omitempty"`

	// Handle is the decoded bitmap, filled lazily by the media resolver.
	Handle image.Image `json:"-"`
}

// VideoData is the payload of a video element.
type VideoData struct {
	VideoURL  string `json:"videoUrl,omitempty"`
	IsPlaying bool   `json:"isPlaying"`
	// Generating marks a placeholder created while synthesis is running.
	Generating bool `json:"generating,omitempty"`

	Handle *MediaInfo `json:"-"`
}

// PathData is the payload of a freehand path.
type PathData struct {
	Points        []Point `json:"points"`
	StrokeColor   string  `json:"strokeColor"`
	StrokeWidth   float64 `json:"strokeWidth"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	Brush         Brush   `json:"brush,omitempty"`
}

// ShapeData is the payload of a rectangle, ellipse or triangle.
type ShapeData struct {
	ShapeType    ShapeType `json:"shapeType"`
	FillColor    string    `json:"fillColor"`
	StrokeColor  string    `json:"strokeColor"`
	StrokeWidth  float64   `json:"strokeWidth"`
	BorderRadius float64   `json:"borderRadius,omitempty"`
}

// TextData is the payload of a text element.
type TextData struct {
	Text       string  `json:"text"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	FontWeight string  `json:"fontWeight"`
	FillColor  string  `json:"fillColor"`
}

// LineData is the payload of lines and arrows. The array type keeps the
// endpoint count fixed at two.
type LineData struct {
	Points      [2]Point `json:"points"`
	StrokeColor string   `json:"strokeColor"`
	StrokeWidth float64  `json:"strokeWidth"`
}

// Element is one item on the board. Type selects which payload pointer is
// set; groups carry no payload. Children of a group are the elements whose
// ParentID equals the group's ID.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Visible  bool        `json:"visible"`
	Locked   bool        `json:"locked"`
	Name     string      `json:"name,omitempty"`
	ParentID string      `json:"parentId,omitempty"`

	Image *ImageData `json:"image,omitempty"`
	Video *VideoData `json:"video,omitempty"`
	Path  *PathData  `json:"path,omitempty"`
	Shape *ShapeData `json:"shape,omitempty"`
	Text  *TextData  `json:"text,omitempty"`
	Line  *LineData  `json:"line,omitempty"`
}

// Rect returns the stored rectangle, which is not the rendered bounds for
// lines, arrows, paths and groups. Use Bounds for those.
func (e Element) Rect() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// IsMedia reports whether the element shows visual content (image or video).
func (e Element) IsMedia() bool {
	return e.Type == TypeImage || e.Type == TypeVideo
}

// Source returns the locator of the element's media, if any.
func (e Element) Source() string {
	switch {
	case e.Type == TypeImage && e.Image != nil:
		return e.Image.Href
	case e.Type == TypeVideo && e.Video != nil:
		return e.Video.VideoURL
	}
	return ""
}

// Resolved reports whether a media element has its decoded handle.
// Non-media elements are always resolved.
func (e Element) Resolved() bool {
	switch e.Type {
	case TypeImage:
		return e.Image != nil && e.Image.Handle != nil
	case TypeVideo:
		return e.Video != nil && e.Video.Handle != nil
	}
	return true
}

// Validate checks the per-variant invariants.
func (e Element) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidElement)
	}
	if e.ParentID == e.ID {
		return fmt.Errorf("%w: %s", ErrGroupCycle, e.ID)
	}
	payloads := 0
	for _, set := range []bool{e.Image != nil, e.Video != nil, e.Path != nil, e.Shape != nil, e.Text != nil, e.Line != nil} {
		if set {
			payloads++
		}
	}
	want := 1
	if e.Type == TypeGroup {
		want = 0
	}
	if payloads != want {
		return fmt.Errorf("%w: %s %s has %d payloads", ErrInvalidElement, e.Type, e.ID, payloads)
	}

	switch e.Type {
	case TypeImage:
		if e.Image == nil || e.Image.BorderRadius < 0 {
			return fmt.Errorf("%w: image %s", ErrInvalidElement, e.ID)
		}
	case TypeVideo:
		if e.Video == nil {
			return fmt.Errorf("%w: video %s", ErrInvalidElement, e.ID)
		}
	case TypePath:
		if e.Path == nil || len(e.Path.Points) == 0 {
			return fmt.Errorf("%w: path %s needs at least one point", ErrInvalidElement, e.ID)
		}
		if e.Path.StrokeOpacity < 0 || e.Path.StrokeOpacity > 1 {
			return fmt.Errorf("%w: path %s opacity %.2f", ErrInvalidElement, e.ID, e.Path.StrokeOpacity)
		}
	case TypeShape:
		if e.Shape == nil || e.Shape.BorderRadius < 0 {
			return fmt.Errorf("%w: shape %s", ErrInvalidElement, e.ID)
		}
		switch e.Shape.ShapeType {
		case ShapeRectangle, ShapeEllipse, ShapeTriangle:
		default:
			return fmt.Errorf("%w: shape %s has type %q", ErrInvalidElement, e.ID, e.Shape.ShapeType)
		}
	case TypeText:
		if e.Text == nil {
			return fmt.Errorf("%w: text %s", ErrInvalidElement, e.ID)
		}
	case TypeLine, TypeArrow:
		if e.Line == nil {
			return fmt.Errorf("%w: %s %s", ErrInvalidElement, e.Type, e.ID)
		}
	case TypeGroup:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidElement, e.Type)
	}
	return nil
}

// Clone returns a deep copy. Media handles are shared, they are immutable
// once decoded.
func (e Element) Clone() Element {
	out := e
	if e.Image != nil {
		img := *e.Image
		out.Image = &img
	}
	if e.Video != nil {
		v := *e.Video
		out.Video = &v
	}
	if e.Path != nil {
		p := *e.Path
		p.Points = append([]Point(nil), e.Path.Points...)
		out.Path = &p
	}
	if e.Shape != nil {
		s := *e.Shape
		out.Shape = &s
	}
	if e.Text != nil {
		t := *e.Text
		out.Text = &t
	}
	if e.Line != nil {
		l := *e.Line
		out.Line = &l
	}
	return out
}

// StripMedia returns a copy without decoded handles.
func (e Element) StripMedia() Element {
	out := e.Clone()
	if out.Image != nil {
		out.Image.Handle = nil
	}
	if out.Video != nil {
		out.Video.Handle = nil
	}
	return out
}

// Translate moves the element by (dx, dy), including its points.
// Groups have no geometry of their own beyond the fallback rectangle;
// moving their children is the store's job.
func (e *Element) Translate(dx, dy float64) {
	e.X += dx
	e.Y += dy
	if e.Path != nil {
		for i := range e.Path.Points {
			e.Path.Points[i].X += dx
			e.Path.Points[i].Y += dy
		}
	}
	if e.Line != nil {
		for i := range e.Line.Points {
			e.Line.Points[i].X += dx
			e.Line.Points[i].Y += dy
		}
	}
}

// MapRect maps the element's geometry from rectangle from onto rectangle to.
// Stored rectangles and points are mapped proportionally; used when a group
// or a selection is resized.
func (e *Element) MapRect(from, to Rect) {
	sx, sy := 1.0, 1.0
	if from.Width != 0 {
		sx = to.Width / from.Width
	}
	if from.Height != 0 {
		sy = to.Height / from.Height
	}
	mapPt := func(p Point) Point {
		return Point{X: to.X + (p.X-from.X)*sx, Y: to.Y + (p.Y-from.Y)*sy}
	}
	tl := mapPt(Point{X: e.X, Y: e.Y})
	e.X, e.Y = tl.X, tl.Y
	e.Width *= sx
	e.Height *= sy
	if e.Path != nil {
		for i, p := range e.Path.Points {
			e.Path.Points[i] = mapPt(p)
		}
	}
	if e.Line != nil {
		for i, p := range e.Line.Points {
			e.Line.Points[i] = mapPt(p)
		}
	}
}

func newElement(t ElementType, x, y, w, h float64) Element {
	return Element{ID: NewID(), Type: t, X: x, Y: y, Width: w, Height: h, Visible: true}
}

// NewImage creates an image element at the given rectangle.
func NewImage(href, mimeType string, r Rect) Element {
	e := newElement(TypeImage, r.X, r.Y, r.Width, r.Height)
	e.Image = &ImageData{Href: href, MimeType: mimeType}
	return e
}

// NewVideo creates a video element. An empty url makes a placeholder.
func NewVideo(url string, r Rect) Element {
	e := newElement(TypeVideo, r.X, r.Y, r.Width, r.Height)
	e.Video = &VideoData{VideoURL: url}
	return e
}

// NewPath creates a freehand path starting at p.
func NewPath(p Point, color string, width, opacity float64, brush Brush) Element {
	e := newElement(TypePath, p.X, p.Y, 0, 0)
	e.Path = &PathData{
		Points:        []Point{p},
		StrokeColor:   color,
		StrokeWidth:   width,
		StrokeOpacity: opacity,
		Brush:         brush,
	}
	return e
}

// NewShape creates a shape element.
func NewShape(kind ShapeType, r Rect, fill, stroke string, strokeWidth float64) Element {
	e := newElement(TypeShape, r.X, r.Y, r.Width, r.Height)
	e.Shape = &ShapeData{ShapeType: kind, FillColor: fill, StrokeColor: stroke, StrokeWidth: strokeWidth}
	return e
}

// NewText creates a text element with its top-left corner at p.
func NewText(p Point, text string, fontSize float64, color string) Element {
	e := newElement(TypeText, p.X, p.Y, 0, fontSize)
	e.Text = &TextData{
		Text:       text,
		FontSize:   fontSize,
		FontFamily: "sans-serif",
		FontWeight: "normal",
		FillColor:  color,
	}
	return e
}

func newSegment(t ElementType, a, b Point, color string, width float64) Element {
	e := newElement(t, 0, 0, 0, 0)
	e.Line = &LineData{Points: [2]Point{a, b}, StrokeColor: color, StrokeWidth: width}
	e.syncSegmentRect()
	return e
}

// NewLine creates a straight line between a and b.
func NewLine(a, b Point, color string, width float64) Element {
	return newSegment(TypeLine, a, b, color, width)
}

// NewArrow creates an arrow pointing from a to b.
func NewArrow(a, b Point, color string, width float64) Element {
	return newSegment(TypeArrow, a, b, color, width)
}

// NewGroup creates an empty group whose fallback rectangle is r.
func NewGroup(name string, r Rect) Element {
	e := newElement(TypeGroup, r.X, r.Y, r.Width, r.Height)
	e.Name = name
	return e
}

// syncSegmentRect keeps the stored rectangle of a line or arrow in step with
// its endpoints. Bounds never read it, but persisted boards stay readable.
func (e *Element) syncSegmentRect() {
	if e.Line == nil {
		return
	}
	r := Envelope(e.Line.Points[:])
	e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
}

// SetEndpoint moves one endpoint (0 or 1) of a line or arrow.
func (e *Element) SetEndpoint(i int, p Point) {
	if e.Line == nil || i < 0 || i > 1 {
		return
	}
	e.Line.Points[i] = p
	e.syncSegmentRect()
}

// AppendPoint extends a path and refreshes its stored rectangle.
func (e *Element) AppendPoint(p Point) {
	if e.Path == nil {
		return
	}
	e.Path.Points = append(e.Path.Points, p)
	r := Envelope(e.Path.Points)
	e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
}
