package render

import (
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// lineSpacing is the line height as a multiple of the font size.
const lineSpacing = 1.2

// fontBook hands out faces of the built-in font by size.
type fontBook struct {
	once   sync.Once
	source *text.FontSource
	err    error

	mu    sync.Mutex
	faces map[float64]text.Face
}

var defaultFonts = &fontBook{}

func (f *fontBook) face(size float64) text.Face {
	f.once.Do(func() {
		f.source, f.err = text.NewFontSource(goregular.TTF)
		f.faces = make(map[float64]text.Face)
	})
	if f.err != nil || size <= 0 {
		return nil
	}
	size = math.Round(size*4) / 4
	f.mu.Lock()
	defer f.mu.Unlock()
	face, ok := f.faces[size]
	if !ok {
		face = f.source.Face(size)
		f.faces[size] = face
	}
	return face
}

// MeasureText returns the width and height of s set at fontSize. Each line
// break starts a new line.
func MeasureText(s string, fontSize float64) (float64, float64) {
	lines := strings.Split(s, "\n")
	face := defaultFonts.face(fontSize)
	width := 0.0
	for _, line := range lines {
		var w float64
		if face != nil {
			w, _ = text.Measure(line, face)
		} else {
			w = float64(len([]rune(line))) * fontSize * 0.6
		}
		width = math.Max(width, w)
	}
	return width, float64(len(lines)) * fontSize * lineSpacing
}
