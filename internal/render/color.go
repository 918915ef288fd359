package render

import (
	"strings"

	"github.com/gogpu/gg"
)

var namedColors = map[string]gg.RGBA{
	"black":  gg.RGB(0, 0, 0),
	"white":  gg.RGB(1, 1, 1),
	"red":    gg.Hex("#ff0000"),
	"green":  gg.Hex("#008000"),
	"blue":   gg.Hex("#0000ff"),
	"yellow": gg.Hex("#ffff00"),
	"orange": gg.Hex("#ffa500"),
	"gray":   gg.Hex("#808080"),
	"grey":   gg.Hex("#808080"),
}

// ParseColor reads #rgb, #rgba, #rrggbb and #rrggbbaa forms, a few color
// names and "transparent". It reports false for anything else.
func ParseColor(s string) (gg.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "none":
		return gg.RGBA{}, false
	case s == "transparent":
		return gg.RGBA{}, true
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		switch len(hex) {
		case 3, 4, 6, 8:
		default:
			return gg.RGBA{}, false
		}
		for _, c := range hex {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
				return gg.RGBA{}, false
			}
		}
		return gg.Hex(hex), true
	}
	c, ok := namedColors[s]
	return c, ok
}

// colorOr parses s, falling back to def.
func colorOr(s string, def gg.RGBA) gg.RGBA {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return def
}

func withAlpha(c gg.RGBA, a float64) gg.RGBA {
	c.A *= a
	return c
}
