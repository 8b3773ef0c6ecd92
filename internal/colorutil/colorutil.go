// Package colorutil parses the CSS colour strings stored in the scene into
// image/color values for server-side rasterization.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Common colours.
var (
	Black       = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Transparent = color.NRGBA{}
)

var named = map[string]string{
	"black":        "#000000",
	"white":        "#ffffff",
	"red":          "#ff0000",
	"green":        "#008000",
	"lime":         "#00ff00",
	"blue":         "#0000ff",
	"orange":       "#ffa500",
	"yellow":       "#ffff00",
	"purple":       "#800080",
	"gray":         "#808080",
	"grey":         "#808080",
	"silver":       "#c0c0c0",
	"maroon":       "#800000",
	"navy":         "#000080",
	"teal":         "#008080",
	"olive":        "#808000",
	"aqua":         "#00ffff",
	"cyan":         "#00ffff",
	"fuchsia":      "#ff00ff",
	"magenta":      "#ff00ff",
	"brown":        "#a52a2a",
	"pink":         "#ffc0cb",
	"gold":         "#ffd700",
	"lightblue":    "#add8e6",
	"lightgreen":   "#90ee90",
	"lightskyblue": "#87cefa",
	"whitesmoke":   "#f5f5f5",
}

// Parse converts a CSS colour (named, #rgb, #rrggbb, rgb(), rgba()) to a
// non-premultiplied colour.
func Parse(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "transparent" {
		return Transparent, nil
	}
	if hex, ok := named[s]; ok {
		s = hex
	}

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseFunc(s)
	}
	return color.NRGBA{}, fmt.Errorf("unsupported colour %q", s)
}

// MustParse is Parse with a fallback for unparseable input.
func MustParse(s string, fallback color.Color) color.Color {
	c, err := Parse(s)
	if err != nil {
		return fallback
	}
	return c
}

func parseHex(s string) (color.NRGBA, error) {
	if len(s) == 4 {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	if len(s) != 7 {
		return color.NRGBA{}, fmt.Errorf("hex colour %q: want #rgb or #rrggbb", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse hex colour: %w", err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

func parseFunc(s string) (color.NRGBA, error) {
	open := strings.IndexByte(s, '(')
	if !strings.HasSuffix(s, ")") {
		return color.NRGBA{}, fmt.Errorf("unterminated colour %q", s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("colour %q: want 3 or 4 components", s)
	}

	var ch [3]uint8
	for i := range 3 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		ch[i] = uint8(math.Round(clamp(v, 0, 255)))
	}

	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		alpha = clamp(a, 0, 1)
	}

	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: uint8(math.Round(alpha * 255))}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
