package engine

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// TextExtents are the measured dimensions of a single line of text.
type TextExtents struct {
	Width   float64
	Ascent  float64
	Descent float64
}

// Height returns Ascent + Descent.
func (e TextExtents) Height() float64 {
	return e.Ascent + e.Descent
}

// TextMeasurer measures text at a font size given in world units.
type TextMeasurer interface {
	Measure(text string, size float64) TextExtents
}

// referenceSize is the pixel size the face is built at. Extents for other
// sizes are scaled linearly from it.
const referenceSize = 64.0

// FontMeasurer measures text with an OpenType face.
type FontMeasurer struct {
	mu   sync.Mutex
	face font.Face
}

// NewFontMeasurer builds a measurer from raw TTF/OTF data.
func NewFontMeasurer(ttf []byte) (*FontMeasurer, error) {
	fnt, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    referenceSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return &FontMeasurer{face: face}, nil
}

// Measure implements TextMeasurer.
func (m *FontMeasurer) Measure(text string, size float64) TextExtents {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := size / referenceSize
	adv := font.MeasureString(m.face, text)
	metrics := m.face.Metrics()
	return TextExtents{
		Width:   float64(adv) / 64 * k,
		Ascent:  float64(metrics.Ascent) / 64 * k,
		Descent: float64(metrics.Descent) / 64 * k,
	}
}

var (
	defaultMeasurerOnce sync.Once
	defaultMeasurer     TextMeasurer
)

// DefaultMeasurer returns a shared measurer backed by Go Regular.
func DefaultMeasurer() TextMeasurer {
	defaultMeasurerOnce.Do(func() {
		m, err := NewFontMeasurer(goregular.TTF)
		if err != nil {
			// goregular is embedded and always parses.
			panic(err)
		}
		defaultMeasurer = m
	})
	return defaultMeasurer
}
