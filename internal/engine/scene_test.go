package engine

import (
	"testing"

	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedMeasurer reports half an em per rune, 0.8em ascent and 0.2em descent.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text string, size float64) TextExtents {
	return TextExtents{
		Width:   float64(len([]rune(text))) * size * 0.5,
		Ascent:  size * 0.8,
		Descent: size * 0.2,
	}
}

func TestScene_RemoveStrokesKeepsOrder(t *testing.T) {
	s := NewScene()
	for i := range 5 {
		s.AddStroke(Stroke{X1: float64(i), Width: 1})
	}

	n := s.RemoveStrokes(func(st Stroke) bool { return int(st.X1)%2 == 1 })

	assert.Equal(t, 2, n)
	require.Len(t, s.Strokes, 3)
	assert.Equal(t, []float64{0, 2, 4}, []float64{s.Strokes[0].X1, s.Strokes[1].X1, s.Strokes[2].X1})
}

func TestScene_LastStroke(t *testing.T) {
	s := NewScene()
	assert.Nil(t, s.LastStroke())

	s.AddStroke(Stroke{X1: 1})
	s.AddStroke(Stroke{X1: 2})
	s.LastStroke().X2 = 9
	assert.Equal(t, 9.0, s.Strokes[1].X2)
}

func TestScene_Clear(t *testing.T) {
	s := NewScene()
	s.AddStroke(Stroke{})
	s.AddIcon(&IconMark{Glyph: "X"})
	s.AddVehicle(&LabelMarker{Label: "HLF"})
	s.CommitPolygon(&Polygon{Points: []geom.Point{{}, {X: 1}, {Y: 1}}})
	cur := &Polygon{Color: "blue", Points: []geom.Point{{X: 3, Y: 3}}}
	s.SetCurrent(cur)

	s.Clear()

	assert.Zero(t, s.Len())
	require.NotNil(t, s.Current())
	assert.Empty(t, s.Current().Points)
	assert.Equal(t, "blue", s.Current().Color)
}

func TestLabelMarker_BoundsScaleWithZoom(t *testing.T) {
	v := &LabelMarker{Label: "ELW", X: 100, Y: 50}

	at1 := v.Bounds(1, fixedMeasurer{})
	// 3 runes * 14 * 0.5 + 2*6 ; 14 + 2*4
	assert.InDelta(t, 33, at1.Width, 1e-9)
	assert.InDelta(t, 22, at1.Height, 1e-9)
	assert.Equal(t, 100.0, at1.X)
	assert.Equal(t, 50.0, at1.Y)

	at2 := v.Bounds(2, fixedMeasurer{})
	assert.InDelta(t, at1.Width/2, at2.Width, 1e-9)
	assert.InDelta(t, at1.Height/2, at2.Height, 1e-9)
}

func TestStroke_DistanceTo(t *testing.T) {
	s := Stroke{X1: 0, Y1: 50, X2: 100, Y2: 50}
	assert.Equal(t, 0.0, s.DistanceTo(geom.Pt(50, 50)))
	assert.Equal(t, 10.0, s.DistanceTo(geom.Pt(50, 60)))
}
