package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindItemAt_VehicleBeatsIcon(t *testing.T) {
	s := NewScene()
	icon := &IconMark{ID: "icon", Glyph: "⚠", X: 10, Y: 10}
	veh := &ImageMarker{ID: "veh", X: 0, Y: 0, W: 20, H: 20}
	s.AddIcon(icon)
	s.AddVehicle(veh)

	assert.Equal(t, veh, FindItemAt(s, 12, 12, 1, fixedMeasurer{}))
	// Only the icon box reaches x = 35.
	assert.Equal(t, icon, FindItemAt(s, 35, 12, 1, fixedMeasurer{}))
	assert.Nil(t, FindItemAt(s, 200, 200, 1, fixedMeasurer{}))
}

func TestFindItemAt_TopmostWins(t *testing.T) {
	s := NewScene()
	first := &ImageMarker{ID: "a", W: 50, H: 50}
	second := &ImageMarker{ID: "b", X: 25, Y: 25, W: 50, H: 50}
	s.AddVehicle(first)
	s.AddVehicle(second)

	assert.Equal(t, second, FindItemAt(s, 30, 30, 1, fixedMeasurer{}))
	assert.Equal(t, first, FindItemAt(s, 10, 10, 1, fixedMeasurer{}))

	a := &IconMark{ID: "a", X: 0, Y: 0}
	b := &IconMark{ID: "b", X: 5, Y: 0}
	s2 := NewScene()
	s2.AddIcon(a)
	s2.AddIcon(b)
	assert.Equal(t, b, FindItemAt(s2, 2, 0, 1, fixedMeasurer{}))
}

func TestFindItemAt_IconBoxIgnoresZoom(t *testing.T) {
	s := NewScene()
	icon := &IconMark{ID: "icon", X: 0, Y: 0}
	s.AddIcon(icon)

	for _, scale := range []float64{0.25, 1, 8} {
		assert.Equal(t, icon, FindItemAt(s, -10, -15, scale, fixedMeasurer{}))
		assert.Equal(t, icon, FindItemAt(s, 30, 15, scale, fixedMeasurer{}))
		assert.Nil(t, FindItemAt(s, 30.5, 0, scale, fixedMeasurer{}))
		assert.Nil(t, FindItemAt(s, 0, -15.5, scale, fixedMeasurer{}))
	}
}

func TestFindItemAt_LabelMarkerShrinksWithZoom(t *testing.T) {
	s := NewScene()
	veh := &LabelMarker{ID: "veh", Label: "HLF", X: 0, Y: 0}
	s.AddVehicle(veh)

	// At scale 1 the box is 33 wide; at scale 2 it is 16.5.
	assert.Equal(t, veh, FindItemAt(s, 30, 5, 1, fixedMeasurer{}))
	assert.Nil(t, FindItemAt(s, 30, 5, 2, fixedMeasurer{}))
}

func TestFindItemAt_NilScene(t *testing.T) {
	assert.Nil(t, FindItemAt(nil, 0, 0, 1, fixedMeasurer{}))
}
