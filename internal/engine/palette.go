package engine

import (
	"fmt"
	"strings"
)

// Mode is the active tool.
type Mode string

const (
	ModeMove    Mode = "move"
	ModePaint   Mode = "paint"
	ModeEraser  Mode = "eraser"
	ModePolygon Mode = "polygon"
)

// ParseMode validates a tool name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMove, ModePaint, ModeEraser, ModePolygon:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Layer names a background raster.
type Layer string

const (
	LayerBase     Layer = "base"
	LayerPDA      Layer = "pda"
	LayerHydrants Layer = "hydrants"
	LayerBRS      Layer = "brs"
)

// LayerOrder is the fixed draw order of background layers.
var LayerOrder = []Layer{LayerBase, LayerPDA, LayerHydrants, LayerBRS}

// ParseLayer validates a layer name.
func ParseLayer(s string) (Layer, error) {
	l := Layer(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range LayerOrder {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayer, s)
}

// Drawing defaults and the fixed palettes offered by the toolbar.
const (
	DefaultColor        = "black"
	DefaultWidth        = 2.0
	DefaultPolygonColor = "rgba(255,0,0,0.4)"
)

var (
	DrawingColors = []string{"black", "white", "red", "green", "blue", "orange", "yellow", "purple"}
	StrokeWidths  = []float64{1, 2, 3, 6, 8, 10, 12, 14}
)

// FallbackVehicleColor fills label markers whose kind is missing or unknown.
const FallbackVehicleColor = "#CCCCCC"

var vehicleColors = map[string]string{
	"feuerwehr": "#FF4D4D",
	"fuehrung":  "#FFD700",
	"hiorg":     "#E6E6E6",
	"pol":       "#90EE90",
	"thw":       "#87CEFA",
	"taktik":    "#F5F5F5",
}

// VehicleColor returns the fill colour for a vehicle kind.
func VehicleColor(kind string) string {
	if c, ok := vehicleColors[strings.ToLower(kind)]; ok {
		return c
	}
	return FallbackVehicleColor
}

// VehicleKinds returns the known kinds in a stable order.
func VehicleKinds() []string {
	return []string{"feuerwehr", "fuehrung", "hiorg", "pol", "thw", "taktik"}
}
