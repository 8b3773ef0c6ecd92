package session

import (
	"encoding/json"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Input
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeWheel       = "wheel"
	TypeContextMenu = "contextmenu"
	TypeDragOver    = "drag.over"
	TypeDragLeave   = "drag.leave"
	TypeDrop        = "drop"

	// Tool configuration
	TypeConfigColor   = "config.color"
	TypeConfigWidth   = "config.width"
	TypeConfigMode    = "config.mode"
	TypeArmIcon       = "arm.icon"
	TypeArmVehicle    = "arm.vehicle"
	TypeArmPolygon    = "arm.polygon"
	TypeLayerSet      = "layer.set"
	TypeSurfaceResize = "surface.resize"

	// Scene and queries
	TypeSceneClear = "scene.clear"
	TypeRender     = "render"
	TypeHitTest    = "hit.test"

	// Server to client
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeHit     = "hit"
	TypeError   = "error"
)

type ColorPayload struct {
	Color string `json:"color"`
}

type WidthPayload struct {
	Width float64 `json:"width"`
}

type ModePayload struct {
	Mode string `json:"mode"`
}

type IconPayload struct {
	Glyph string `json:"glyph"`
}

type LayerPayload struct {
	Layer   string `json:"layer"`
	Visible bool   `json:"visible"`
}

type SurfacePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type PointPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type WelcomePayload struct {
	SessionID string  `json:"sessionId"`
	ClientID  string  `json:"clientId"`
	Palette   Palette `json:"palette"`
}

// Palette lists the choices a toolbar offers.
type Palette struct {
	Colors       []string  `json:"colors"`
	Widths       []float64 `json:"widths"`
	VehicleKinds []string  `json:"vehicleKinds"`
}

func DefaultPalette() Palette {
	return Palette{
		Colors:       engine.DrawingColors,
		Widths:       engine.StrokeWidths,
		VehicleKinds: engine.VehicleKinds(),
	}
}

type FramePayload struct {
	Commands []engine.DrawCommand `json:"commands"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
