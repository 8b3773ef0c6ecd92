package engine

// Button identifies a pointer button, numbered like DOM MouseEvent.button.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonAuxiliary Button = 1
	ButtonSecondary Button = 2
)

// PointerEvent carries device-space coordinates.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button Button  `json:"button"`
}

// WheelEvent is one wheel tick at a device position. Positive DeltaY zooms out.
type WheelEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

// VehicleDescriptor describes the vehicle a click or drop will create. A
// non-empty Source makes an image-backed marker, otherwise a label marker.
type VehicleDescriptor struct {
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
	Label  string `json:"label,omitempty"`
}

// DropPayload is the data transferred by a palette drag.
type DropPayload struct {
	Source string `json:"imgSrc,omitempty"`
	Kind   string `json:"type,omitempty"`
	Label  string `json:"label,omitempty"`
}

// DropPayloadFromMap reads the payload from transfer data keyed by MIME-less
// names, as a browser DataTransfer would hand them over.
func DropPayloadFromMap(data map[string]string) DropPayload {
	return DropPayload{
		Source: data["imgSrc"],
		Kind:   data["type"],
		Label:  data["label"],
	}
}

// Descriptor converts the payload to a vehicle descriptor.
func (p DropPayload) Descriptor() VehicleDescriptor {
	return VehicleDescriptor{Kind: p.Kind, Source: p.Source, Label: p.Label}
}

// DropEvent is a palette drop at a device position.
type DropEvent struct {
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
	Data DropPayload `json:"data"`
}
