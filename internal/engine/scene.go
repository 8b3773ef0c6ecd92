package engine

import (
	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
)

// Stroke is one straight segment of a freehand gesture, in world space.
type Stroke struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// DistanceTo returns the distance from p to the segment.
func (s Stroke) DistanceTo(p geom.Point) float64 {
	return geom.SegmentDistance(p, geom.Pt(s.X1, s.Y1), geom.Pt(s.X2, s.Y2))
}

// Item is a scene entity that can be picked up and dragged.
type Item interface {
	ItemID() string
	Position() geom.Point
	SetPosition(x, y float64)
}

// IconMark is a glyph anchored at a point (text baseline, left edge).
type IconMark struct {
	ID    string  `json:"id"`
	Glyph string  `json:"glyph"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (m *IconMark) ItemID() string           { return m.ID }
func (m *IconMark) Position() geom.Point     { return geom.Pt(m.X, m.Y) }
func (m *IconMark) SetPosition(x, y float64) { m.X, m.Y = x, y }

// HitBox is a fixed world-space box around the anchor. It does not change
// with zoom.
func (m *IconMark) HitBox() geom.Rect {
	return geom.Rect{X: m.X - 10, Y: m.Y - 15, Width: 40, Height: 30}
}

// Vehicle is either an *ImageMarker or a *LabelMarker.
type Vehicle interface {
	Item
	VehicleKind() string
	// Bounds returns the marker box at the given view scale.
	Bounds(scale float64, m TextMeasurer) geom.Rect
	isVehicle()
}

// ImageMarker is a vehicle drawn as a bitmap in an explicit box.
type ImageMarker struct {
	ID     string
	Kind   string
	Bitmap *Bitmap
	X, Y   float64
	W, H   float64
}

func (v *ImageMarker) ItemID() string           { return v.ID }
func (v *ImageMarker) VehicleKind() string      { return v.Kind }
func (v *ImageMarker) Position() geom.Point     { return geom.Pt(v.X, v.Y) }
func (v *ImageMarker) SetPosition(x, y float64) { v.X, v.Y = x, y }
func (v *ImageMarker) isVehicle()               {}

// Bounds ignores scale: the box is stored in world units.
func (v *ImageMarker) Bounds(float64, TextMeasurer) geom.Rect {
	return geom.Rect{X: v.X, Y: v.Y, Width: v.W, Height: v.H}
}

// Label marker metrics in device pixels. They are divided by the view scale
// so the marker keeps a constant on-screen size.
const (
	labelFontSize = 14.0
	labelPadX     = 6.0
	labelPadY     = 4.0
	labelRadius   = 4.0
	labelOutline  = 1.0
)

// LabelMarker is a vehicle drawn as a rounded box around its label, filled
// with the colour of its kind. X, Y is the top-left corner of the box.
type LabelMarker struct {
	ID    string
	Kind  string
	Label string
	X, Y  float64
}

func (v *LabelMarker) ItemID() string           { return v.ID }
func (v *LabelMarker) VehicleKind() string      { return v.Kind }
func (v *LabelMarker) Position() geom.Point     { return geom.Pt(v.X, v.Y) }
func (v *LabelMarker) SetPosition(x, y float64) { v.X, v.Y = x, y }
func (v *LabelMarker) isVehicle()               {}

// Bounds derives the box from the measured label plus padding at scale.
func (v *LabelMarker) Bounds(scale float64, m TextMeasurer) geom.Rect {
	box, _ := v.layout(scale, m)
	return box
}

// layout returns the box and the measured text extents at scale.
func (v *LabelMarker) layout(scale float64, m TextMeasurer) (geom.Rect, TextExtents) {
	ext := m.Measure(v.Label, labelFontSize/scale)
	padX := labelPadX / scale
	padY := labelPadY / scale
	return geom.Rect{
		X:      v.X,
		Y:      v.Y,
		Width:  ext.Width + 2*padX,
		Height: ext.Height() + 2*padY,
	}, ext
}

// Polygon is an ordered list of vertices with a fill colour.
type Polygon struct {
	ID     string       `json:"id,omitempty"`
	Points []geom.Point `json:"points"`
	Color  string       `json:"color"`
}

// Scene owns every entity collection. The engine only holds references into
// it (the drag target and the in-progress polygon).
type Scene struct {
	Strokes  []Stroke
	Icons    []*IconMark
	Vehicles []Vehicle
	Polygons []*Polygon

	current *Polygon
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) AddStroke(st Stroke)      { s.Strokes = append(s.Strokes, st) }
func (s *Scene) AddIcon(m *IconMark)      { s.Icons = append(s.Icons, m) }
func (s *Scene) AddVehicle(v Vehicle)     { s.Vehicles = append(s.Vehicles, v) }
func (s *Scene) CommitPolygon(p *Polygon) { s.Polygons = append(s.Polygons, p) }

// LastStroke returns the most recently added stroke, or nil.
func (s *Scene) LastStroke() *Stroke {
	if len(s.Strokes) == 0 {
		return nil
	}
	return &s.Strokes[len(s.Strokes)-1]
}

// Current returns the polygon under construction, or nil.
func (s *Scene) Current() *Polygon { return s.current }

// SetCurrent installs (or with nil, removes) the polygon under construction.
func (s *Scene) SetCurrent(p *Polygon) { s.current = p }

// RemoveStrokes deletes every stroke for which remove returns true and
// reports how many were deleted. Order of the survivors is preserved.
func (s *Scene) RemoveStrokes(remove func(Stroke) bool) int {
	kept := s.Strokes[:0]
	for _, st := range s.Strokes {
		if !remove(st) {
			kept = append(kept, st)
		}
	}
	n := len(s.Strokes) - len(kept)
	clear(s.Strokes[len(kept):])
	s.Strokes = kept
	return n
}

// Clear empties all four collections. An armed in-progress polygon stays
// armed with its colour but loses its points.
func (s *Scene) Clear() {
	s.Strokes = nil
	s.Icons = nil
	s.Vehicles = nil
	s.Polygons = nil
	if s.current != nil {
		s.current.Points = nil
	}
}

// Len returns the total number of committed entities.
func (s *Scene) Len() int {
	return len(s.Strokes) + len(s.Icons) + len(s.Vehicles) + len(s.Polygons)
}
