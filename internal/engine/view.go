package engine

import (
	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
)

// Wheel zoom factors per tick.
const (
	ZoomOutFactor = 0.9
	ZoomInFactor  = 1.1
)

// View is the pan/zoom transform between device space and world space:
// device = world*Scale + Origin.
type View struct {
	Scale   float64
	OriginX float64
	OriginY float64

	// Optional scale bounds. Zero means unbounded on that side.
	MinScale float64
	MaxScale float64

	panStartX float64
	panStartY float64
}

// NewView returns an identity view.
func NewView() View {
	return View{Scale: 1}
}

// ToWorld converts a device-space point to world space.
func (v *View) ToWorld(deviceX, deviceY float64) (float64, float64) {
	return (deviceX - v.OriginX) / v.Scale, (deviceY - v.OriginY) / v.Scale
}

// ToDevice converts a world-space point to device space.
func (v *View) ToDevice(x, y float64) (float64, float64) {
	return x*v.Scale + v.OriginX, y*v.Scale + v.OriginY
}

// ZoomAt multiplies the scale by factor while keeping the world point under
// (deviceX, deviceY) fixed. A step that would leave the scale non-positive or
// outside the configured bounds, or the scale or origin non-finite, is
// skipped and ZoomAt returns false.
func (v *View) ZoomAt(deviceX, deviceY, factor float64) bool {
	next := v.Scale * factor
	if !geom.Finite(next) || next <= 0 {
		return false
	}
	if v.MinScale > 0 && next < v.MinScale {
		return false
	}
	if v.MaxScale > 0 && next > v.MaxScale {
		return false
	}

	ratio := next / v.Scale
	ox := deviceX - (deviceX-v.OriginX)*ratio
	oy := deviceY - (deviceY-v.OriginY)*ratio
	if !geom.Finite(ox) || !geom.Finite(oy) {
		return false
	}
	v.OriginX, v.OriginY = ox, oy
	v.Scale = next
	return true
}

// BeginPan anchors a pan gesture at the device pointer.
func (v *View) BeginPan(deviceX, deviceY float64) {
	v.panStartX = deviceX - v.OriginX
	v.panStartY = deviceY - v.OriginY
}

// PanTo moves the origin so the anchor recorded by BeginPan stays under the
// device pointer. A move that would leave the origin non-finite is skipped
// and PanTo returns false.
func (v *View) PanTo(deviceX, deviceY float64) bool {
	ox := deviceX - v.panStartX
	oy := deviceY - v.panStartY
	if !geom.Finite(ox) || !geom.Finite(oy) {
		return false
	}
	v.OriginX, v.OriginY = ox, oy
	return true
}

// Reset restores scale 1 and origin (0,0). Bounds are kept.
func (v *View) Reset() {
	v.Scale = 1
	v.OriginX = 0
	v.OriginY = 0
	v.panStartX = 0
	v.panStartY = 0
}

// Matrix returns the world-to-device matrix.
func (v *View) Matrix() Matrix2D {
	return Translate(v.OriginX, v.OriginY).Multiply(Scale(v.Scale, v.Scale))
}

// VisibleRect returns the world-space rectangle covered by a device surface
// of the given size.
func (v *View) VisibleRect(width, height float64) geom.Rect {
	return geom.Rect{
		X:      -v.OriginX / v.Scale,
		Y:      -v.OriginY / v.Scale,
		Width:  width / v.Scale,
		Height: height / v.Scale,
	}
}
