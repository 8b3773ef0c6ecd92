package engine

// FindItemAt returns the topmost draggable entity at the world point, or nil.
// Vehicles take precedence over icons; within each collection the most
// recently added entity wins.
func FindItemAt(s *Scene, x, y, scale float64, m TextMeasurer) Item {
	if s == nil {
		return nil
	}

	for i := len(s.Vehicles) - 1; i >= 0; i-- {
		v := s.Vehicles[i]
		if v.Bounds(scale, m).Contains(x, y) {
			return v
		}
	}

	for i := len(s.Icons) - 1; i >= 0; i-- {
		ic := s.Icons[i]
		if ic.HitBox().Contains(x, y) {
			return ic
		}
	}

	return nil
}

// HitTestResult contains information about a hit test.
type HitTestResult struct {
	ObjectID string  `json:"objectId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}
