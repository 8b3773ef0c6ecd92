package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Apply runs one client message against the engine. It returns the direct
// reply for queries (render, hit.test) and nil for input and configuration.
// Apply must run on the goroutine that owns e.
func Apply(e *engine.Engine, msg *Message) (*Message, error) {
	switch msg.Type {
	case TypePointerDown:
		return nil, withPayload(msg, func(ev engine.PointerEvent) error {
			e.PointerDown(ev)
			return nil
		})
	case TypePointerMove:
		return nil, withPayload(msg, func(ev engine.PointerEvent) error {
			e.PointerMove(ev)
			return nil
		})
	case TypePointerUp:
		var ev engine.PointerEvent
		if len(msg.Payload) > 0 {
			if err := decode(msg, &ev); err != nil {
				return nil, err
			}
		}
		e.PointerUp(ev)
		return nil, nil
	case TypeWheel:
		return nil, withPayload(msg, func(ev engine.WheelEvent) error {
			e.Wheel(ev)
			return nil
		})
	case TypeContextMenu:
		e.ContextMenu()
		return nil, nil
	case TypeDragOver:
		e.DragOver()
		return nil, nil
	case TypeDragLeave:
		e.DragLeave()
		return nil, nil
	case TypeDrop:
		return nil, withPayload(msg, func(ev engine.DropEvent) error {
			e.Drop(ev)
			return nil
		})
	case TypeConfigColor:
		return nil, withPayload(msg, func(p ColorPayload) error {
			e.SetColor(p.Color)
			return nil
		})
	case TypeConfigWidth:
		return nil, withPayload(msg, func(p WidthPayload) error {
			e.SetWidth(p.Width)
			return nil
		})
	case TypeConfigMode:
		return nil, withPayload(msg, func(p ModePayload) error {
			return e.SetMode(p.Mode)
		})
	case TypeArmIcon:
		return nil, withPayload(msg, func(p IconPayload) error {
			e.ArmIcon(p.Glyph)
			return nil
		})
	case TypeArmVehicle:
		return nil, withPayload(msg, func(d engine.VehicleDescriptor) error {
			if d.Kind == "" && d.Source == "" {
				e.DisarmVehicle()
				return nil
			}
			e.ArmVehicle(d)
			return nil
		})
	case TypeArmPolygon:
		var p ColorPayload
		if len(msg.Payload) > 0 {
			if err := decode(msg, &p); err != nil {
				return nil, err
			}
		}
		e.ArmPolygon(p.Color)
		return nil, nil
	case TypeLayerSet:
		return nil, withPayload(msg, func(p LayerPayload) error {
			return e.SetLayerVisible(p.Layer, p.Visible)
		})
	case TypeSurfaceResize:
		return nil, withPayload(msg, func(p SurfacePayload) error {
			e.SetSurfaceSize(p.Width, p.Height)
			return nil
		})
	case TypeSceneClear:
		e.Clear()
		return nil, nil
	case TypeRender:
		return reply(msg, TypeFrame, FramePayload{Commands: e.Frame()})
	case TypeHitTest:
		var p PointPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return reply(msg, TypeHit, e.HitTest(p.X, p.Y))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type)
	}
}

func decode(msg *Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w for %s: %w", ErrInvalidPayload, msg.Type, err)
	}
	return nil
}

func withPayload[T any](msg *Message, fn func(T) error) error {
	var v T
	if err := decode(msg, &v); err != nil {
		return err
	}
	return fn(v)
}

func reply(req *Message, typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return &Message{Type: typ, SessionID: req.SessionID, Seq: req.Seq, Payload: data}, nil
}

func errorMessage(req *Message, err error) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: err.Error()})
	return &Message{Type: TypeError, SessionID: req.SessionID, Seq: req.Seq, Payload: payload}
}
