//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"syscall/js"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
)

var eng *engine.Engine

var loader imageLoader

// layerLoads carries finished background bitmaps to tick, which installs them
// on the engine's goroutine.
var layerLoads = make(chan layerLoad, 8)

type layerLoad struct {
	name   string
	bitmap *engine.Bitmap
}

func main() {
	eng = engine.NewEngine(engine.WithLoader(loader))

	// Create the engine API object
	lagekarteEngine := js.Global().Get("Object").New()

	// --- Input ---
	lagekarteEngine.Set("pointerDown", js.FuncOf(pointerDown))
	lagekarteEngine.Set("pointerMove", js.FuncOf(pointerMove))
	lagekarteEngine.Set("pointerUp", js.FuncOf(pointerUp))
	lagekarteEngine.Set("wheel", js.FuncOf(wheel))
	lagekarteEngine.Set("contextMenu", js.FuncOf(contextMenu))
	lagekarteEngine.Set("dragOver", js.FuncOf(dragOver))
	lagekarteEngine.Set("dragLeave", js.FuncOf(dragLeave))
	lagekarteEngine.Set("drop", js.FuncOf(drop))

	// --- Configuration ---
	lagekarteEngine.Set("setColor", js.FuncOf(setColor))
	lagekarteEngine.Set("setWidth", js.FuncOf(setWidth))
	lagekarteEngine.Set("setMode", js.FuncOf(setMode))
	lagekarteEngine.Set("armIcon", js.FuncOf(armIcon))
	lagekarteEngine.Set("armVehicle", js.FuncOf(armVehicle))
	lagekarteEngine.Set("armPolygon", js.FuncOf(armPolygon))
	lagekarteEngine.Set("setLayer", js.FuncOf(setLayer))
	lagekarteEngine.Set("setLayerBitmap", js.FuncOf(setLayerBitmap))
	lagekarteEngine.Set("setSurfaceSize", js.FuncOf(setSurfaceSize))
	lagekarteEngine.Set("clear", js.FuncOf(clearScene))

	// --- Queries ---
	lagekarteEngine.Set("render", js.FuncOf(render))
	lagekarteEngine.Set("tick", js.FuncOf(tick))
	lagekarteEngine.Set("hitTest", js.FuncOf(hitTest))
	lagekarteEngine.Set("palette", js.FuncOf(palette))

	// Register on global scope
	js.Global().Set("lagekarteEngine", lagekarteEngine)

	// Signal that WASM is ready
	js.Global().Set("lagekarteWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func floatArg(args []js.Value, i int) float64 {
	if i >= len(args) || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Float()
}

func stringArg(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func pointerArgs(args []js.Value) engine.PointerEvent {
	return engine.PointerEvent{
		X:      floatArg(args, 0),
		Y:      floatArg(args, 1),
		Button: engine.Button(floatArg(args, 2)),
	}
}

// --- Input Handlers ---

func pointerDown(this js.Value, args []js.Value) interface{} {
	eng.PointerDown(pointerArgs(args))
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	eng.PointerMove(pointerArgs(args))
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	eng.PointerUp(pointerArgs(args))
	return nil
}

// wheel returns true when the host must call preventDefault.
func wheel(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Wheel(engine.WheelEvent{
		X:      floatArg(args, 0),
		Y:      floatArg(args, 1),
		DeltaY: floatArg(args, 2),
	}))
}

func contextMenu(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ContextMenu())
}

func dragOver(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.DragOver())
}

func dragLeave(this js.Value, args []js.Value) interface{} {
	eng.DragLeave()
	return nil
}

// drop takes x, y and the transfer data, either as a JSON string or as an
// object with imgSrc, type and label.
func drop(this js.Value, args []js.Value) interface{} {
	var payload engine.DropPayload
	if len(args) > 2 {
		data := args[2]
		switch data.Type() {
		case js.TypeString:
			if err := json.Unmarshal([]byte(data.String()), &payload); err != nil {
				return fail(fmt.Errorf("decode drop data: %w", err))
			}
		case js.TypeObject:
			payload = engine.DropPayloadFromMap(map[string]string{
				"imgSrc": jsString(data.Get("imgSrc")),
				"type":   jsString(data.Get("type")),
				"label":  jsString(data.Get("label")),
			})
		}
	}
	eng.Drop(engine.DropEvent{X: floatArg(args, 0), Y: floatArg(args, 1), Data: payload})
	return ok()
}

func jsString(v js.Value) string {
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

// --- Configuration Handlers ---

func setColor(this js.Value, args []js.Value) interface{} {
	eng.SetColor(stringArg(args, 0))
	return nil
}

func setWidth(this js.Value, args []js.Value) interface{} {
	eng.SetWidth(floatArg(args, 0))
	return nil
}

func setMode(this js.Value, args []js.Value) interface{} {
	if err := eng.SetMode(stringArg(args, 0)); err != nil {
		return fail(err)
	}
	return ok()
}

func armIcon(this js.Value, args []js.Value) interface{} {
	eng.ArmIcon(stringArg(args, 0))
	return nil
}

// armVehicle(kind, source, label); no kind and no source disarms.
func armVehicle(this js.Value, args []js.Value) interface{} {
	d := engine.VehicleDescriptor{
		Kind:   stringArg(args, 0),
		Source: stringArg(args, 1),
		Label:  stringArg(args, 2),
	}
	if d.Kind == "" && d.Source == "" {
		eng.DisarmVehicle()
		return nil
	}
	eng.ArmVehicle(d)
	return nil
}

func armPolygon(this js.Value, args []js.Value) interface{} {
	eng.ArmPolygon(stringArg(args, 0))
	return nil
}

func setLayer(this js.Value, args []js.Value) interface{} {
	visible := len(args) > 1 && args[1].Truthy()
	if err := eng.SetLayerVisible(stringArg(args, 0), visible); err != nil {
		return fail(err)
	}
	return ok()
}

// setLayerBitmap starts loading source for a layer; tick installs it once
// the browser has decoded it.
func setLayerBitmap(this js.Value, args []js.Value) interface{} {
	name, source := stringArg(args, 0), stringArg(args, 1)
	if _, err := engine.ParseLayer(name); err != nil {
		return fail(err)
	}
	if source == "" {
		eng.SetLayerBitmap(name, nil)
		return ok()
	}
	go func() {
		b, err := loader.Load(context.Background(), source)
		if err != nil {
			slog.Warn("layer bitmap load failed", "layer", name, "source", source, "error", err)
			return
		}
		layerLoads <- layerLoad{name: name, bitmap: b}
	}()
	return ok()
}

func setSurfaceSize(this js.Value, args []js.Value) interface{} {
	eng.SetSurfaceSize(floatArg(args, 0), floatArg(args, 1))
	return nil
}

func clearScene(this js.Value, args []js.Value) interface{} {
	eng.Clear()
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

// tick folds in finished loads and returns the frame JSON when anything
// changed, or null.
func tick(this js.Value, args []js.Value) interface{} {
	eng.Pump()
drain:
	for {
		select {
		case l := <-layerLoads:
			eng.SetLayerBitmap(l.name, l.bitmap)
		default:
			break drain
		}
	}
	if !eng.Dirty() {
		return nil
	}
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	res := eng.HitTest(floatArg(args, 0), floatArg(args, 1))
	data, err := json.Marshal(res)
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func palette(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(map[string]interface{}{
		"colors":       engine.DrawingColors,
		"widths":       engine.StrokeWidths,
		"vehicleKinds": engine.VehicleKinds(),
	})
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}
