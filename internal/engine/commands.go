package engine

import (
	"encoding/json"
	"math"

	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
)

// Draw operations. Coordinates of every op after setTransform are in world
// space.
const (
	OpSetTransform = "setTransform"
	OpClearRect    = "clearRect"
	OpImage        = "image"
	OpLine         = "line"
	OpPath         = "path"
	OpCircle       = "circle"
	OpText         = "text"
	OpRoundRect    = "roundRect"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string       `json:"op"`
	ObjectID    string       `json:"objectId,omitempty"`  // For hit correlation
	Transform   []float64    `json:"transform,omitempty"` // [a, b, c, d, e, f] affine matrix
	Rect        *geom.Rect   `json:"rect,omitempty"`      // clearRect, image, roundRect
	Points      []geom.Point `json:"points,omitempty"`    // line, path; circle center; text anchor
	Closed      bool         `json:"closed,omitempty"`
	Radius      float64      `json:"radius,omitempty"`
	Fill        string       `json:"fill,omitempty"`
	Stroke      string       `json:"stroke,omitempty"`
	StrokeWidth float64      `json:"strokeWidth,omitempty"`
	LineCap     string       `json:"lineCap,omitempty"`
	Dash        []float64    `json:"dash,omitempty"`
	Text        string       `json:"text,omitempty"`
	FontSize    float64      `json:"fontSize,omitempty"`
	ImageSource string       `json:"imageSource,omitempty"`

	// Bitmap is the decoded image for OpImage, used by server-side rasterizers.
	Bitmap *Bitmap `json:"-"`
}

// Fixed render metrics in device pixels, divided by the view scale.
const (
	iconFontSize    = 24.0
	polygonOutline  = 2.0
	polygonHandle   = 4.0
	eraserDashOn    = 4.0
	eraserDashOff   = 2.0
	eraserPreviewLW = 1.0
	outlineColor    = "#000"
	eraserCursor    = "#fff"
)

// LayerImage is a visible background layer and its bitmap.
type LayerImage struct {
	Layer  Layer
	Bitmap *Bitmap
}

// FrameInput is everything CompileFrame reads.
type FrameInput struct {
	View          View
	Scene         *Scene
	SurfaceWidth  float64
	SurfaceHeight float64
	// Layers holds the visible layers in draw order.
	Layers   []LayerImage
	Measurer TextMeasurer

	// EraserPreview, when set, draws the eraser cursor at that world point.
	EraserPreview *geom.Point
	EraserRadius  float64
}

// CompileFrame generates the draw command buffer for one frame, in painter's
// order (back to front). It never mutates its input.
func CompileFrame(in FrameInput) []DrawCommand {
	v := in.View
	s := v.Scale
	m := in.Measurer
	if m == nil {
		m = DefaultMeasurer()
	}

	visible := v.VisibleRect(in.SurfaceWidth, in.SurfaceHeight)
	commands := []DrawCommand{
		{Op: OpSetTransform, Transform: v.Matrix().ToSlice()},
		{Op: OpClearRect, Rect: &visible},
	}

	for _, l := range in.Layers {
		if l.Bitmap == nil || l.Bitmap.Width == 0 || l.Bitmap.Height == 0 {
			continue
		}
		r := letterbox(l.Bitmap, in.SurfaceWidth, in.SurfaceHeight)
		commands = append(commands, DrawCommand{
			Op:          OpImage,
			ObjectID:    string(l.Layer),
			Rect:        &r,
			ImageSource: l.Bitmap.Source,
			Bitmap:      l.Bitmap,
		})
	}

	scene := in.Scene
	if scene == nil {
		scene = NewScene()
	}

	for _, st := range scene.Strokes {
		commands = append(commands, DrawCommand{
			Op:          OpLine,
			Points:      []geom.Point{{X: st.X1, Y: st.Y1}, {X: st.X2, Y: st.Y2}},
			Stroke:      st.Color,
			StrokeWidth: st.Width,
			LineCap:     "round",
		})
	}

	for _, p := range scene.Polygons {
		commands = compilePolygon(commands, p, false, s)
	}
	if cur := scene.Current(); cur != nil && len(cur.Points) > 0 {
		commands = compilePolygon(commands, cur, true, s)
	}

	for _, ic := range scene.Icons {
		commands = append(commands, DrawCommand{
			Op:       OpText,
			ObjectID: ic.ID,
			Points:   []geom.Point{{X: ic.X, Y: ic.Y}},
			Text:     ic.Glyph,
			FontSize: iconFontSize / s,
			Fill:     outlineColor,
		})
	}

	for _, veh := range scene.Vehicles {
		commands = compileVehicle(commands, veh, s, m)
	}

	if in.EraserPreview != nil {
		commands = append(commands, DrawCommand{
			Op:          OpCircle,
			Points:      []geom.Point{*in.EraserPreview},
			Radius:      in.EraserRadius,
			Stroke:      eraserCursor,
			StrokeWidth: eraserPreviewLW / s,
			Dash:        []float64{eraserDashOn / s, eraserDashOff / s},
		})
	}

	return commands
}

// compilePolygon emits the outline (filled and closed unless preview) and a
// handle per vertex. Fewer than two points draw nothing.
func compilePolygon(commands []DrawCommand, p *Polygon, preview bool, scale float64) []DrawCommand {
	if len(p.Points) < 2 {
		return commands
	}

	path := DrawCommand{
		Op:          OpPath,
		ObjectID:    p.ID,
		Points:      append([]geom.Point(nil), p.Points...),
		Stroke:      outlineColor,
		StrokeWidth: polygonOutline / scale,
	}
	if !preview {
		path.Closed = true
		path.Fill = p.Color
	}
	commands = append(commands, path)

	for _, pt := range p.Points {
		commands = append(commands, DrawCommand{
			Op:     OpCircle,
			Points: []geom.Point{pt},
			Radius: polygonHandle / scale,
			Fill:   outlineColor,
		})
	}
	return commands
}

func compileVehicle(commands []DrawCommand, veh Vehicle, scale float64, m TextMeasurer) []DrawCommand {
	switch v := veh.(type) {
	case *ImageMarker:
		if v.Bitmap == nil {
			return commands
		}
		r := v.Bounds(scale, m)
		return append(commands, DrawCommand{
			Op:          OpImage,
			ObjectID:    v.ID,
			Rect:        &r,
			ImageSource: v.Bitmap.Source,
			Bitmap:      v.Bitmap,
		})
	case *LabelMarker:
		box, ext := v.layout(scale, m)
		return append(commands,
			DrawCommand{
				Op:          OpRoundRect,
				ObjectID:    v.ID,
				Rect:        &box,
				Radius:      labelRadius / scale,
				Fill:        VehicleColor(v.Kind),
				Stroke:      outlineColor,
				StrokeWidth: labelOutline / scale,
			},
			DrawCommand{
				Op:       OpText,
				ObjectID: v.ID,
				Points:   []geom.Point{{X: v.X + labelPadX/scale, Y: v.Y + labelPadY/scale + ext.Ascent}},
				Text:     v.Label,
				FontSize: labelFontSize / scale,
				Fill:     outlineColor,
			},
		)
	}
	return commands
}

// letterbox fits b inside a width x height surface, preserving its aspect
// ratio and centring it.
func letterbox(b *Bitmap, width, height float64) geom.Rect {
	bw, bh := float64(b.Width), float64(b.Height)
	k := math.Min(width/bw, height/bh)
	w, h := bw*k, bh*k
	return geom.Rect{X: (width - w) / 2, Y: (height - h) / 2, Width: w, Height: h}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
