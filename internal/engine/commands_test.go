package engine

import (
	"encoding/json"
	"testing"

	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ops(cmds []DrawCommand) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Op
	}
	return out
}

func TestCompileFrame_TransformAndClear(t *testing.T) {
	v := View{Scale: 2, OriginX: 100, OriginY: 40}
	cmds := CompileFrame(FrameInput{View: v, SurfaceWidth: 800, SurfaceHeight: 600, Measurer: fixedMeasurer{}})

	require.Len(t, cmds, 2)
	assert.Equal(t, OpSetTransform, cmds[0].Op)
	assert.Equal(t, []float64{2, 0, 0, 2, 100, 40}, cmds[0].Transform)
	assert.Equal(t, OpClearRect, cmds[1].Op)
	assert.Equal(t, &geom.Rect{X: -50, Y: -20, Width: 400, Height: 300}, cmds[1].Rect)
}

func TestCompileFrame_PaintOrder(t *testing.T) {
	s := NewScene()
	s.AddVehicle(&LabelMarker{ID: "veh_1", Kind: "pol", Label: "FuStW"})
	s.AddIcon(&IconMark{ID: "icon_1", Glyph: "⚠", X: 1, Y: 1})
	s.CommitPolygon(&Polygon{ID: "poly_1", Color: "blue", Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 5}}})
	s.AddStroke(Stroke{X1: 0, Y1: 0, X2: 1, Y2: 1, Color: "red", Width: 2})
	s.SetCurrent(&Polygon{Color: "green", Points: []geom.Point{{X: 20, Y: 20}, {X: 30, Y: 20}}})

	base := testBitmap("base.png", 100, 50)
	pda := testBitmap("pda.png", 100, 50)
	cmds := CompileFrame(FrameInput{
		View:          NewView(),
		Scene:         s,
		SurfaceWidth:  200,
		SurfaceHeight: 200,
		Layers:        []LayerImage{{Layer: LayerBase, Bitmap: base}, {Layer: LayerPDA, Bitmap: pda}},
		Measurer:      fixedMeasurer{},
	})

	assert.Equal(t, []string{
		OpSetTransform, OpClearRect,
		// layers
		OpImage, OpImage,
		// stroke
		OpLine,
		// committed polygon with handles
		OpPath, OpCircle, OpCircle, OpCircle,
		// preview polygon with handles
		OpPath, OpCircle, OpCircle,
		// icon
		OpText,
		// label vehicle
		OpRoundRect, OpText,
	}, ops(cmds))

	assert.Equal(t, "base", cmds[2].ObjectID)
	assert.Equal(t, "pda", cmds[3].ObjectID)
	assert.Equal(t, "round", cmds[4].LineCap)

	committed := cmds[5]
	assert.True(t, committed.Closed)
	assert.Equal(t, "blue", committed.Fill)
	assert.Equal(t, "#000", committed.Stroke)

	preview := cmds[9]
	assert.False(t, preview.Closed)
	assert.Empty(t, preview.Fill)

	assert.Equal(t, "#90EE90", cmds[13].Fill)
}

func TestCompileFrame_Letterbox(t *testing.T) {
	wide := testBitmap("wide.png", 400, 100)
	tall := testBitmap("tall.png", 100, 400)

	cmds := CompileFrame(FrameInput{
		View:          NewView(),
		SurfaceWidth:  200,
		SurfaceHeight: 100,
		Layers:        []LayerImage{{Layer: LayerBase, Bitmap: wide}, {Layer: LayerPDA, Bitmap: tall}},
		Measurer:      fixedMeasurer{},
	})

	require.Len(t, cmds, 4)
	assert.Equal(t, &geom.Rect{X: 0, Y: 25, Width: 200, Height: 50}, cmds[2].Rect)
	assert.Equal(t, &geom.Rect{X: 87.5, Y: 0, Width: 25, Height: 100}, cmds[3].Rect)
}

func TestCompileFrame_ScaleInvariantMetrics(t *testing.T) {
	s := NewScene()
	s.AddIcon(&IconMark{Glyph: "X"})
	s.CommitPolygon(&Polygon{Points: []geom.Point{{}, {X: 1}, {Y: 1}}})

	cmds := CompileFrame(FrameInput{View: View{Scale: 4}, Scene: s, SurfaceWidth: 10, SurfaceHeight: 10, Measurer: fixedMeasurer{}})

	var path, handle, text DrawCommand
	for _, c := range cmds {
		switch c.Op {
		case OpPath:
			path = c
		case OpCircle:
			handle = c
		case OpText:
			text = c
		}
	}
	assert.Equal(t, 0.5, path.StrokeWidth)
	assert.Equal(t, 1.0, handle.Radius)
	assert.Equal(t, 6.0, text.FontSize)
}

func TestCompileFrame_ShortPolygonsDrawNothing(t *testing.T) {
	s := NewScene()
	s.SetCurrent(&Polygon{Points: []geom.Point{{X: 1, Y: 1}}})
	cmds := CompileFrame(FrameInput{View: NewView(), Scene: s, Measurer: fixedMeasurer{}})
	assert.Equal(t, []string{OpSetTransform, OpClearRect}, ops(cmds))
}

func TestCompileFrame_UnknownKindUsesFallback(t *testing.T) {
	s := NewScene()
	s.AddVehicle(&LabelMarker{Kind: "bundeswehr", Label: "X"})
	s.AddVehicle(&LabelMarker{Label: "Y"})
	cmds := CompileFrame(FrameInput{View: NewView(), Scene: s, Measurer: fixedMeasurer{}})

	var fills []string
	for _, c := range cmds {
		if c.Op == OpRoundRect {
			fills = append(fills, c.Fill)
		}
	}
	assert.Equal(t, []string{FallbackVehicleColor, FallbackVehicleColor}, fills)
}

func TestCompileFrame_LabelTextSitsInsidePadding(t *testing.T) {
	s := NewScene()
	s.AddVehicle(&LabelMarker{Kind: "thw", Label: "MTW", X: 10, Y: 20})
	cmds := CompileFrame(FrameInput{View: NewView(), Scene: s, Measurer: fixedMeasurer{}})

	text := cmds[len(cmds)-1]
	require.Equal(t, OpText, text.Op)
	// padX 6, padY 4 + ascent 14*0.8
	assert.InDelta(t, 16, text.Points[0].X, 1e-9)
	assert.InDelta(t, 35.2, text.Points[0].Y, 1e-9)
	assert.Equal(t, 14.0, text.FontSize)
}

func TestEngine_FrameEraserPreview(t *testing.T) {
	e := newTestEngine()
	require.NoError(t, e.SetMode("eraser"))
	e.SetWidth(8)
	e.Wheel(WheelEvent{X: 0, Y: 0, DeltaY: -1})
	e.PointerMove(primary(44, 22))

	cmds := e.Frame()
	last := cmds[len(cmds)-1]
	require.Equal(t, OpCircle, last.Op)
	assert.InDelta(t, 40, last.Points[0].X, 1e-9)
	assert.InDelta(t, 20, last.Points[0].Y, 1e-9)
	assert.InDelta(t, 4/1.1, last.Radius, 1e-9)
	assert.Equal(t, "#fff", last.Stroke)
	require.Len(t, last.Dash, 2)
	assert.InDelta(t, 4/1.1, last.Dash[0], 1e-9)

	require.NoError(t, e.SetMode("move"))
	for _, c := range e.Frame() {
		assert.NotEqual(t, OpCircle, c.Op)
	}
}

func TestEngine_FrameSkipsHiddenLayers(t *testing.T) {
	e := newTestEngine()
	require.NoError(t, e.SetLayerBitmap("base", testBitmap("base.png", 10, 10)))
	require.NoError(t, e.SetLayerBitmap("hydrants", testBitmap("hyd.png", 10, 10)))

	assert.Equal(t, []string{OpSetTransform, OpClearRect, OpImage}, ops(e.Frame()))

	require.NoError(t, e.SetLayerVisible("hydrants", true))
	require.NoError(t, e.SetLayerVisible("base", false))
	cmds := e.Frame()
	require.Len(t, cmds, 3)
	assert.Equal(t, "hyd.png", cmds[2].ImageSource)
}

func TestEngine_RenderJSON(t *testing.T) {
	e := newTestEngine()
	e.Scene().AddStroke(Stroke{X1: 1, Y1: 2, X2: 3, Y2: 4, Color: "red", Width: 2})

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.Render()), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "line", decoded[2]["op"])
	assert.Equal(t, "red", decoded[2]["stroke"])
	assert.NotContains(t, decoded[2], "Bitmap")
	assert.False(t, e.Dirty())
}
