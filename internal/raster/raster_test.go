package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
)

func newRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func rgba(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRasterize_PolygonFillAndBackground(t *testing.T) {
	r := newRasterizer(t)
	cmds := []engine.DrawCommand{
		{Op: engine.OpSetTransform, Transform: []float64{1, 0, 0, 1, 0, 0}},
		{Op: engine.OpClearRect, Rect: &geom.Rect{Width: 100, Height: 100}},
		{
			Op:     engine.OpPath,
			Points: []geom.Point{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 90}, {X: 10, Y: 90}},
			Closed: true,
			Fill:   "#0000ff",
		},
	}

	img, err := r.Image(cmds, Options{Width: 100, Height: 100})
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{B: 255, A: 255}, rgba(img, 50, 50))
	assert.Equal(t, color.RGBA{}, rgba(img, 2, 2))
}

func TestRasterize_TransformAndPixelRatio(t *testing.T) {
	r := newRasterizer(t)
	// World square 0..10 at scale 2, origin (20, 20), pixel ratio 2:
	// device pixels 40..80.
	cmds := []engine.DrawCommand{
		{Op: engine.OpSetTransform, Transform: []float64{2, 0, 0, 2, 20, 20}},
		{
			Op:     engine.OpPath,
			Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
			Closed: true,
			Fill:   "red",
		},
	}

	img, err := r.Image(cmds, Options{Width: 50, Height: 50, PixelRatio: 2})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba(img, 60, 60))
	assert.Equal(t, uint8(0), rgba(img, 30, 30).A)
	assert.Equal(t, uint8(0), rgba(img, 90, 90).A)
}

func TestRasterize_ClearRectRestoresBackground(t *testing.T) {
	r := newRasterizer(t)
	full := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	cmds := []engine.DrawCommand{
		{Op: engine.OpSetTransform, Transform: []float64{2, 0, 0, 2, 0, 0}},
		{Op: engine.OpPath, Points: full, Closed: true, Fill: "red"},
		{Op: engine.OpClearRect, Rect: &geom.Rect{X: 0, Y: 0, Width: 5, Height: 10}},
	}

	img, err := r.Image(cmds, Options{Width: 20, Height: 20, Background: color.White})
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, rgba(img, 5, 5))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba(img, 15, 5))

	img, err = r.Image(cmds, Options{Width: 20, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{}, rgba(img, 5, 5))
}

func TestRasterize_ImageBlit(t *testing.T) {
	r := newRasterizer(t)
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			src.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	cmds := []engine.DrawCommand{
		{Op: engine.OpSetTransform, Transform: []float64{1, 0, 0, 1, 0, 0}},
		{Op: engine.OpImage, Rect: &geom.Rect{X: 10, Y: 10, Width: 20, Height: 20}, Bitmap: engine.NewBitmap("g.png", src)},
	}

	img, err := r.Image(cmds, Options{Width: 40, Height: 40})
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgba(img, 20, 20))
	assert.Equal(t, uint8(0), rgba(img, 5, 5).A)
}

func TestRasterize_EngineFrameToPNG(t *testing.T) {
	e := engine.NewEngine(engine.WithSurface(120, 80))
	e.ArmIcon("X")
	e.PointerDown(engine.PointerEvent{X: 20, Y: 40})
	e.ArmVehicle(engine.VehicleDescriptor{Kind: "feuerwehr", Label: "HLF"})
	e.PointerDown(engine.PointerEvent{X: 50, Y: 20})
	require.NoError(t, e.SetMode("paint"))
	e.PointerDown(engine.PointerEvent{X: 5, Y: 70})
	e.PointerMove(engine.PointerEvent{X: 100, Y: 70})
	e.PointerUp(engine.PointerEvent{})

	r := newRasterizer(t)
	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf, e.Frame(), Options{Width: 120, Height: 80, Background: color.White}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())
	// The painted stroke crosses (50, 70).
	assert.Equal(t, color.RGBA{A: 255}, rgba(img, 50, 70))
}

func TestRasterize_Errors(t *testing.T) {
	r := newRasterizer(t)

	_, err := r.Image(nil, Options{})
	assert.Error(t, err)

	_, err = r.Image([]engine.DrawCommand{{Op: "bogus"}}, Options{Width: 1, Height: 1})
	assert.Error(t, err)

	_, err = r.Image([]engine.DrawCommand{{Op: engine.OpSetTransform, Transform: []float64{1}}}, Options{Width: 1, Height: 1})
	assert.Error(t, err)
}
