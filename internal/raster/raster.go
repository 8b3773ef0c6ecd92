// Package raster executes a compiled frame into a bitmap. It backs the PNG
// frame export that the PDF collaborator composites into its report.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/rclancey/earcut"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/lagekarte/lagekarte/backend-go/internal/colorutil"
	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
)

// Options control the output bitmap.
type Options struct {
	Width  int
	Height int
	// PixelRatio multiplies the output resolution. Values below 1 mean 1.
	PixelRatio float64
	// Background is the page colour: it fills the bitmap before drawing and
	// is what clearRect restores. Nil means transparent.
	Background color.Color
}

// Rasterizer draws frames with gg. It is safe for concurrent use.
type Rasterizer struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[int]font.Face
}

// New builds a rasterizer using Go Regular for text.
func New() (*Rasterizer, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Rasterizer{font: fnt, faces: make(map[int]font.Face)}, nil
}

// faceAt returns a face of the given pixel size, quantised to quarter pixels.
func (r *Rasterizer) faceAt(size float64) (font.Face, error) {
	key := max(1, int(math.Round(size*4)))
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[key] = f
	return f, nil
}

// Draw executes cmds and returns the drawing context.
func (r *Rasterizer) Draw(cmds []engine.DrawCommand, opts Options) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid surface %dx%d", opts.Width, opts.Height)
	}
	ratio := opts.PixelRatio
	if ratio < 1 || !geom.Finite(ratio) {
		ratio = 1
	}

	dc := gg.NewContext(int(math.Round(float64(opts.Width)*ratio)), int(math.Round(float64(opts.Height)*ratio)))
	if opts.Background != nil {
		dc.SetColor(opts.Background)
		dc.Clear()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bg := opts.Background
	if bg == nil {
		bg = colorutil.Transparent
	}
	p := &painter{r: r, dc: dc, bg: bg, ratio: ratio, m: engine.Scale(ratio, ratio), k: ratio}
	for i := range cmds {
		if err := p.exec(&cmds[i]); err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, cmds[i].Op, err)
		}
	}
	return dc, nil
}

// Image rasterizes cmds into a new RGBA image.
func (r *Rasterizer) Image(cmds []engine.DrawCommand, opts Options) (image.Image, error) {
	dc, err := r.Draw(cmds, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// EncodePNG rasterizes cmds and writes them as PNG.
func (r *Rasterizer) EncodePNG(w io.Writer, cmds []engine.DrawCommand, opts Options) error {
	dc, err := r.Draw(cmds, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// painter holds the current world-to-pixel transform while executing a frame.
// Points go through m; widths, dashes, radii and font sizes are multiplied by
// the uniform factor k.
type painter struct {
	r     *Rasterizer
	dc    *gg.Context
	bg    color.Color
	ratio float64
	m     engine.Matrix2D
	k     float64
}

func (p *painter) pt(q geom.Point) (float64, float64) {
	return p.m.TransformPoint(q.X, q.Y)
}

func (p *painter) rect(r geom.Rect) geom.Rect {
	return p.m.TransformRect(r)
}

func (p *painter) exec(c *engine.DrawCommand) error {
	switch c.Op {
	case engine.OpSetTransform:
		if len(c.Transform) != 6 {
			return fmt.Errorf("transform has %d elements", len(c.Transform))
		}
		var t engine.Matrix2D
		copy(t[:], c.Transform)
		p.m = engine.Scale(p.ratio, p.ratio).Multiply(t)
		p.k = math.Sqrt(math.Abs(p.m.Determinant()))
	case engine.OpClearRect:
		if c.Rect != nil {
			p.clear(p.rect(*c.Rect))
		}
	case engine.OpImage:
		if c.Rect != nil && c.Bitmap != nil && c.Bitmap.Image != nil {
			p.blit(c.Bitmap.Image, p.rect(*c.Rect))
		}
	case engine.OpLine:
		p.line(c)
	case engine.OpPath:
		p.path(c)
	case engine.OpCircle:
		p.circle(c)
	case engine.OpText:
		return p.text(c)
	case engine.OpRoundRect:
		p.roundRect(c)
	default:
		return fmt.Errorf("unknown op")
	}
	return nil
}

func toImageRect(r geom.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)
}

func (p *painter) clear(r geom.Rect) {
	dst, ok := p.dc.Image().(*image.RGBA)
	if !ok {
		return
	}
	draw.Draw(dst, toImageRect(r), image.NewUniform(p.bg), image.Point{}, draw.Src)
}

func (p *painter) blit(src image.Image, r geom.Rect) {
	dst, ok := p.dc.Image().(*image.RGBA)
	if !ok {
		return
	}
	dr := image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
	)
	if dr.Empty() {
		return
	}
	xdraw.BiLinear.Scale(dst, dr, src, src.Bounds(), xdraw.Over, nil)
}

func (p *painter) setStroke(c *engine.DrawCommand) {
	p.dc.SetColor(colorutil.MustParse(c.Stroke, colorutil.Black))
	p.dc.SetLineWidth(c.StrokeWidth * p.k)
	if len(c.Dash) > 0 {
		dash := make([]float64, len(c.Dash))
		for i, d := range c.Dash {
			dash[i] = d * p.k
		}
		p.dc.SetDash(dash...)
	} else {
		p.dc.SetDash()
	}
	switch c.LineCap {
	case "round":
		p.dc.SetLineCap(gg.LineCapRound)
	case "square":
		p.dc.SetLineCap(gg.LineCapSquare)
	default:
		p.dc.SetLineCap(gg.LineCapButt)
	}
}

func (p *painter) line(c *engine.DrawCommand) {
	if len(c.Points) < 2 || c.Stroke == "" {
		return
	}
	p.setStroke(c)
	x1, y1 := p.pt(c.Points[0])
	x2, y2 := p.pt(c.Points[1])
	p.dc.DrawLine(x1, y1, x2, y2)
	p.dc.Stroke()
}

func (p *painter) path(c *engine.DrawCommand) {
	if len(c.Points) < 2 {
		return
	}
	if c.Fill != "" && c.Closed && len(c.Points) >= 3 {
		p.fillPolygon(c.Points, colorutil.MustParse(c.Fill, colorutil.Black))
	}
	if c.Stroke == "" {
		return
	}
	p.setStroke(c)
	p.dc.NewSubPath()
	for i, q := range c.Points {
		x, y := p.pt(q)
		if i == 0 {
			p.dc.MoveTo(x, y)
		} else {
			p.dc.LineTo(x, y)
		}
	}
	if c.Closed {
		p.dc.ClosePath()
	}
	p.dc.Stroke()
}

// fillPolygon fills the polygon as one path made of its earcut triangles.
// Polygons earcut cannot triangulate fall back to a plain path fill.
func (p *painter) fillPolygon(pts []geom.Point, fill color.Color) {
	coords := make([]float64, 0, len(pts)*2)
	for _, q := range pts {
		x, y := p.pt(q)
		coords = append(coords, x, y)
	}

	p.dc.SetColor(fill)
	p.dc.SetFillRule(gg.FillRuleWinding)
	indices, err := earcut.Earcut(coords, nil, 2)
	if err != nil || len(indices) == 0 || len(indices)%3 != 0 {
		for i := 0; i < len(coords); i += 2 {
			p.dc.LineTo(coords[i], coords[i+1])
		}
		p.dc.ClosePath()
		p.dc.Fill()
		return
	}

	for t := 0; t < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		p.dc.MoveTo(coords[a*2], coords[a*2+1])
		p.dc.LineTo(coords[b*2], coords[b*2+1])
		p.dc.LineTo(coords[c*2], coords[c*2+1])
		p.dc.ClosePath()
	}
	p.dc.Fill()
}

func (p *painter) circle(c *engine.DrawCommand) {
	if len(c.Points) < 1 || c.Radius <= 0 {
		return
	}
	x, y := p.pt(c.Points[0])
	r := c.Radius * p.k
	p.dc.DrawCircle(x, y, r)
	if c.Fill != "" {
		p.dc.SetColor(colorutil.MustParse(c.Fill, colorutil.Black))
		if c.Stroke != "" {
			p.dc.FillPreserve()
		} else {
			p.dc.Fill()
		}
	}
	if c.Stroke != "" {
		p.setStroke(c)
		p.dc.Stroke()
	}
}

func (p *painter) roundRect(c *engine.DrawCommand) {
	if c.Rect == nil {
		return
	}
	r := p.rect(*c.Rect)
	p.dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, c.Radius*p.k)
	if c.Fill != "" {
		p.dc.SetColor(colorutil.MustParse(c.Fill, colorutil.Black))
		p.dc.FillPreserve()
	}
	if c.Stroke != "" {
		p.setStroke(c)
		p.dc.Stroke()
	} else {
		p.dc.ClearPath()
	}
}

func (p *painter) text(c *engine.DrawCommand) error {
	if len(c.Points) < 1 || c.Text == "" || c.FontSize <= 0 {
		return nil
	}
	face, err := p.r.faceAt(c.FontSize * p.k)
	if err != nil {
		return err
	}
	p.dc.SetFontFace(face)
	p.dc.SetColor(colorutil.MustParse(c.Fill, colorutil.Black))
	x, y := p.pt(c.Points[0])
	p.dc.DrawString(c.Text, x, y)
	return nil
}
