package engine

import (
	"log/slog"

	"github.com/lagekarte/lagekarte/backend-go/internal/geom"
	"github.com/lagekarte/lagekarte/backend-go/internal/typeid"
)

// ClosureTolerance is the distance to the first vertex within which a polygon
// click closes the polygon.
const ClosureTolerance = 10.0

// DefaultMaxSurface bounds each side of the device surface.
const DefaultMaxSurface = 8192.0

// Engine is the annotation canvas: it owns the view and the scene, consumes
// pointer, wheel and drop input, and produces draw commands.
//
// Engine is not safe for concurrent use. All methods must be called from one
// goroutine; bitmap loads run elsewhere and are folded in by Pump.
type Engine struct {
	view     View
	scene    *Scene
	measurer TextMeasurer
	loads    *loadQueue
	logger   *slog.Logger

	// Configuration
	mode         Mode
	color        string
	width        float64
	armedIcon    string
	armedVehicle *VehicleDescriptor
	layers       map[Layer]bool
	layerBitmaps map[Layer]*Bitmap
	surfaceW     float64
	surfaceH     float64
	maxSurface   float64

	// Gesture state
	drawing    bool
	erasing    bool
	panning    bool
	drag       Item
	dragOffset geom.Point
	pointer    *geom.Point // last world pointer position, for the eraser cursor

	// generation is bumped by Clear so loads started before it are dropped.
	generation uint64

	// Dirty flag - a new frame is needed
	dirty bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoader sets the loader used for image-backed vehicles.
func WithLoader(l BitmapLoader) Option {
	return func(e *Engine) { e.loads = newLoadQueue(l) }
}

// WithMeasurer replaces the default Go Regular text measurer.
func WithMeasurer(m TextMeasurer) Option {
	return func(e *Engine) { e.measurer = m }
}

// WithZoomLimits bounds the view scale. Zero leaves a side unbounded.
func WithZoomLimits(minScale, maxScale float64) Option {
	return func(e *Engine) {
		e.view.MinScale = minScale
		e.view.MaxScale = maxScale
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxSurface bounds each side of the device surface. Larger sizes are
// clamped. Zero or less removes the bound.
func WithMaxSurface(size float64) Option {
	return func(e *Engine) { e.maxSurface = size }
}

// WithSurface sets the initial device surface size.
func WithSurface(width, height float64) Option {
	return func(e *Engine) { e.SetSurfaceSize(width, height) }
}

// NewEngine creates a new engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		view:         NewView(),
		scene:        NewScene(),
		mode:         ModeMove,
		color:        DefaultColor,
		width:        DefaultWidth,
		layers:       map[Layer]bool{LayerBase: true},
		layerBitmaps: make(map[Layer]*Bitmap),
		maxSurface:   DefaultMaxSurface,
		dirty:        true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.surfaceW, e.surfaceH = e.clampSurface(e.surfaceW, e.surfaceH)
	if e.measurer == nil {
		e.measurer = DefaultMeasurer()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Close cancels in-flight bitmap loads and waits for their goroutines.
func (e *Engine) Close() {
	if e.loads != nil {
		e.loads.close()
	}
}

// --- Configuration ---

// SetColor sets the stroke colour. Empty values are ignored.
func (e *Engine) SetColor(color string) {
	if color == "" {
		return
	}
	e.color = color
}

// SetWidth sets the stroke width in device pixels. Non-positive or
// non-finite values are ignored.
func (e *Engine) SetWidth(width float64) {
	if width <= 0 || !geom.Finite(width) {
		return
	}
	if e.width != width {
		e.width = width
		if e.mode == ModeEraser && e.pointer != nil {
			e.dirty = true
		}
	}
}

// SetMode switches the active tool. Unknown names leave the mode unchanged.
func (e *Engine) SetMode(name string) error {
	m, err := ParseMode(name)
	if err != nil {
		return err
	}
	e.setMode(m)
	return nil
}

func (e *Engine) setMode(m Mode) {
	if e.mode == m {
		return
	}
	// The eraser cursor appears and disappears with the mode.
	if e.mode == ModeEraser || m == ModeEraser {
		e.dirty = true
	}
	e.mode = m
}

// ArmIcon makes the next primary click place glyph. An empty glyph disarms.
func (e *Engine) ArmIcon(glyph string) {
	e.armedIcon = glyph
}

// ArmVehicle makes the next primary click place a vehicle.
func (e *Engine) ArmVehicle(d VehicleDescriptor) {
	e.armedVehicle = &d
}

// DisarmVehicle drops a pending armed vehicle.
func (e *Engine) DisarmVehicle() {
	e.armedVehicle = nil
}

// ArmPolygon switches to polygon mode with a fresh, empty polygon of the
// given fill colour (DefaultPolygonColor when empty). A polygon still under
// construction is discarded.
func (e *Engine) ArmPolygon(color string) {
	if color == "" {
		color = DefaultPolygonColor
	}
	if cur := e.scene.Current(); cur != nil && len(cur.Points) > 0 {
		e.dirty = true
	}
	e.setMode(ModePolygon)
	e.scene.SetCurrent(&Polygon{Color: color})
}

// SetLayerVisible toggles a background layer.
func (e *Engine) SetLayerVisible(name string, visible bool) error {
	l, err := ParseLayer(name)
	if err != nil {
		return err
	}
	if e.layers[l] != visible {
		e.layers[l] = visible
		e.dirty = true
	}
	return nil
}

// SetLayerBitmap installs the bitmap drawn for a layer. A nil bitmap removes it.
func (e *Engine) SetLayerBitmap(name string, b *Bitmap) error {
	l, err := ParseLayer(name)
	if err != nil {
		return err
	}
	if b == nil {
		delete(e.layerBitmaps, l)
	} else {
		e.layerBitmaps[l] = b
	}
	e.dirty = true
	return nil
}

// SetSurfaceSize sets the device surface size used to clear and letterbox.
// Sides above the configured maximum are clamped to it.
func (e *Engine) SetSurfaceSize(width, height float64) {
	if width <= 0 || height <= 0 || !geom.Finite(width) || !geom.Finite(height) {
		return
	}
	width, height = e.clampSurface(width, height)
	if e.surfaceW != width || e.surfaceH != height {
		e.surfaceW = width
		e.surfaceH = height
		e.dirty = true
	}
}

func (e *Engine) clampSurface(width, height float64) (float64, float64) {
	if e.maxSurface <= 0 {
		return width, height
	}
	return min(width, e.maxSurface), min(height, e.maxSurface)
}

// --- Input ---

// toWorld converts a device point to world space. ok is false when either
// coordinate is not finite; such input is dropped.
func (e *Engine) toWorld(deviceX, deviceY float64) (x, y float64, ok bool) {
	x, y = e.view.ToWorld(deviceX, deviceY)
	return x, y, geom.Finite(x) && geom.Finite(y)
}

// PointerDown handles a button press at device coordinates.
func (e *Engine) PointerDown(ev PointerEvent) {
	if ev.Button == ButtonSecondary {
		e.panning = true
		e.view.BeginPan(ev.X, ev.Y)
		return
	}
	if ev.Button != ButtonPrimary {
		return
	}

	x, y, ok := e.toWorld(ev.X, ev.Y)
	if !ok {
		return
	}
	e.pointer = &geom.Point{X: x, Y: y}

	if e.armedIcon != "" {
		e.scene.AddIcon(&IconMark{ID: typeid.NewIconID(), Glyph: e.armedIcon, X: x, Y: y})
		e.armedIcon = ""
		e.dirty = true
		return
	}

	if e.armedVehicle != nil {
		d := *e.armedVehicle
		e.armedVehicle = nil
		e.placeVehicle(d, x, y, armedVehicleDivisor)
		return
	}

	switch e.mode {
	case ModePolygon:
		e.addPolygonPoint(x, y)
	case ModeMove:
		if item := FindItemAt(e.scene, x, y, e.view.Scale, e.measurer); item != nil {
			e.drag = item
			p := item.Position()
			e.dragOffset = geom.Pt(x-p.X, y-p.Y)
		}
	case ModePaint:
		e.drawing = true
		e.scene.AddStroke(Stroke{X1: x, Y1: y, X2: x, Y2: y, Color: e.color, Width: e.width / e.view.Scale})
		e.dirty = true
	case ModeEraser:
		e.erasing = true
		e.eraseAt(x, y)
	}
}

// PointerMove handles pointer motion at device coordinates, with or without
// a button held.
func (e *Engine) PointerMove(ev PointerEvent) {
	if x, y, ok := e.toWorld(ev.X, ev.Y); ok {
		e.moveAt(x, y)
	}
	if e.panning && e.view.PanTo(ev.X, ev.Y) {
		e.dirty = true
	}
}

func (e *Engine) moveAt(x, y float64) {
	e.pointer = &geom.Point{X: x, Y: y}

	if e.mode == ModeEraser {
		if e.erasing {
			e.eraseAt(x, y)
		}
		e.dirty = true
	}

	if e.mode == ModePaint && e.drawing {
		if last := e.scene.LastStroke(); last != nil {
			last.X2, last.Y2 = x, y
		}
		e.scene.AddStroke(Stroke{X1: x, Y1: y, X2: x, Y2: y, Color: e.color, Width: e.width / e.view.Scale})
		e.dirty = true
	}

	if e.mode == ModeMove && e.drag != nil {
		e.drag.SetPosition(x-e.dragOffset.X, y-e.dragOffset.Y)
		e.dirty = true
	}
}

// PointerUp ends every gesture. It is safe to call repeatedly.
func (e *Engine) PointerUp(PointerEvent) {
	e.drawing = false
	e.erasing = false
	e.drag = nil
	e.panning = false
}

// Wheel zooms one step around the pointer. It reports true to tell the host
// to suppress default scrolling.
func (e *Engine) Wheel(ev WheelEvent) bool {
	factor := ZoomInFactor
	if ev.DeltaY > 0 {
		factor = ZoomOutFactor
	}
	if e.view.ZoomAt(ev.X, ev.Y, factor) {
		e.dirty = true
	}
	return true
}

// ContextMenu reports true: the host must suppress the native context menu.
func (e *Engine) ContextMenu() bool {
	return true
}

// DragOver accepts a palette drag hovering the surface. It reports true so
// the host allows the drop.
func (e *Engine) DragOver() bool {
	return true
}

// DragLeave is a no-op; a drag hover leaves no state behind.
func (e *Engine) DragLeave() {}

// Drop places a vehicle from a palette drag at device coordinates.
func (e *Engine) Drop(ev DropEvent) {
	x, y, ok := e.toWorld(ev.X, ev.Y)
	if !ok {
		return
	}
	e.placeVehicle(ev.Data.Descriptor(), x, y, droppedVehicleDivisor)
}

// Clear empties the scene and resets the view. Loads still in flight are
// discarded when they complete.
func (e *Engine) Clear() {
	e.scene.Clear()
	e.view.Reset()
	e.drawing = false
	e.erasing = false
	e.panning = false
	e.drag = nil
	e.generation++
	e.dirty = true
}

// --- Async loads ---

// Ready is signalled when at least one bitmap load has completed. It is nil
// when no loader is configured.
func (e *Engine) Ready() <-chan struct{} {
	if e.loads == nil {
		return nil
	}
	return e.loads.ready
}

// Pending returns the number of bitmap loads in flight.
func (e *Engine) Pending() int {
	if e.loads == nil {
		return 0
	}
	return int(e.loads.pending.Load())
}

// Pump appends the vehicles whose bitmaps finished loading, in completion
// order, and returns how many were added.
func (e *Engine) Pump() int {
	if e.loads == nil {
		return 0
	}
	added := 0
	for _, r := range e.loads.drain() {
		if r.err == nil && r.bitmap == nil {
			r.err = errEmptyBitmap
		}
		if r.err != nil {
			e.logger.Warn("vehicle bitmap load failed", "source", r.desc.Source, "error", r.err)
			continue
		}
		if r.generation != e.generation {
			e.logger.Debug("dropping vehicle loaded before clear", "source", r.desc.Source)
			continue
		}
		e.scene.AddVehicle(&ImageMarker{
			ID:     typeid.NewVehicleID(),
			Kind:   r.desc.Kind,
			Bitmap: r.bitmap,
			X:      r.x,
			Y:      r.y,
			W:      float64(r.bitmap.Width) / r.divisor,
			H:      float64(r.bitmap.Height) / r.divisor,
		})
		added++
	}
	if added > 0 {
		e.dirty = true
	}
	return added
}

func (e *Engine) placeVehicle(d VehicleDescriptor, x, y, divisor float64) {
	if d.Source == "" {
		label := d.Label
		if label == "" {
			label = d.Kind
		}
		e.scene.AddVehicle(&LabelMarker{ID: typeid.NewVehicleID(), Kind: d.Kind, Label: label, X: x, Y: y})
		e.dirty = true
		return
	}
	if e.loads == nil {
		e.logger.Warn("cannot place image vehicle", "source", d.Source, "error", ErrNoLoader)
		return
	}
	e.loads.start(placement{desc: d, x: x, y: y, divisor: divisor, generation: e.generation})
}

func (e *Engine) addPolygonPoint(x, y float64) {
	cur := e.scene.Current()
	if cur == nil {
		return
	}
	cur.Points = append(cur.Points, geom.Pt(x, y))
	e.dirty = true

	n := len(cur.Points)
	if n <= 2 || geom.Dist(cur.Points[n-1], cur.Points[0]) >= ClosureTolerance {
		return
	}
	// The closing click lands on the first vertex; keep it only when the
	// polygon would otherwise drop below three vertices.
	if n > 3 {
		cur.Points = cur.Points[:n-1]
	}
	cur.ID = typeid.NewPolygonID()
	e.scene.CommitPolygon(cur)
	e.scene.SetCurrent(nil)
	e.setMode(ModeMove)
}

// eraseRadius is half the stroke width, in world units.
func (e *Engine) eraseRadius() float64 {
	return e.width / 2 / e.view.Scale
}

func (e *Engine) eraseAt(x, y float64) {
	r := e.eraseRadius()
	p := geom.Pt(x, y)
	e.scene.RemoveStrokes(func(s Stroke) bool {
		return s.DistanceTo(p) <= r
	})
	e.dirty = true
}

// --- Queries ---

// Frame compiles the current state into draw commands and clears the dirty
// flag.
func (e *Engine) Frame() []DrawCommand {
	e.dirty = false
	return CompileFrame(e.frameInput())
}

// Snapshot compiles the current state without touching the dirty flag.
func (e *Engine) Snapshot() []DrawCommand {
	return CompileFrame(e.frameInput())
}

func (e *Engine) frameInput() FrameInput {
	in := FrameInput{
		View:          e.view,
		Scene:         e.scene,
		SurfaceWidth:  e.surfaceW,
		SurfaceHeight: e.surfaceH,
		Measurer:      e.measurer,
	}
	for _, l := range LayerOrder {
		if !e.layers[l] {
			continue
		}
		if b, ok := e.layerBitmaps[l]; ok {
			in.Layers = append(in.Layers, LayerImage{Layer: l, Bitmap: b})
		}
	}
	if e.mode == ModeEraser && e.pointer != nil {
		p := *e.pointer
		in.EraserPreview = &p
		in.EraserRadius = e.eraseRadius()
	}
	return in
}

// Render compiles the current frame and returns it as JSON.
func (e *Engine) Render() string {
	result, err := DrawCommandsToJSON(e.Frame())
	if err != nil {
		e.logger.Error("encode frame", "error", err)
	}
	return result
}

// Dirty reports whether state changed since the last Frame or Render.
func (e *Engine) Dirty() bool {
	return e.dirty
}

// HitTest performs a hit test at the given device coordinates.
// Returns the ID of the topmost draggable entity, or empty string.
func (e *Engine) HitTest(deviceX, deviceY float64) HitTestResult {
	x, y, ok := e.toWorld(deviceX, deviceY)
	if !ok {
		return HitTestResult{}
	}
	res := HitTestResult{X: x, Y: y}
	if item := FindItemAt(e.scene, x, y, e.view.Scale, e.measurer); item != nil {
		res.ObjectID = item.ItemID()
	}
	return res
}

// Mode returns the active tool.
func (e *Engine) Mode() Mode { return e.mode }

// Color returns the active stroke colour.
func (e *Engine) Color() string { return e.color }

// Width returns the active stroke width in device pixels.
func (e *Engine) Width() float64 { return e.width }

// View returns a copy of the current view transform.
func (e *Engine) View() View { return e.view }

// Scene returns the scene model. Callers must not retain it across calls
// that mutate the engine.
func (e *Engine) Scene() *Scene { return e.scene }

// LayerVisible reports whether a layer is switched on.
func (e *Engine) LayerVisible(l Layer) bool { return e.layers[l] }

// Dragging reports whether a drag gesture holds an entity.
func (e *Engine) Dragging() bool { return e.drag != nil }

// Armed reports the pending armed icon glyph and vehicle, if any.
func (e *Engine) Armed() (icon string, vehicle *VehicleDescriptor) {
	return e.armedIcon, e.armedVehicle
}

// SurfaceSize returns the device surface size.
func (e *Engine) SurfaceSize() (float64, float64) { return e.surfaceW, e.surfaceH }

// Scale is shorthand for View().Scale.
func (e *Engine) Scale() float64 { return e.view.Scale }
