package engine

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/lagekarte/lagekarte/backend-go/internal/queue"
)

// Bitmap is a decoded raster identified by its source.
type Bitmap struct {
	Source string
	Width  int
	Height int
	Image  image.Image
}

// NewBitmap wraps a decoded image.
func NewBitmap(source string, img image.Image) *Bitmap {
	b := img.Bounds()
	return &Bitmap{Source: source, Width: b.Dx(), Height: b.Dy(), Image: img}
}

// BitmapLoader resolves a source identifier to a decoded bitmap. Load may
// block and is always called off the engine's thread.
type BitmapLoader interface {
	Load(ctx context.Context, source string) (*Bitmap, error)
}

// LoaderFunc adapts a function to BitmapLoader.
type LoaderFunc func(ctx context.Context, source string) (*Bitmap, error)

func (f LoaderFunc) Load(ctx context.Context, source string) (*Bitmap, error) {
	return f(ctx, source)
}

// Vehicle box size is the bitmap size divided by these.
const (
	armedVehicleDivisor   = 2.0
	droppedVehicleDivisor = 40.0
)

// placement is a vehicle waiting for its bitmap.
type placement struct {
	desc       VehicleDescriptor
	x, y       float64
	divisor    float64
	generation uint64
}

type loadResult struct {
	placement
	bitmap *Bitmap
	err    error
}

// loadQueue runs bitmap loads on goroutines and collects the results in
// completion order. The engine drains it from its own thread with drain.
type loadQueue struct {
	loader BitmapLoader
	done   *queue.Queue[loadResult]
	ready  chan struct{}

	pending atomic.Int64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func newLoadQueue(loader BitmapLoader) *loadQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &loadQueue{
		loader: loader,
		done:   queue.New[loadResult](),
		ready:  make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *loadQueue) start(p placement) {
	q.pending.Add(1)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		bmp, err := q.loader.Load(q.ctx, p.desc.Source)
		q.done.Push(loadResult{placement: p, bitmap: bmp, err: err})
		q.pending.Add(-1)
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}()
}

func (q *loadQueue) drain() []loadResult {
	return q.done.GetAndEmpty()
}

func (q *loadQueue) close() {
	q.cancel()
	q.wg.Wait()
}
