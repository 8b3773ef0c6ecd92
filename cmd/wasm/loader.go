//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
)

// imageLoader resolves sources through an HTMLImageElement. The canvas host
// draws images by source, so the bitmap carries only the natural size.
type imageLoader struct{}

type imageResult struct {
	width, height int
	err           error
}

func (imageLoader) Load(ctx context.Context, source string) (*engine.Bitmap, error) {
	done := make(chan imageResult, 1)
	img := js.Global().Get("Image").New()

	onload := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		select {
		case done <- imageResult{width: img.Get("naturalWidth").Int(), height: img.Get("naturalHeight").Int()}:
		default:
		}
		return nil
	})
	defer onload.Release()

	onerror := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		select {
		case done <- imageResult{err: fmt.Errorf("load image %q", source)}:
		default:
		}
		return nil
	})
	defer onerror.Release()

	img.Set("onload", onload)
	img.Set("onerror", onerror)
	img.Set("src", source)

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &engine.Bitmap{Source: source, Width: r.width, Height: r.height}, nil
	case <-ctx.Done():
		img.Set("src", "")
		return nil, ctx.Err()
	}
}
