package engine

import "errors"

var (
	ErrUnknownMode  = errors.New("unknown tool mode")
	ErrUnknownLayer = errors.New("unknown layer")
	ErrNoLoader     = errors.New("no bitmap loader configured")

	errEmptyBitmap = errors.New("loader returned no bitmap")
)
