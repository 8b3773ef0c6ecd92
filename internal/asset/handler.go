package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
	"github.com/lagekarte/lagekarte/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

// uploadDir is where uploaded vehicle symbols are stored, relative to the
// asset root.
const uploadDir = "uploads"

var (
	ErrNotFound    = errors.New("asset not found")
	ErrInvalidPath = errors.New("invalid asset path")
)

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Store serves bitmaps from a directory. It implements engine.BitmapLoader
// for background layers and image-backed vehicles.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*engine.Bitmap
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	if err := os.MkdirAll(filepath.Join(dir, uploadDir), 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Store{dir: dir, cache: make(map[string]*engine.Bitmap)}
}

// Clean normalises a source identifier as sent by the browser ("img/x.png",
// "/assets/img/x.png") to a slash path relative to the asset root.
func Clean(source string) (string, error) {
	s := strings.TrimSpace(source)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, "assets/")
	s = path.Clean("/" + s)[1:]
	if s == "" || s == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, source)
	}
	return s, nil
}

// Load decodes the bitmap for source. Decoded bitmaps are cached for the life
// of the store.
func (s *Store) Load(ctx context.Context, source string) (*engine.Bitmap, error) {
	rel, err := Clean(source)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	b, ok := s.cache[rel]
	s.mu.RUnlock()
	if ok {
		return b, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", rel, err)
	}

	b = engine.NewBitmap(source, img)
	s.mu.Lock()
	s.cache[rel] = b
	s.mu.Unlock()
	return b, nil
}

// Upload handles POST /api/assets (multipart form with "file" field). The
// image is stored as PNG and can be used as a vehicle source.
func (s *Store) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large (max 10MB)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image: "+err.Error())
		return
	}

	assetID := typeid.New(typeid.PrefixAsset)
	source := path.Join(uploadDir, assetID+".png")
	filePath := filepath.Join(s.dir, filepath.FromSlash(source))

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create asset file", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		writeError(w, http.StatusInternalServerError, "failed to encode image")
		return
	}

	bounds := img.Bounds()
	slog.Info("asset uploaded", "id", assetID, "width", bounds.Dx(), "height", bounds.Dy())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(UploadResponse{
		ID:     assetID,
		Source: source,
		URL:    "/assets/" + source,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Name:   header.Filename,
	})
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (s *Store) Serve() http.Handler {
	fs := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
