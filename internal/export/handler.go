package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lagekarte/lagekarte/backend-go/internal/colorutil"
	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
	"github.com/lagekarte/lagekarte/backend-go/internal/raster"
	"github.com/lagekarte/lagekarte/backend-go/internal/session"
)

const maxPixelRatio = 4

// DefaultMaxPixels bounds the pixel count of one PNG export.
const DefaultMaxPixels = 32 << 20

type Handler struct {
	hub       *session.Hub
	raster    *raster.Rasterizer
	maxPixels float64
}

// NewHandler creates an export handler. maxPixels bounds the output image;
// zero or less selects DefaultMaxPixels.
func NewHandler(hub *session.Hub, r *raster.Rasterizer, maxPixels int) *Handler {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Handler{hub: hub, raster: r, maxPixels: float64(maxPixels)}
}

// FramePNG renders the session's current frame on a white background. The
// optional pixelRatio query (1 to 4) scales the output; name sets the
// download file name. An output above the pixel budget is rejected with 413
// before anything is drawn.
func (h *Handler) FramePNG(w http.ResponseWriter, r *http.Request) {
	ratio, err := parsePixelRatio(r.URL.Query().Get("pixelRatio"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmds, width, height, ok := h.frame(w, r)
	if !ok {
		return
	}
	if pixels := math.Round(width*ratio) * math.Round(height*ratio); pixels > h.maxPixels {
		http.Error(w, fmt.Sprintf("export too large: %.0f pixels exceeds %.0f", pixels, h.maxPixels), http.StatusRequestEntityTooLarge)
		return
	}

	var buf bytes.Buffer
	err = h.raster.EncodePNG(&buf, cmds, raster.Options{
		Width:      int(math.Round(width)),
		Height:     int(math.Round(height)),
		PixelRatio: ratio,
		Background: colorutil.White,
	})
	if err != nil {
		slog.Error("rasterize frame", "error", err, "session", mux.Vars(r)["sessionId"])
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	if name := r.URL.Query().Get("name"); name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, sanitizeName(name)))
	}
	w.Write(buf.Bytes())
}

// FrameJSON returns the session's current draw commands.
func (h *Handler) FrameJSON(w http.ResponseWriter, r *http.Request) {
	cmds, _, _, ok := h.frame(w, r)
	if !ok {
		return
	}

	body, err := engine.DrawCommandsToJSON(cmds)
	if err != nil {
		slog.Error("encode frame", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(body))
}

func (h *Handler) frame(w http.ResponseWriter, r *http.Request) ([]engine.DrawCommand, float64, float64, bool) {
	s, err := h.hub.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, 0, 0, false
	}

	cmds, err := s.Frame(r.Context())
	if err == nil {
		var width, height float64
		width, height, err = s.SurfaceSize(r.Context())
		if err == nil {
			return cmds, width, height, true
		}
	}

	status := http.StatusInternalServerError
	if errors.Is(err, session.ErrSessionClosed) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
	return nil, 0, 0, false
}

func parsePixelRatio(v string) (float64, error) {
	if v == "" {
		return 1, nil
	}
	ratio, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(ratio) || ratio < 1 || ratio > maxPixelRatio {
		return 0, fmt.Errorf("invalid pixelRatio: must be between 1 and %d", maxPixelRatio)
	}
	return ratio, nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
