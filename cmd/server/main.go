package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/lagekarte/lagekarte/backend-go/internal/asset"
	"github.com/lagekarte/lagekarte/backend-go/internal/auth"
	"github.com/lagekarte/lagekarte/backend-go/internal/config"
	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
	"github.com/lagekarte/lagekarte/backend-go/internal/export"
	mw "github.com/lagekarte/lagekarte/backend-go/internal/middleware"
	"github.com/lagekarte/lagekarte/backend-go/internal/raster"
	"github.com/lagekarte/lagekarte/backend-go/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := asset.NewStore(cfg.AssetDir)
	layers := loadLayers(ctx, store, cfg.Layers())

	newEngine := func() *engine.Engine {
		e := engine.NewEngine(
			engine.WithLoader(store),
			engine.WithMaxSurface(float64(cfg.MaxSurfaceSize)),
			engine.WithSurface(float64(cfg.SurfaceWidth), float64(cfg.SurfaceHeight)),
			engine.WithZoomLimits(cfg.ZoomMin, cfg.ZoomMax),
		)
		for name, b := range layers {
			e.SetLayerBitmap(name, b)
		}
		return e
	}

	hub, err := session.NewHub(newEngine, cfg.SessionTTL)
	if err != nil {
		slog.Error("create session hub", "error", err)
		os.Exit(1)
	}
	go hub.Run(ctx)

	rz, err := raster.New()
	if err != nil {
		slog.Error("create rasterizer", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret, auth.DefaultTokenTTL)
	authHandler := auth.NewHandler(authService)
	sessionHandler := session.NewHandler(hub, authService, mw.OriginHosts(cfg.Origins()))
	exportHandler := export.NewHandler(hub, rz, cfg.MaxExportPixels)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Assets (public)
	r.HandleFunc("/api/assets", store.Upload).Methods("POST")
	r.PathPrefix("/assets/").Handler(store.Serve()).Methods("GET")

	// Sessions
	r.HandleFunc("/api/sessions", sessionHandler.Create).Methods("POST")

	protected := authService.AuthMiddleware
	r.Handle("/api/sessions/{sessionId}", protected(http.HandlerFunc(sessionHandler.Delete))).Methods("DELETE")
	r.Handle("/api/sessions/{sessionId}/token", protected(http.HandlerFunc(authHandler.Refresh))).Methods("POST")
	r.Handle("/api/sessions/{sessionId}/frame", protected(http.HandlerFunc(exportHandler.FrameJSON))).Methods("GET")
	r.Handle("/api/sessions/{sessionId}/frame.png", protected(http.HandlerFunc(exportHandler.FramePNG))).Methods("GET")

	// WebSocket endpoint, token in the query string
	r.HandleFunc("/ws/sessions/{sessionId}", sessionHandler.Connect)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		cancel()
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "assets", cfg.AssetDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// loadLayers decodes the configured background layers once; every session
// shares the bitmaps. A missing layer is logged and left undrawn.
func loadLayers(ctx context.Context, store *asset.Store, sources map[string]string) map[string]*engine.Bitmap {
	out := make(map[string]*engine.Bitmap, len(sources))
	for name, source := range sources {
		if source == "" {
			continue
		}
		b, err := store.Load(ctx, source)
		if err != nil {
			slog.Warn("background layer unavailable", "layer", name, "source", source, "error", err)
			continue
		}
		out[name] = b
	}
	return out
}
