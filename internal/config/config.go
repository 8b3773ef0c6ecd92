package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AssetDir       string        `envconfig:"ASSET_DIR" default:"./assets"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`

	// Background layers, as sources relative to AssetDir.
	BaseLayer     string `envconfig:"BASE_LAYER" default:"img/overview_ohne_pda.png"`
	PDALayer      string `envconfig:"PDA_LAYER" default:"img/overview_mit_pda.png"`
	HydrantLayer  string `envconfig:"HYDRANT_LAYER" default:"img/overview_mit_hydrant.png"`
	BRSLayer      string `envconfig:"BRS_LAYER" default:"img/overview_mit_bsr.png"`
	SurfaceWidth  int    `envconfig:"SURFACE_WIDTH" default:"1280"`
	SurfaceHeight int    `envconfig:"SURFACE_HEIGHT" default:"800"`

	// Upper bound for each side of a client-reported surface, and for the
	// pixel count of a PNG export after the pixel ratio is applied.
	MaxSurfaceSize  int `envconfig:"MAX_SURFACE_SIZE" default:"8192"`
	MaxExportPixels int `envconfig:"MAX_EXPORT_PIXELS" default:"33554432"`

	// Zero leaves zoom unbounded on that side.
	ZoomMin float64 `envconfig:"ZOOM_MIN" default:"0"`
	ZoomMax float64 `envconfig:"ZOOM_MAX" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Layers maps engine layer names to their configured sources.
func (c *Config) Layers() map[string]string {
	return map[string]string{
		"base":     c.BaseLayer,
		"pda":      c.PDALayer,
		"hydrants": c.HydrantLayer,
		"brs":      c.BRSLayer,
	}
}

// Origins splits AllowedOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
