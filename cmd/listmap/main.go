package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/listmap/api"
	"github.com/use-agent/listmap/browser"
	"github.com/use-agent/listmap/cache"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/geocode"
	"github.com/use-agent/listmap/models"
	"github.com/use-agent/listmap/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	// A missing .env is normal in containers; real env vars still apply.
	envErr := godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", envErr)
	}
	slog.Info("listmap starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browserMode", cfg.Browser.Mode,
		"maxSessions", cfg.Browser.MaxSessions,
	)

	// ── 3. Browser provider + scraper ───────────────────────────────
	provider, err := browser.NewProvider(cfg.Browser)
	if err != nil {
		slog.Error("failed to configure browser provider", "error", err)
		os.Exit(1)
	}
	sc, err := scraper.NewScraper(provider, cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}

	// ── 4. Geocoder with shared town cache ──────────────────────────
	towns := cache.New[models.GeoCoordinate]()
	geo := geocode.New(geocode.NewNominatim(cfg.Geocode), towns, geocode.Options{
		CountrySuffix: cfg.Geocode.CountrySuffix,
		ChunkSize:     cfg.Geocode.ChunkSize,
	})

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(api.Deps{
		Scraper:   sc,
		Geocoder:  geo,
		Cache:     towns,
		StartTime: time.Now(),
	}, cfg)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete. Each request owns and
	// closes its own browser session, so nothing else needs tearing down.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("listmap stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
