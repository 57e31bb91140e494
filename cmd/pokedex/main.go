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

	"github.com/use-agent/pokedex/api"
	"github.com/use-agent/pokedex/config"
	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/navigation"
	"github.com/use-agent/pokedex/pipeline"
	"github.com/use-agent/pokedex/pokedex"
	"github.com/use-agent/pokedex/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pokedex starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"driver", cfg.Browser.Driver,
		"maxSessions", cfg.Browser.MaxSessions,
		"baseURL", cfg.Pokedex.BaseURL,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.Tokens) == 0 {
		slog.Warn("auth enabled but no tokens configured, API is open")
	}

	// ── 3. Session manager (browsers launch per request) ────────────
	sessions, err := session.New(cfg.Browser)
	if err != nil {
		slog.Error("failed to initialise session manager", "error", err)
		os.Exit(1)
	}

	// ── 4. Pipeline and use cases ───────────────────────────────────
	p := pipeline.New(
		sessions,
		navigation.NewController(cfg.Pipeline.NavigationTimeout),
		extract.NewEngine(),
		cfg.Pipeline.RequestTimeout,
	)
	dex := pokedex.NewService(p, cfg.Pokedex.BaseURL)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(api.Deps{
		Pokedex: dex,
		Runner:  p,
		Stats:   sessions,
	}, cfg, startTime)

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

	// In-flight requests release their own browsers; give them the
	// request bound plus the release bound to finish.
	drain := cfg.Pipeline.RequestTimeout + cfg.Browser.ReleaseTimeout
	if drain <= 0 {
		drain = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	stats := sessions.Stats()
	slog.Info("pokedex stopped",
		"launched", stats.Launched,
		"released", stats.Released,
		"active", stats.Active,
	)
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
