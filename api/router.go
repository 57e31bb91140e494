package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pokedex/api/handler"
	"github.com/use-agent/pokedex/api/middleware"
	"github.com/use-agent/pokedex/config"
	"github.com/use-agent/pokedex/metrics"
)

// Deps are the services the routes are served from.
type Deps struct {
	Pokedex handler.Pokedex
	Runner  handler.Runner
	Stats   handler.StatsProvider
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger (if enabled) → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Index, health and metrics are outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Log.Access {
		r.Use(gin.Logger())
	}
	r.Use(middleware.CORS())

	r.GET("/", handler.Index())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(deps.Stats, cfg.Browser.Driver, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.Tokens))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/pokemon", handler.ListPokemon(deps.Pokedex))
	protected.GET("/pokemon/:name", handler.GetPokemon(deps.Pokedex))
	protected.POST("/extract", handler.Extract(deps.Runner))

	return r
}
