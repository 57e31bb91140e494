package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pokedex/models"
)

// Version is reported by the index and health endpoints.
const Version = "1.0.0"

// StatsProvider reports session lifecycle counters.
type StatsProvider interface {
	Stats() models.SessionStats
}

// Health returns a handler for GET /v1/health.
//
// Reports session counters and degrades status when more than 80% of the
// session cap is in use.
func Health(sp StatsProvider, driver string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sp.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.Active > int(float64(stats.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			SessionStats: stats,
			Driver:       driver,
			Version:      Version,
		})
	}
}

// Index returns a handler for GET /.
func Index() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "pokedex",
			"version": Version,
			"endpoints": []string{
				"GET /v1/pokemon",
				"GET /v1/pokemon/:name",
				"POST /v1/extract",
				"GET /v1/health",
				"GET /metrics",
			},
		})
	}
}
