package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// SessionReporter exposes browser session utilisation.
type SessionReporter interface {
	Mode() string
	Stats() models.SessionStats
}

// CacheSizer reports how many towns are cached.
type CacheSizer interface {
	Len() int
}

// Health returns a handler for GET /api/v1/health.
//
// Degrades status when every browser session slot is busy.
func Health(sr SessionReporter, cs CacheSizer, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sr.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions >= stats.MaxSessions {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserMode:  sr.Mode(),
			SessionStats: stats,
			CachedTowns:  cs.Len(),
			Version:      Version,
		})
	}
}
