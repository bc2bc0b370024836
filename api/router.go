package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/api/handler"
	"github.com/use-agent/listmap/api/middleware"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/markers"
	"github.com/use-agent/listmap/models"
)

//go:embed static/index.html
var indexHTML []byte

// Scraper is what the router needs from the listing scraper.
type Scraper interface {
	handler.ListingScraper
	handler.SessionReporter
}

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Scraper   Scraper
	Geocoder  handler.TownResolver
	Cache     handler.CacheSizer
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Health and the map page stay outside auth so probes and browsers always work.
func NewRouter(d Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	// Preflight for any path; CORS answers it before this handler runs.
	r.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Map page.
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(d.Scraper, d.Cache, d.StartTime))

	// Protected group: auth and rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Listings
	listings := handler.Listings(d.Scraper, d.Geocoder, cfg.Scraper)
	protected.GET("/listings", listings)
	protected.POST("/listings", listings)

	// Geocode
	protected.POST("/geocode", handler.Geocode(d.Geocoder))

	// Markers
	protected.POST("/markers", handler.Markers(markers.Options{
		Center:       models.Point{Latitude: cfg.Map.CenterLat, Longitude: cfg.Map.CenterLng},
		RadiusMeters: cfg.Map.FanoutMeters,
	}))

	return r
}
