package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/use-agent/listmap/assemble"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
	"github.com/use-agent/listmap/scraper"
)

// ListingScraper renders a listings page and extracts its cards.
type ListingScraper interface {
	Scrape(ctx context.Context, targetURL string) (*scraper.Result, error)
}

// TownResolver resolves a batch of towns to coordinates.
type TownResolver interface {
	ResolveBatch(ctx context.Context, towns []string) map[string]models.GeoCoordinate
}

// Listings returns a handler for GET|POST /api/v1/listings.
//
// Orchestration flow:
//  1. Bind url/geocode from the query string, or a JSON body on POST.
//  2. Scraper.Scrape → listings                (fatal errors → 200, success:false)
//  3. Geocoder.ResolveBatch + assemble.Listings (only when geocode=true)
//  4. Respond with count, scrapedAt and source.
//
// cfg.RequestTimeout bounds steps 2 and 3 together. Towns still unresolved
// when it expires are returned with null coordinates.
func Listings(sc ListingScraper, geo TownResolver, cfg config.ScraperConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		req, err := bindListingsRequest(c)
		if err != nil {
			badListingsRequest(c, err.Error(), start)
			return
		}
		if !cfg.RequireURL {
			req.Defaults(cfg.DefaultURL)
		} else {
			req.Defaults("")
		}
		if req.URL == "" {
			badListingsRequest(c, "url is required", start)
			return
		}
		if msg := validateTargetURL(req.URL); msg != "" {
			badListingsRequest(c, msg, start)
			return
		}

		ctx := c.Request.Context()
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		result, err := sc.Scrape(ctx, req.URL)
		if err != nil {
			se := models.AsScrapeError(err)
			slog.Warn("listings scrape failed",
				"url", req.URL,
				"code", se.Code,
				"error", err,
			)
			c.JSON(http.StatusOK, models.ListingsResponse{
				Success:    false,
				Properties: []models.Listing{},
				Error:      "failed to scrape listings",
				Message:    se.Message,
				Code:       se.Code,
				DurationMs: time.Since(start).Milliseconds(),
			})
			return
		}

		// ── 3. Geocode ──────────────────────────────────────────────
		var properties any = result.Listings
		if *req.Geocode {
			coords := geo.ResolveBatch(ctx, assemble.Towns(result.Listings))
			properties = assemble.Listings(result.Listings, coords)
		}

		// ── 4. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, models.ListingsResponse{
			Success:    true,
			Properties: properties,
			Count:      len(result.Listings),
			ScrapedAt:  time.Now().UTC().Format(time.RFC3339),
			Source:     result.FinalURL,
			DurationMs: time.Since(start).Milliseconds(),
		})
	}
}

// bindListingsRequest reads url/geocode from the query string and, on a POST
// with a JSON body, lets the body override them.
func bindListingsRequest(c *gin.Context) (models.ListingsRequest, error) {
	var req models.ListingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return req, err
	}
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 &&
		c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, err
		}
	}
	return req, nil
}

// validateTargetURL returns a message describing why raw cannot be scraped,
// or "" if it can.
func validateTargetURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "url is not a valid URL"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "url must use http or https"
	}
	if u.Host == "" {
		return "url must include a host"
	}
	return ""
}

func badListingsRequest(c *gin.Context, msg string, start time.Time) {
	c.JSON(http.StatusBadRequest, models.ListingsResponse{
		Success:    false,
		Properties: []models.Listing{},
		Error:      "invalid request",
		Message:    msg,
		Code:       models.ErrCodeInvalidInput,
		DurationMs: time.Since(start).Milliseconds(),
	})
}
