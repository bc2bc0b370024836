package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
	"golang.org/x/time/rate"
)

// maxSearchBody caps how much of a search response is read.
const maxSearchBody = 1 << 20

// Place is one match returned by a place search. Coordinates are kept as
// the API's decimal strings.
type Place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim queries an OpenStreetMap Nominatim-compatible /search endpoint.
type Nominatim struct {
	endpoint  string
	userAgent string
	email     string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewNominatim creates a search client from configuration. A positive
// RequestsPerSecond paces queries across all callers.
func NewNominatim(cfg config.GeocodeConfig) *Nominatim {
	n := &Nominatim{
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + "/search",
		userAgent: cfg.UserAgent,
		email:     cfg.Email,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		n.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return n
}

// Search returns at most one match for query. Transport failures and
// non-2xx responses are GEOCODE_QUERY_FAILED errors; an empty result is not
// an error.
func (n *Nominatim) Search(ctx context.Context, query string) ([]Place, error) {
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeGeocodeQuery, "rate limiter wait aborted", err)
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if n.email != "" {
		params.Set("email", n.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeGeocodeQuery, "failed to build search request", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeGeocodeQuery, "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxSearchBody))
		return nil, models.NewScrapeError(
			models.ErrCodeGeocodeQuery,
			fmt.Sprintf("search responded with status %d", resp.StatusCode),
			nil,
		)
	}

	var places []Place
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSearchBody)).Decode(&places); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeGeocodeQuery, "failed to decode search response", err)
	}
	return places, nil
}
