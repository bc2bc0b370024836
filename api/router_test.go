package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
	"github.com/use-agent/listmap/scraper"
)

type stubScraper struct{}

func (stubScraper) Scrape(context.Context, string) (*scraper.Result, error) {
	return &scraper.Result{Listings: []models.Listing{}, FinalURL: "https://h.test/"}, nil
}
func (stubScraper) Mode() string { return "remote" }
func (stubScraper) Stats() models.SessionStats { return models.SessionStats{MaxSessions: 1} }

type stubGeocoder struct{}

func (stubGeocoder) ResolveBatch(context.Context, []string) map[string]models.GeoCoordinate {
	return map[string]models.GeoCoordinate{}
}
func (stubGeocoder) Len() int { return 0 }

func testRouter(auth bool) *gin.Engine {
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Scraper:   config.ScraperConfig{DefaultURL: "https://h.test/"},
		Map:       config.MapConfig{CenterLat: 46.1512, CenterLng: 14.9955, FanoutMeters: 40},
		Auth:      config.AuthConfig{Enabled: auth, APIKeys: []string{"k"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
	return NewRouter(Deps{
		Scraper:   stubScraper{},
		Geocoder:  stubGeocoder{},
		Cache:     stubGeocoder{},
		StartTime: time.Now(),
	}, cfg)
}

func request(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	r := testRouter(false)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/listings", "", http.StatusOK},
		{http.MethodPost, "/api/v1/listings", "", http.StatusOK},
		{http.MethodPost, "/api/v1/geocode", `{"properties":[]}`, http.StatusOK},
		{http.MethodPost, "/api/v1/markers", `{"properties":[]}`, http.StatusOK},
		{http.MethodOptions, "/api/v1/listings", "", http.StatusOK},
		{http.MethodOptions, "/anything/else", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := request(r, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
			}
		})
	}
}

func TestRouter_IndexPage(t *testing.T) {
	w := request(testRouter(false), http.MethodGet, "/", "")
	if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "/api/v1/markers") {
		t.Error("map page should call the markers endpoint")
	}
}

func TestRouter_AuthProtectsAPIButNotHealth(t *testing.T) {
	r := testRouter(true)

	if w := request(r, http.MethodGet, "/api/v1/listings", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("listings without key: status = %d, want 401", w.Code)
	}
	if w := request(r, http.MethodGet, "/api/v1/health", ""); w.Code != http.StatusOK {
		t.Errorf("health without key: status = %d, want 200", w.Code)
	}
	if w := request(r, http.MethodOptions, "/api/v1/listings", ""); w.Code != http.StatusOK {
		t.Errorf("preflight without key: status = %d, want 200", w.Code)
	}
}
