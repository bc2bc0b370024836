package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	r := newEngine(CORS())

	w := do(r, http.MethodGet, "/ping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}

	w = do(r, http.MethodOptions, "/api/v1/listings", map[string]string{"Origin": "https://example.test"})
	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("OPTIONS body = %q, want empty", w.Body.String())
	}
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"secret"}))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"x-api-key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"lowercase bearer", map[string]string{"Authorization": "bearer secret"}, http.StatusOK},
		{"empty bearer", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
		{"basic scheme", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, http.MethodGet, "/ping", tt.headers); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuth_RejectionEnvelope(t *testing.T) {
	r := newEngine(Auth([]string{"secret"}))
	w := do(r, http.MethodGet, "/ping", map[string]string{"X-API-Key": "nope"})

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	if resp.Success || resp.Code != models.ErrCodeUnauthorized || resp.Error != "invalid API key" {
		t.Errorf("body = %+v", resp)
	}
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	for _, keys := range [][]string{nil, {"", "  "}} {
		r := newEngine(Auth(keys))
		if w := do(r, http.MethodGet, "/ping", nil); w.Code != http.StatusOK {
			t.Errorf("Auth(%q) status = %d, want 200", keys, w.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	for i := range 2 {
		if w := do(r, http.MethodGet, "/ping", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
	if w := do(r, http.MethodGet, "/ping", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newEngine(RateLimit(config.RateLimitConfig{}))
	for range 10 {
		if w := do(r, http.MethodGet, "/ping", nil); w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	}
}

func TestClientLimiters_SweepsIdleEntries(t *testing.T) {
	l := newClientLimiters(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()
	l.now = func() time.Time { return now }

	l.get("a")
	l.get("b")

	now = now.Add(2 * time.Hour)
	l.get("c")

	if n := l.size(); n != 1 {
		t.Errorf("size() = %d, want 1 after sweeping idle entries", n)
	}
}
