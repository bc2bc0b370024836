package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Browser modes accepted by LISTMAP_BROWSER_MODE.
const (
	BrowserModeLocal  = "local"
	BrowserModeRemote = "remote"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Geocode   GeocodeConfig
	Map       MapConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how a browser session is provisioned.
type BrowserConfig struct {
	// Mode is "local" (launch an executable) or "remote" (attach over WebSocket).
	// default: "remote" when WSURL is set, otherwise "local".
	Mode string

	// Bin overrides the Chromium binary path in local mode.
	Bin string

	// WSURL is the remote browser control endpoint in remote mode.
	WSURL string

	// Headless controls whether a locally launched browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// MaxSessions bounds concurrently open browser sessions.
	MaxSessions int // default: 2

	// ConnectTimeout bounds the remote WebSocket handshake.
	ConnectTimeout time.Duration // default: 10s
}

// ScraperConfig controls listing extraction.
type ScraperConfig struct {
	// DefaultURL is scraped when a request names no target.
	DefaultURL string

	// RequireURL rejects requests without a target instead of using DefaultURL.
	RequireURL bool // default: false

	// RequestTimeout is the hard deadline on a whole listings request,
	// scrape and geocoding together.
	RequestTimeout time.Duration // default: 60s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// ContentTimeout is the max time to wait for ContentSelector to appear.
	ContentTimeout time.Duration // default: 15s

	// ContentSelector marks a rendered listing card.
	ContentSelector string // default: ".property-box"

	// BlockedHosts are URL substrings whose requests are aborted.
	BlockedHosts []string

	// BlockedResourceTypes lists resource types to abort.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	UserAgent      string
	AcceptLanguage string
	Locale         string
	Timezone       string
	ViewportWidth  int // default: 1366
	ViewportHeight int // default: 768
}

// GeocodeConfig controls the place-search client.
type GeocodeConfig struct {
	// BaseURL is the Nominatim-compatible search API root.
	BaseURL string

	// UserAgent identifies this application to the search API.
	UserAgent string

	// Email is an optional contact address sent with every query.
	Email string

	// CountrySuffix is appended to a town for the second query attempt.
	CountrySuffix string // default: "Slovenia"

	// Timeout bounds a single search query.
	Timeout time.Duration // default: 10s

	// RequestsPerSecond paces outgoing queries; 0 disables pacing.
	RequestsPerSecond float64 // default: 0

	// ChunkSize is the number of concurrent lookups per batch chunk.
	ChunkSize int // default: 5
}

// MapConfig controls marker layout for the map page.
type MapConfig struct {
	CenterLat    float64 // default: 46.1512
	CenterLng    float64 // default: 14.9955
	FanoutMeters float64 // default: 40
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

const (
	defaultTargetURL = "https://www.nepremicnine.net/oglasi-prodaja/gorenjska/hisa/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultGeocodeUA = "listmap/1.0 (+https://github.com/use-agent/listmap)"
)

var defaultBlockedHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"googlesyndication.com",
	"facebook.net",
	"connect.facebook.net",
	"hotjar.com",
	"gemius.pl",
	"cookiebot.com",
	"adnxs.com",
	"criteo.",
	"scorecardresearch.com",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	wsURL := os.Getenv("LISTMAP_BROWSER_WS_URL")
	mode := BrowserModeLocal
	if wsURL != "" {
		mode = BrowserModeRemote
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("LISTMAP_HOST", "0.0.0.0"),
			Port: envIntOr("LISTMAP_PORT", 8080),
			Mode: envOr("LISTMAP_MODE", "release"),
		},
		Browser: BrowserConfig{
			Mode:           strings.ToLower(envOr("LISTMAP_BROWSER_MODE", mode)),
			Bin:            os.Getenv("LISTMAP_BROWSER_BIN"),
			WSURL:          wsURL,
			Headless:       envBoolOr("LISTMAP_HEADLESS", true),
			NoSandbox:      envBoolOr("LISTMAP_NO_SANDBOX", false),
			MaxSessions:    envIntOr("LISTMAP_MAX_SESSIONS", 2),
			ConnectTimeout: envDurationOr("LISTMAP_CONNECT_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			DefaultURL:           envOr("LISTMAP_DEFAULT_URL", defaultTargetURL),
			RequireURL:           envBoolOr("LISTMAP_REQUIRE_URL", false),
			RequestTimeout:       envDurationOr("LISTMAP_REQUEST_TIMEOUT", 60*time.Second),
			NavigationTimeout:    envDurationOr("LISTMAP_NAV_TIMEOUT", 30*time.Second),
			ContentTimeout:       envDurationOr("LISTMAP_CONTENT_TIMEOUT", 15*time.Second),
			ContentSelector:      envOr("LISTMAP_CONTENT_SELECTOR", ".property-box"),
			BlockedHosts:         envSliceOr("LISTMAP_BLOCKED_HOSTS", defaultBlockedHosts),
			BlockedResourceTypes: envSliceOr("LISTMAP_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			UserAgent:            envOr("LISTMAP_USER_AGENT", defaultUserAgent),
			AcceptLanguage:       envOr("LISTMAP_ACCEPT_LANGUAGE", "sl-SI,sl;q=0.9,en-US;q=0.8,en;q=0.7"),
			Locale:               envOr("LISTMAP_LOCALE", "sl-SI"),
			Timezone:             envOr("LISTMAP_TIMEZONE", "Europe/Ljubljana"),
			ViewportWidth:        envIntOr("LISTMAP_VIEWPORT_WIDTH", 1366),
			ViewportHeight:       envIntOr("LISTMAP_VIEWPORT_HEIGHT", 768),
		},
		Geocode: GeocodeConfig{
			BaseURL:           envOr("LISTMAP_GEOCODE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:         envOr("LISTMAP_GEOCODE_USER_AGENT", defaultGeocodeUA),
			Email:             os.Getenv("LISTMAP_GEOCODE_EMAIL"),
			CountrySuffix:     envOr("LISTMAP_GEOCODE_COUNTRY", "Slovenia"),
			Timeout:           envDurationOr("LISTMAP_GEOCODE_TIMEOUT", 10*time.Second),
			RequestsPerSecond: envFloatOr("LISTMAP_GEOCODE_RPS", 0),
			ChunkSize:         envIntOr("LISTMAP_GEOCODE_CHUNK", 5),
		},
		Map: MapConfig{
			CenterLat:    envFloatOr("LISTMAP_MAP_CENTER_LAT", 46.1512),
			CenterLng:    envFloatOr("LISTMAP_MAP_CENTER_LNG", 14.9955),
			FanoutMeters: envFloatOr("LISTMAP_MAP_FANOUT_METERS", 40),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("LISTMAP_AUTH_ENABLED", false),
			APIKeys: envSliceOr("LISTMAP_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("LISTMAP_RATE_RPS", 2.0),
			Burst:             envIntOr("LISTMAP_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("LISTMAP_LOG_LEVEL", "info"),
			Format: envOr("LISTMAP_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
