package models

// ListingsResponse is the envelope for /api/v1/listings. Properties holds
// either []Listing or []EnrichedListing and is never nil.
type ListingsResponse struct {
	Success    bool   `json:"success"`
	Properties any    `json:"properties"`
	Count      int    `json:"count"`
	ScrapedAt  string `json:"scrapedAt,omitempty"`
	Source     string `json:"source,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// GeocodeResponse is the envelope for /api/v1/geocode.
type GeocodeResponse struct {
	Success    bool             `json:"success"`
	Properties []map[string]any `json:"properties"`
	Error      string           `json:"error,omitempty"`
}

// Point is a latitude/longitude pair in API responses.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Marker is one map marker, possibly offset from its listing's coordinates.
type Marker struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Price     string  `json:"price"`
	Image     string  `json:"image,omitempty"`
	Link      string  `json:"link,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Fallback is true when the listing had no coordinates and was placed
	// at the default center.
	Fallback bool `json:"fallback"`

	// GroupSize is the number of listings sharing this marker's origin point.
	GroupSize int `json:"groupSize"`
}

// MarkersResponse is the envelope for /api/v1/markers.
type MarkersResponse struct {
	Success bool     `json:"success"`
	Center  Point    `json:"center"`
	Markers []Marker `json:"markers"`
	Error   string   `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	BrowserMode  string       `json:"browser_mode"`
	SessionStats SessionStats `json:"session_stats"`
	CachedTowns  int          `json:"cached_towns"`
	Version      string       `json:"version"`
}

// SessionStats reports browser session utilisation.
type SessionStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}

// ErrorResponse is written when a request is rejected before reaching its
// handler (authentication, rate limiting).
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}
