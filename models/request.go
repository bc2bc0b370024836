package models

import "encoding/json"

// ListingsRequest carries the parameters for /api/v1/listings. It binds
// from the query string on GET and from a JSON body on POST.
type ListingsRequest struct {
	// URL is the listings page to scrape. Optional when a default is configured.
	URL string `form:"url" json:"url" binding:"omitempty,url"`

	// Geocode enriches the listings with coordinates before responding.
	// Default: true.
	Geocode *bool `form:"geocode" json:"geocode,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ListingsRequest) Defaults(defaultURL string) {
	if r.URL == "" {
		r.URL = defaultURL
	}
	if r.Geocode == nil {
		t := true
		r.Geocode = &t
	}
}

// GeocodeRequest is the payload for POST /api/v1/geocode. Properties is kept
// raw so a non-array value can be rejected explicitly.
type GeocodeRequest struct {
	Properties json.RawMessage `json:"properties"`
}

// MarkersRequest is the payload for POST /api/v1/markers.
type MarkersRequest struct {
	Properties []EnrichedListing `json:"properties"`
}
