package models

// Sentinel values used in place of a missing listing field.
const (
	NoTitle     = "No title"
	NoTown      = "No town"
	NoPrice     = "No price"
	NoLink      = "No link"
	NoImage     = "No image"
	NoType      = "No type"
	NoDetailURL = "No detail URL"
)

// Listing is one scraped listing card. Every field holds either a real
// value or its sentinel, never an empty string.
type Listing struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Town         string `json:"town"`
	Price        string `json:"price"`
	Link         string `json:"link"`
	Image        string `json:"image"`
	PropertyType string `json:"propertyType"`
	DetailURL    string `json:"detailUrl"`
}

// GeoCoordinate is the result of resolving a town. Nil fields mean the town
// could not be resolved.
type GeoCoordinate struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewGeoCoordinate returns a resolved coordinate.
func NewGeoCoordinate(lat, lon float64) GeoCoordinate {
	return GeoCoordinate{Latitude: &lat, Longitude: &lon}
}

// Resolved reports whether both latitude and longitude are present.
func (g GeoCoordinate) Resolved() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// EnrichedListing is a Listing with its town's coordinates merged in.
type EnrichedListing struct {
	Listing
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
