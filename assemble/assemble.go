// Package assemble merges resolved town coordinates back onto listings.
package assemble

import (
	"maps"
	"strings"

	"github.com/use-agent/listmap/models"
)

// Listings returns one EnrichedListing per input listing, in order, with the
// coordinates of its trimmed town. Towns missing from coords get nulls.
// The input slice is not modified.
func Listings(listings []models.Listing, coords map[string]models.GeoCoordinate) []models.EnrichedListing {
	out := make([]models.EnrichedListing, len(listings))
	for i, l := range listings {
		c := lookup(coords, l.Town)
		out[i] = models.EnrichedListing{
			Listing:   l,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		}
	}
	return out
}

// Records is the free-form variant of Listings: each record is copied and
// gains "latitude" and "longitude" keys from its "town" field. Records whose
// town is missing or not a string get nulls.
func Records(records []map[string]any, coords map[string]models.GeoCoordinate) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		m := make(map[string]any, len(r)+2)
		maps.Copy(m, r)

		c := lookup(coords, RecordTown(r))
		m["latitude"] = c.Latitude
		m["longitude"] = c.Longitude
		out[i] = m
	}
	return out
}

// Towns returns the town of every listing, in order.
func Towns(listings []models.Listing) []string {
	towns := make([]string, len(listings))
	for i, l := range listings {
		towns[i] = l.Town
	}
	return towns
}

// RecordTown returns the record's "town" field if it is a string.
func RecordTown(r map[string]any) string {
	s, _ := r["town"].(string)
	return s
}

// lookup returns a copy of the coordinate for town so callers never share
// pointers with the map.
func lookup(coords map[string]models.GeoCoordinate, town string) models.GeoCoordinate {
	c, ok := coords[strings.TrimSpace(town)]
	if !ok || !c.Resolved() {
		return models.GeoCoordinate{}
	}
	return models.NewGeoCoordinate(*c.Latitude, *c.Longitude)
}
