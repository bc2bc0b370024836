// Package markers lays out map markers for enriched listings.
package markers

import (
	"math"

	"github.com/use-agent/listmap/models"
)

const earthRadiusMeters = 6378137.0

// Options controls marker placement.
type Options struct {
	// Center is where listings without coordinates are placed.
	Center models.Point

	// RadiusMeters is the fan-out distance for listings sharing a point.
	RadiusMeters float64
}

type key struct{ lat, lng float64 }

// Layout returns one marker per listing, in input order. Listings without
// coordinates are placed at opts.Center. Listings sharing the same point are
// spread evenly on a circle of opts.RadiusMeters around it so every marker
// stays clickable.
func Layout(listings []models.EnrichedListing, opts Options) []models.Marker {
	origins := make([]models.Point, len(listings))
	fallback := make([]bool, len(listings))
	groups := make(map[key][]int)

	for i, l := range listings {
		p := opts.Center
		if l.Latitude != nil && l.Longitude != nil {
			p = models.Point{Latitude: *l.Latitude, Longitude: *l.Longitude}
		} else {
			fallback[i] = true
		}
		origins[i] = p
		k := key{p.Latitude, p.Longitude}
		groups[k] = append(groups[k], i)
	}

	out := make([]models.Marker, len(listings))
	for k, members := range groups {
		n := len(members)
		for slot, i := range members {
			p := models.Point{Latitude: k.lat, Longitude: k.lng}
			if n > 1 {
				p = fanOut(p, opts.RadiusMeters, slot, n)
			}
			l := listings[i]
			out[i] = models.Marker{
				ID:        l.ID,
				Title:     l.Title,
				Price:     l.Price,
				Image:     orEmpty(l.Image, models.NoImage),
				Link:      orEmpty(l.Link, models.NoLink),
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
				Fallback:  fallback[i],
				GroupSize: n,
			}
		}
	}
	return out
}

// fanOut places member slot of n on a circle of radius meters around p,
// using the equirectangular approximation.
func fanOut(p models.Point, radius float64, slot, n int) models.Point {
	angle := 2 * math.Pi * float64(slot) / float64(n)
	dLat := radius / earthRadiusMeters * 180 / math.Pi
	dLng := dLat / math.Cos(p.Latitude*math.Pi/180)
	return models.Point{
		Latitude:  p.Latitude + dLat*math.Sin(angle),
		Longitude: p.Longitude + dLng*math.Cos(angle),
	}
}

// orEmpty hides sentinels from the popup.
func orEmpty(v, sentinel string) string {
	if v == sentinel {
		return ""
	}
	return v
}
