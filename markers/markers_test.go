package markers

import (
	"math"
	"testing"

	"github.com/use-agent/listmap/models"
)

var center = models.Point{Latitude: 46.1512, Longitude: 14.9955}

func enriched(id int, coord models.GeoCoordinate) models.EnrichedListing {
	return models.EnrichedListing{
		Listing:   models.Listing{ID: id, Title: "T", Price: "1 €", Image: models.NoImage, Link: "https://h.test/x"},
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
	}
}

// distanceMeters is the equirectangular distance between two points.
func distanceMeters(a, b models.Point) float64 {
	x := (b.Longitude - a.Longitude) * math.Pi / 180 * math.Cos(a.Latitude*math.Pi/180)
	y := (b.Latitude - a.Latitude) * math.Pi / 180
	return math.Hypot(x, y) * earthRadiusMeters
}

func TestLayout_SingleListingUnchanged(t *testing.T) {
	in := []models.EnrichedListing{enriched(1, models.NewGeoCoordinate(46.2389, 14.3556))}
	got := Layout(in, Options{Center: center, RadiusMeters: 40})

	if len(got) != 1 {
		t.Fatalf("got %d markers, want 1", len(got))
	}
	m := got[0]
	if m.Latitude != 46.2389 || m.Longitude != 14.3556 || m.Fallback || m.GroupSize != 1 {
		t.Errorf("marker = %+v", m)
	}
	if m.Image != "" {
		t.Errorf("Image = %q, sentinel should be hidden", m.Image)
	}
	if m.Link != "https://h.test/x" {
		t.Errorf("Link = %q", m.Link)
	}
}

func TestLayout_MissingCoordinatesUseCenter(t *testing.T) {
	in := []models.EnrichedListing{enriched(1, models.GeoCoordinate{})}
	got := Layout(in, Options{Center: center, RadiusMeters: 40})

	if got[0].Latitude != center.Latitude || got[0].Longitude != center.Longitude {
		t.Errorf("marker at (%v, %v), want center", got[0].Latitude, got[0].Longitude)
	}
	if !got[0].Fallback {
		t.Error("Fallback should be set")
	}
}

func TestLayout_FansOutSharedPoints(t *testing.T) {
	shared := models.NewGeoCoordinate(46.2389, 14.3556)
	in := []models.EnrichedListing{
		enriched(1, shared),
		enriched(2, models.NewGeoCoordinate(46.3683, 14.1146)),
		enriched(3, shared),
		enriched(4, shared),
		enriched(5, shared),
	}
	origin := models.Point{Latitude: 46.2389, Longitude: 14.3556}

	got := Layout(in, Options{Center: center, RadiusMeters: 40})

	for i, m := range got {
		if m.ID != in[i].ID {
			t.Errorf("markers[%d].ID = %d, order not preserved", i, m.ID)
		}
	}

	seen := map[models.Point]bool{}
	for _, i := range []int{0, 2, 3, 4} {
		m := got[i]
		p := models.Point{Latitude: m.Latitude, Longitude: m.Longitude}
		if m.GroupSize != 4 {
			t.Errorf("markers[%d].GroupSize = %d, want 4", i, m.GroupSize)
		}
		if d := distanceMeters(origin, p); math.Abs(d-40) > 0.5 {
			t.Errorf("markers[%d] is %.2fm from origin, want 40m", i, d)
		}
		if seen[p] {
			t.Errorf("markers[%d] overlaps another marker", i)
		}
		seen[p] = true
	}

	if got[1].GroupSize != 1 || got[1].Latitude != 46.3683 {
		t.Errorf("unshared marker moved: %+v", got[1])
	}
}

func TestLayout_Empty(t *testing.T) {
	if got := Layout(nil, Options{Center: center}); len(got) != 0 {
		t.Errorf("got %d markers, want 0", len(got))
	}
}
