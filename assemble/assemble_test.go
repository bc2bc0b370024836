package assemble

import (
	"strings"
	"testing"

	"github.com/use-agent/listmap/models"
)

func testCoords() map[string]models.GeoCoordinate {
	return map[string]models.GeoCoordinate{
		"Kranj":  models.NewGeoCoordinate(46.2389, 14.3556),
		"Bled":   models.NewGeoCoordinate(46.3683, 14.1146),
		"Nikjer": {},
	}
}

func TestListings(t *testing.T) {
	in := []models.Listing{
		{ID: 1, Title: "Kranj", Town: "Kranj", Price: "1 €"},
		{ID: 2, Title: "Nikjer", Town: "Nikjer"},
		{ID: 3, Title: "Bled", Town: " Bled "},
		{ID: 4, Title: models.NoTitle, Town: models.NoTown},
		{ID: 5, Title: "Kranj", Town: "Kranj"},
	}
	coords := testCoords()

	out := Listings(in, coords)

	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i, e := range out {
		if e.Listing != in[i] {
			t.Errorf("out[%d].Listing = %+v, want %+v", i, e.Listing, in[i])
		}
		want, ok := coords[strings.TrimSpace(in[i].Town)]
		if !ok || !want.Resolved() {
			if e.Latitude != nil || e.Longitude != nil {
				t.Errorf("out[%d] should have null coordinates", i)
			}
			continue
		}
		if e.Latitude == nil || *e.Latitude != *want.Latitude || *e.Longitude != *want.Longitude {
			t.Errorf("out[%d] coordinates do not match %q", i, in[i].Town)
		}
	}

	if out[0].Latitude == coords["Kranj"].Latitude {
		t.Error("output shares coordinate pointers with the input map")
	}
}

func TestRecords(t *testing.T) {
	in := []map[string]any{
		{"town": "Kranj", "price": "100"},
		{"town": 42},
		{"name": "no town"},
	}

	out := Records(in, testCoords())

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0]["price"] != "100" {
		t.Error("input fields should be kept")
	}
	if lat, _ := out[0]["latitude"].(*float64); lat == nil || *lat != 46.2389 {
		t.Errorf("out[0] latitude = %v", out[0]["latitude"])
	}
	for _, i := range []int{1, 2} {
		if lat, _ := out[i]["latitude"].(*float64); lat != nil {
			t.Errorf("out[%d] latitude = %v, want nil", i, *lat)
		}
	}
	if _, ok := in[0]["latitude"]; ok {
		t.Error("input record was mutated")
	}
}

func TestTowns(t *testing.T) {
	got := Towns([]models.Listing{{Town: "Kranj"}, {Town: models.NoTown}})
	if len(got) != 2 || got[0] != "Kranj" || got[1] != models.NoTown {
		t.Errorf("Towns() = %q", got)
	}
}
