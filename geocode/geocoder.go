// Package geocode resolves free-text town names to coordinates through a
// place-search API, with a shared cache and fallback queries.
package geocode

import (
	"context"
	"iter"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/use-agent/listmap/models"
	"golang.org/x/sync/errgroup"
)

// Searcher runs a single place-search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// Cache stores resolved coordinates by trimmed town name. Unresolved towns
// are stored too, as a coordinate with nil fields.
type Cache interface {
	Get(key string) (models.GeoCoordinate, bool)
	Put(key string, v models.GeoCoordinate)
}

// Options tunes the Geocoder.
type Options struct {
	// CountrySuffix is appended to the town for the second query.
	CountrySuffix string

	// ChunkSize is the number of concurrent lookups per batch chunk.
	ChunkSize int
}

// Geocoder resolves towns. It is safe for concurrent use.
type Geocoder struct {
	searcher  Searcher
	cache     Cache
	suffix    string
	chunkSize int
}

// New creates a Geocoder backed by searcher and cache.
func New(searcher Searcher, cache Cache, opts Options) *Geocoder {
	chunk := opts.ChunkSize
	if chunk < 1 {
		chunk = 5
	}
	return &Geocoder{
		searcher:  searcher,
		cache:     cache,
		suffix:    opts.CountrySuffix,
		chunkSize: chunk,
	}
}

// Resolve returns the coordinates of town. It never fails: a town that
// cannot be resolved, including one whose query errored, yields a
// coordinate with nil fields. A query error ends the fallback chain for
// that town at once; only an empty or invalid result moves on to the next
// candidate query. Outcomes are cached, except when ctx itself was canceled
// mid-lookup.
func (g *Geocoder) Resolve(ctx context.Context, town string) models.GeoCoordinate {
	town = strings.TrimSpace(town)
	if town == "" || town == models.NoTown {
		return models.GeoCoordinate{}
	}

	if c, ok := g.cache.Get(town); ok {
		return c
	}

	coord, err := g.lookup(ctx, town)
	if err != nil {
		if ctx.Err() != nil {
			return models.GeoCoordinate{}
		}
		slog.Warn("geocode: lookup failed, caching as unresolved",
			"town", town,
			"error", err,
		)
	}
	g.cache.Put(town, coord)
	return coord
}

// ResolveBatch resolves every distinct trimmed town and returns the results
// keyed by trimmed town. Lookups run in fixed-size concurrent chunks; a chunk
// starts only after the previous one has finished.
func (g *Geocoder) ResolveBatch(ctx context.Context, towns []string) map[string]models.GeoCoordinate {
	unique := Dedupe(towns)
	out := make(map[string]models.GeoCoordinate, len(unique))
	var mu sync.Mutex

	for start := 0; start < len(unique); start += g.chunkSize {
		end := min(start+g.chunkSize, len(unique))

		var eg errgroup.Group
		for _, town := range unique[start:end] {
			eg.Go(func() error {
				c := g.Resolve(ctx, town)
				mu.Lock()
				out[town] = c
				mu.Unlock()
				return nil
			})
		}
		_ = eg.Wait()
	}

	return out
}

// lookup walks the candidate queries and returns the first acceptable
// match. An error from the searcher ends the walk.
func (g *Geocoder) lookup(ctx context.Context, town string) (models.GeoCoordinate, error) {
	for q := range Candidates(town, g.suffix) {
		places, err := g.searcher.Search(ctx, q)
		if err != nil {
			return models.GeoCoordinate{}, err
		}
		if c, ok := firstValid(places); ok {
			slog.Debug("geocode: resolved", "town", town, "query", q)
			return c, nil
		}
		slog.Debug("geocode: no match", "town", town, "query", q)
	}
	return models.GeoCoordinate{}, nil
}

// Candidates yields the queries tried for town, in order: the town itself,
// the town with ", <suffix>" appended, then the town with its last
// comma-separated segment removed, repeatedly, until no comma remains.
func Candidates(town, suffix string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(town) {
			return
		}
		if suffix != "" {
			if !yield(town + ", " + suffix) {
				return
			}
		}
		prefix := town
		for {
			i := strings.LastIndexByte(prefix, ',')
			if i < 0 {
				return
			}
			prefix = strings.TrimSpace(prefix[:i])
			if prefix == "" {
				continue
			}
			if !yield(prefix) {
				return
			}
		}
	}
}

// firstValid accepts the first match only if both coordinates parse as
// finite numbers.
func firstValid(places []Place) (models.GeoCoordinate, bool) {
	if len(places) == 0 {
		return models.GeoCoordinate{}, false
	}
	lat, ok := parseFinite(places[0].Lat)
	if !ok {
		return models.GeoCoordinate{}, false
	}
	lon, ok := parseFinite(places[0].Lon)
	if !ok {
		return models.GeoCoordinate{}, false
	}
	return models.NewGeoCoordinate(lat, lon), true
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Dedupe trims towns and drops repeats, keeping first-seen order.
func Dedupe(towns []string) []string {
	seen := make(map[string]struct{}, len(towns))
	out := make([]string, 0, len(towns))
	for _, t := range towns {
		t = strings.TrimSpace(t)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
