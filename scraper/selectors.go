package scraper

import (
	"fmt"
	"regexp"

	"github.com/andybalholm/cascadia"
)

// Selectors holds every CSS selector and pattern the extractor relies on.
// Changing the target site's markup should only require editing this value.
type Selectors struct {
	// Card matches one listing card. It doubles as the content marker.
	Card string

	// Title is the card's first heading.
	Title string

	// Price is the secondary heading carrying the asking price.
	Price string

	// Anchor matches candidate links inside a card.
	Anchor string

	// LinkPath is matched against the path of each resolved anchor href to
	// find the listing-detail link.
	LinkPath string

	// Type is the property-type label.
	Type string

	// Image is the card's picture element.
	Image string

	// DetailAnchor is the anchor class pointing at the detail page.
	DetailAnchor string
}

// DefaultSelectors returns the selectors for the nepremicnine.net results page.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:         ".property-box",
		Title:        "h2",
		Price:        "h6",
		Anchor:       "a[href]",
		LinkPath:     `^/oglasi-[a-z]+/.+`,
		Type:         "span.tipi",
		Image:        "img",
		DetailAnchor: "a.url-title-d",
	}
}

// compiled is the ready-to-match form of Selectors.
type compiled struct {
	card, title, price, anchor, typ, image, detail cascadia.Selector
	linkPath                                       *regexp.Regexp
}

func (s Selectors) compile() (*compiled, error) {
	var c compiled
	for _, f := range []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"card", s.Card, &c.card},
		{"title", s.Title, &c.title},
		{"price", s.Price, &c.price},
		{"anchor", s.Anchor, &c.anchor},
		{"type", s.Type, &c.typ},
		{"image", s.Image, &c.image},
		{"detail anchor", s.DetailAnchor, &c.detail},
	} {
		sel, err := cascadia.Compile(f.src)
		if err != nil {
			return nil, fmt.Errorf("scraper: invalid %s selector %q: %w", f.name, f.src, err)
		}
		*f.dst = sel
	}

	re, err := regexp.Compile(s.LinkPath)
	if err != nil {
		return nil, fmt.Errorf("scraper: invalid link path pattern %q: %w", s.LinkPath, err)
	}
	c.linkPath = re
	return &c, nil
}
