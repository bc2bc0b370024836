package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/listmap/models"
)

// Extractor turns a rendered listings page into Listing records.
// It holds no per-page state and is safe for concurrent use.
type Extractor struct {
	sel *compiled
}

// NewExtractor compiles the selectors once.
func NewExtractor(s Selectors) (*Extractor, error) {
	c, err := s.compile()
	if err != nil {
		return nil, err
	}
	return &Extractor{sel: c}, nil
}

// ParseHTML parses a rendered HTML snapshot.
func ParseHTML(rawHTML string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
}

// Extract walks every card in document order and returns one Listing per
// card with ids 1..N. Missing fields degrade to their sentinel; a card is
// never skipped.
//
// pageURL is the document's own URL. A <base> element in doc is resolved
// against it, the same way a browser computes document.baseURI.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) []models.Listing {
	base := documentBase(doc, pageURL)

	cards := doc.FindMatcher(e.sel.card)
	listings := make([]models.Listing, 0, cards.Length())

	cards.Each(func(i int, card *goquery.Selection) {
		title := firstText(card, e.sel.title)

		l := models.Listing{
			ID:           i + 1,
			Title:        orSentinel(title, models.NoTitle),
			Town:         orSentinel(title, models.NoTown),
			Price:        orSentinel(firstText(card, e.sel.price), models.NoPrice),
			Link:         orSentinel(e.listingLink(card, base), models.NoLink),
			Image:        orSentinel(e.image(card, base), models.NoImage),
			PropertyType: orSentinel(firstText(card, e.sel.typ), models.NoType),
			DetailURL:    orSentinel(e.detailURL(card, base), models.NoDetailURL),
		}
		listings = append(listings, l)
	})

	return listings
}

// listingLink returns the first anchor whose resolved path looks like a
// listing-detail page.
func (e *Extractor) listingLink(card *goquery.Selection, base *url.URL) string {
	var link string
	card.FindMatcher(e.sel.anchor).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		abs := resolve(base, href)
		if abs == "" {
			return true
		}
		u, err := url.Parse(abs)
		if err != nil || !e.sel.linkPath.MatchString(u.Path) {
			return true
		}
		link = abs
		return false
	})
	return link
}

// imageAttrs is the preference order for an image's source.
var imageAttrs = []struct {
	name   string
	srcset bool
}{
	{"data-src", false},
	{"src", false},
	{"data-srcset", true},
	{"srcset", true},
}

func (e *Extractor) image(card *goquery.Selection, base *url.URL) string {
	img := card.FindMatcher(e.sel.image).First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range imageAttrs {
		v := strings.TrimSpace(img.AttrOr(attr.name, ""))
		if attr.srcset {
			v = firstSrcsetURL(v)
		}
		if v != "" {
			return resolve(base, v)
		}
	}
	return ""
}

func (e *Extractor) detailURL(card *goquery.Selection, base *url.URL) string {
	href := strings.TrimSpace(card.FindMatcher(e.sel.detail).First().AttrOr("href", ""))
	if href == "" {
		return ""
	}
	return resolve(base, href)
}

// firstText returns the trimmed text of the first match, or "".
func firstText(s *goquery.Selection, m goquery.Matcher) string {
	return strings.TrimSpace(s.FindMatcher(m).First().Text())
}

// firstSrcsetURL returns the URL of the first candidate in a srcset value.
func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// documentBase returns the effective base URL for resolving relative links.
func documentBase(doc *goquery.Document, pageURL string) *url.URL {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if base != nil {
				return base.ResolveReference(ref)
			}
			return ref
		}
	}
	return base
}

// resolve makes ref absolute against base. Unparseable refs are returned
// trimmed but otherwise unchanged.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}
