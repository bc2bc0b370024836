package scraper

import "github.com/use-agent/listmap/models"

// Result is what one scrape of a listings page yields.
type Result struct {
	// Listings are the extracted cards in page order.
	Listings []models.Listing

	// FinalURL is the page URL after redirects.
	FinalURL string
}
