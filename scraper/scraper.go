package scraper

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/listmap/browser"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
)

// Scraper renders listings pages in short-lived browser sessions and
// extracts their cards. It is safe for concurrent use.
type Scraper struct {
	provider       browser.Provider
	extractor      *Extractor
	browserCfg     config.BrowserConfig
	scraperCfg     config.ScraperConfig
	sessions       chan struct{}
	activeSessions atomic.Int32
}

// NewScraper validates the content selector and prepares the extractor.
// No browser is started until the first Scrape.
func NewScraper(provider browser.Provider, browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	if _, err := cascadia.Parse(scraperCfg.ContentSelector); err != nil {
		return nil, fmt.Errorf("scraper: invalid content selector %q: %w", scraperCfg.ContentSelector, err)
	}

	sel := DefaultSelectors()
	sel.Card = scraperCfg.ContentSelector
	ex, err := NewExtractor(sel)
	if err != nil {
		return nil, err
	}

	maxSessions := browserCfg.MaxSessions
	if maxSessions < 1 {
		maxSessions = 1
	}

	return &Scraper{
		provider:   provider,
		extractor:  ex,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		sessions:   make(chan struct{}, maxSessions),
	}, nil
}

// Mode returns the browser provider's mode.
func (s *Scraper) Mode() string {
	return s.provider.Name()
}

// Stats returns a snapshot of session utilisation.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    cap(s.sessions),
		ActiveSessions: int(s.activeSessions.Load()),
	}
}

// acquire reserves a session slot, waiting until one frees up or ctx ends.
func (s *Scraper) acquire(ctx context.Context) (release func(), err error) {
	select {
	case s.sessions <- struct{}{}:
	case <-ctx.Done():
		return nil, models.NewScrapeError(
			sessionErrCode(s.provider.Name()),
			"no browser session became available",
			ctx.Err(),
		)
	}
	s.activeSessions.Add(1)
	return func() {
		s.activeSessions.Add(-1)
		<-s.sessions
	}, nil
}
