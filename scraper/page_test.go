package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/listmap/browser"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
)

// countingProvider launches a headless Chromium per session and counts
// session teardowns.
type countingProvider struct {
	bin      string
	opened   time.Time
	closures int
}

func (p *countingProvider) Name() string { return config.BrowserModeLocal }

func (p *countingProvider) Open(context.Context) (*browser.Session, error) {
	lc := launcher.New().Bin(p.bin).Headless(true).NoSandbox(true)
	controlURL, err := lc.Launch()
	if err != nil {
		return nil, err
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lc.Kill()
		lc.Cleanup()
		return nil, err
	}
	p.opened = time.Now()
	return browser.NewSession(b, func() error {
		p.closures++
		err := b.Close()
		lc.Kill()
		lc.Cleanup()
		return err
	}), nil
}

func browserScraper(t *testing.T, cfg config.ScraperConfig) (*Scraper, *countingProvider) {
	t.Helper()
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chromium installed")
	}
	p := &countingProvider{bin: bin}
	s, err := NewScraper(p, config.BrowserConfig{MaxSessions: 1}, cfg)
	if err != nil {
		t.Fatalf("NewScraper() error: %v", err)
	}
	return s, p
}

func servePage(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestScrape_MissingContentMarker(t *testing.T) {
	cfg := testScraperConfig()
	cfg.RequestTimeout = 30 * time.Second
	cfg.NavigationTimeout = 10 * time.Second
	cfg.ContentTimeout = time.Second
	s, p := browserScraper(t, cfg)

	target := servePage(t, `<html><body><h1>Maintenance</h1></body></html>`)

	_, err := s.Scrape(context.Background(), target)
	if !models.HasCode(err, models.ErrCodeContentTimeout) {
		t.Fatalf("Scrape() error = %v, want %s", err, models.ErrCodeContentTimeout)
	}
	if elapsed := time.Since(p.opened); elapsed > 2*cfg.ContentTimeout+2*time.Second {
		t.Errorf("Scrape() returned %v after the session opened, want about %v", elapsed, cfg.ContentTimeout)
	}
	if p.closures != 1 {
		t.Errorf("session closed %d times, want 1", p.closures)
	}
	if st := s.Stats(); st.ActiveSessions != 0 {
		t.Errorf("ActiveSessions = %d after failure, want 0", st.ActiveSessions)
	}
}

func TestScrape_ConnectionRefused(t *testing.T) {
	cfg := testScraperConfig()
	cfg.RequestTimeout = 30 * time.Second
	cfg.NavigationTimeout = 10 * time.Second
	s, p := browserScraper(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = s.Scrape(context.Background(), "http://"+addr+"/")
	if !models.HasCode(err, models.ErrCodeNavigation) {
		t.Fatalf("Scrape() error = %v, want %s", err, models.ErrCodeNavigation)
	}
	if p.closures != 1 {
		t.Errorf("session closed %d times, want 1", p.closures)
	}
}

func TestScrape_ExtractsRenderedCards(t *testing.T) {
	cfg := testScraperConfig()
	cfg.RequestTimeout = 30 * time.Second
	cfg.NavigationTimeout = 10 * time.Second
	cfg.ContentTimeout = 5 * time.Second
	cfg.BlockedHosts = []string{"doubleclick.net"}
	s, p := browserScraper(t, cfg)

	// The card is inserted by script, so only a rendered page contains it.
	target := servePage(t, `<html><body><div id="results"></div>
<script>
document.getElementById("results").innerHTML =
  '<div class="property-box"><h2>Bled</h2><h6>250.000,00 €</h6>' +
  '<a class="url-title-d" href="/oglasi-prodaja/bled-hisa_1/">Bled</a></div>';
</script></body></html>`)

	res, err := s.Scrape(context.Background(), target)
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if len(res.Listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(res.Listings))
	}
	l := res.Listings[0]
	if l.Title != "Bled" || l.Town != "Bled" || l.Price != "250.000,00 €" {
		t.Errorf("listing = %+v", l)
	}
	if want := target + "/oglasi-prodaja/bled-hisa_1/"; l.Link != want || l.DetailURL != want {
		t.Errorf("link/detailUrl = %q/%q, want %q", l.Link, l.DetailURL, want)
	}
	if p.closures != 1 {
		t.Errorf("session closed %d times, want 1", p.closures)
	}
}
