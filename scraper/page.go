package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
	"github.com/ysmood/gson"
)

// Scrape opens a fresh browser session, renders targetURL and extracts every
// listing card on it.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard       – hard deadline on the entire operation
//  2. Session slot        – bounded number of concurrent browsers
//  3. Open session        – launch or attach; DEFER close
//  4. Open page           – DEFER close using the unbound reference
//  5. Stealth + identity  – UA, viewport, locale, timezone, headers
//  6. Hijack mount        – abort trackers and heavy resources
//  7. Navigate            – bounded by NavigationTimeout
//  8. Wait for content    – at least one card, bounded by ContentTimeout
//  9. Extract             – HTML snapshot parsed and walked with goquery
//
// Steps 5 and 6 must precede step 7: stealth JS and request interception
// only apply to navigations that start after they are installed. The
// deferred cleanups use references without the request context so they
// still run after the deadline has passed.
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	if s.scraperCfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scraperCfg.RequestTimeout)
		defer cancel()
	}

	// ── 2. Session slot ───────────────────────────────────────────────
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// ── 3. Open session ───────────────────────────────────────────────
	mode := s.provider.Name()
	sess, err := s.provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.CloseQuietly(mode)

	// ── 4. Open page ──────────────────────────────────────────────────
	page, err := sess.NewPage()
	if err != nil {
		return nil, models.NewScrapeError(sessionErrCode(mode), "failed to open browser page", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("cleanup: failed to close page", "error", closeErr)
		}
	}()
	p := page.Context(ctx)

	// ── 5. Stealth + identity ─────────────────────────────────────────
	s.preparePage(p, targetURL)

	// ── 6. Hijack mount ───────────────────────────────────────────────
	if router := setupHijack(p, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockedHosts); router != nil {
		defer func() {
			if stopErr := router.Stop(); stopErr != nil {
				slog.Debug("cleanup: failed to stop hijack router", "error", stopErr)
			}
		}()
	}

	// ── 7. Navigate ───────────────────────────────────────────────────
	if err := navigate(ctx, p, targetURL, s.scraperCfg.NavigationTimeout); err != nil {
		return nil, err
	}

	// ── 8. Wait for content ───────────────────────────────────────────
	if err := waitForCards(ctx, p, s.scraperCfg.ContentSelector, s.scraperCfg.ContentTimeout); err != nil {
		return nil, err
	}

	// ── 9. Extract ────────────────────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeNavError(err, "failed to read rendered page")
	}
	doc, err := ParseHTML(rawHTML)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to parse rendered page", err)
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = targetURL
	}
	listings := s.extractor.Extract(doc, finalURL)
	slog.Info("listings extracted",
		"url", finalURL,
		"count", len(listings),
		"mode", mode,
	)

	return &Result{Listings: listings, FinalURL: finalURL}, nil
}

// preparePage applies the stealth script and a consistent browser identity.
// Every step is best-effort; a failure is logged and the scrape continues.
func (s *Scraper) preparePage(p *rod.Page, targetURL string) {
	cfg := s.scraperCfg

	if _, err := p.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	if cfg.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		}); err != nil {
			slog.Warn("user agent override failed", "error", err)
		}
	}

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			slog.Warn("viewport override failed", "error", err)
		}
	}

	if cfg.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: cfg.Timezone}).Call(p); err != nil {
			slog.Warn("timezone override failed", "timezone", cfg.Timezone, "error", err)
		}
	}

	if cfg.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: cfg.Locale}).Call(p); err != nil {
			slog.Warn("locale override failed", "locale", cfg.Locale, "error", err)
		}
	}

	headers := extraHeaders(cfg, targetURL)
	if len(headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}).Call(p); err != nil {
			slog.Warn("extra headers failed", "error", err)
		}
	}
}

// extraHeaders returns the Accept-Language header and a search-engine
// Referer for the target's host.
func extraHeaders(cfg config.ScraperConfig, targetURL string) map[string]string {
	h := make(map[string]string, 2)
	if cfg.AcceptLanguage != "" {
		h["Accept-Language"] = cfg.AcceptLanguage
	}
	if u, err := url.Parse(targetURL); err == nil && u.Hostname() != "" {
		h["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	return h
}

// navigate loads targetURL under its own deadline.
func navigate(ctx context.Context, p *rod.Page, targetURL string, timeout time.Duration) error {
	navCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	if err := p.Context(navCtx).Navigate(targetURL); err != nil {
		return categorizeNavError(err, "navigation to "+targetURL+" failed")
	}
	return nil
}

// waitForCards blocks until at least one element matches selector. Any
// failure, including the caller's deadline, is reported as a content timeout.
func waitForCards(ctx context.Context, p *rod.Page, selector string, timeout time.Duration) error {
	waitCtx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	if err := p.Context(waitCtx).WaitElementsMoreThan(selector, 0); err != nil {
		return models.NewScrapeError(
			models.ErrCodeContentTimeout,
			"no element matching "+selector+" appeared",
			err,
		)
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeNavError wraps a navigation failure into a typed ScrapeError.
func categorizeNavError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeNavigation, msg+": timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeNavigation, msg+": canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// sessionErrCode is the error code for failures while a session is being
// set up, which depends on how the browser was provided.
func sessionErrCode(mode string) string {
	if mode == config.BrowserModeRemote {
		return models.ErrCodeConnection
	}
	return models.ErrCodeLaunch
}
