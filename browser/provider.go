// Package browser provisions controllable Chromium sessions, either by
// launching a local executable or by attaching to a remote browser over its
// DevTools WebSocket endpoint.
package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
)

// Provider opens a fresh browser session for a single request.
type Provider interface {
	// Name returns the provider mode ("local" or "remote").
	Name() string

	// Open returns a ready session. The caller must Close it.
	Open(ctx context.Context) (*Session, error)
}

// NewProvider selects the provider variant once, from configuration.
func NewProvider(cfg config.BrowserConfig) (Provider, error) {
	switch cfg.Mode {
	case config.BrowserModeLocal:
		return NewLocal(cfg), nil
	case config.BrowserModeRemote:
		if cfg.WSURL == "" {
			return nil, models.NewScrapeError(models.ErrCodeConnection,
				"remote browser mode requires LISTMAP_BROWSER_WS_URL", nil)
		}
		return NewRemote(cfg), nil
	default:
		return nil, fmt.Errorf("browser: unknown mode %q", cfg.Mode)
	}
}

// Session is a connected browser scoped to one request.
type Session struct {
	browser  *rod.Browser
	teardown func() error
	closed   bool
}

// NewSession wraps a connected browser. teardown runs once, on the first
// Close, and must release everything the provider started for b.
func NewSession(b *rod.Browser, teardown func() error) *Session {
	return &Session{browser: b, teardown: teardown}
}

// NewPage opens a blank tab. The returned page is not bound to any request
// context; callers derive bound copies with page.Context.
func (s *Session) NewPage() (*rod.Page, error) {
	return s.browser.Page(proto.TargetCreateTarget{})
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if s.teardown == nil {
		return nil
	}
	return s.teardown()
}

// CloseQuietly closes the session and logs, rather than returns, any failure
// so that cleanup never masks the error that triggered it.
func (s *Session) CloseQuietly(mode string) {
	if err := s.Close(); err != nil {
		slog.Warn("cleanup: failed to close browser session",
			"mode", mode,
			"error", err,
		)
	}
}
