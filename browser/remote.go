package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
)

// Remote attaches to a pre-provisioned browser over its WebSocket control URL.
type Remote struct {
	wsURL   string
	timeout time.Duration
}

// NewRemote creates a Remote provider.
func NewRemote(cfg config.BrowserConfig) *Remote {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{wsURL: cfg.WSURL, timeout: timeout}
}

func (r *Remote) Name() string { return config.BrowserModeRemote }

// Open performs the CDP handshake within the configured timeout. The
// browser's own context outlives the handshake and is cancelled on Close.
func (r *Remote) Open(ctx context.Context) (*Session, error) {
	bctx, cancel := context.WithCancel(context.Background())
	b := rod.New().ControlURL(r.wsURL).Context(bctx)

	errc := make(chan error, 1)
	go func() { errc <- b.Connect() }()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		if err != nil {
			cancel()
			return nil, models.NewScrapeError(
				models.ErrCodeConnection,
				"failed to connect to remote browser",
				err,
			)
		}
	case <-timer.C:
		cancel()
		return nil, models.NewScrapeError(
			models.ErrCodeConnection,
			fmt.Sprintf("remote browser handshake timed out after %s", r.timeout),
			context.DeadlineExceeded,
		)
	case <-ctx.Done():
		cancel()
		return nil, models.NewScrapeError(
			models.ErrCodeConnection,
			"request ended before remote browser connected",
			ctx.Err(),
		)
	}

	slog.Debug("remote browser connected")

	return NewSession(b, func() error {
		// Close ends the hosted session; the provider reclaims the browser.
		defer cancel()
		return b.Close()
	}), nil
}
