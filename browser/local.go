package browser

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/listmap/config"
	"github.com/use-agent/listmap/models"
)

// lookPath finds an installed Chromium when no path is configured.
var lookPath = launcher.LookPath

// Local launches a Chromium process per session. It never downloads a
// browser: with no configured path it uses one found on the system.
type Local struct {
	cfg config.BrowserConfig
}

// NewLocal creates a Local provider.
func NewLocal(cfg config.BrowserConfig) *Local {
	return &Local{cfg: cfg}
}

func (l *Local) Name() string { return config.BrowserModeLocal }

// Open launches the browser and connects to it. Every failure before a
// usable session exists is a LaunchError, and anything already started is
// torn down before returning.
func (l *Local) Open(ctx context.Context) (*Session, error) {
	bin := l.cfg.Bin
	if bin == "" {
		found, ok := lookPath()
		if !ok {
			return nil, models.NewScrapeError(
				models.ErrCodeLaunch,
				"no browser executable found; set LISTMAP_BROWSER_BIN",
				nil,
			)
		}
		bin = found
	} else if _, err := os.Stat(bin); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeLaunch,
			"browser executable not found at "+bin,
			err,
		)
	}

	lc := l.launcher(ctx, bin)
	controlURL, err := lc.Launch()
	if err != nil {
		// Launch kills its own process on failure. Cleanup is skipped here
		// because it blocks until a process that may never have started exits.
		return nil, models.NewScrapeError(
			models.ErrCodeLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Debug("browser launched", "controlURL", controlURL)

	// The browser itself is not bound to ctx so teardown still works after
	// the request deadline has passed.
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lc.Kill()
		lc.Cleanup()
		return nil, models.NewScrapeError(
			models.ErrCodeLaunch,
			"failed to connect to launched browser",
			err,
		)
	}

	return NewSession(b, func() error {
		closeErr := b.Close()
		// The process is killed regardless; a close failure only means
		// the CDP goodbye was lost.
		lc.Kill()
		lc.Cleanup()
		if closeErr != nil && !errors.Is(closeErr, context.Canceled) {
			return closeErr
		}
		return nil
	}), nil
}

// launcher builds the Chromium command line with the stealth flag set.
func (l *Local) launcher(ctx context.Context, bin string) *launcher.Launcher {
	lc := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(l.cfg.Headless).
		NoSandbox(l.cfg.NoSandbox)

	// ── Stealth flags ────────────────────────────────────────────────
	lc.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	lc.Delete(flags.Flag("enable-automation"))
	lc.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	lc.Set(flags.Flag("disable-background-timer-throttling"))
	lc.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	lc.Set(flags.Flag("disable-renderer-backgrounding"))
	lc.Set(flags.Flag("disable-component-update"))
	lc.Set(flags.Flag("disable-default-apps"))
	lc.Set(flags.Flag("disable-dev-shm-usage"))
	lc.Set(flags.Flag("disable-extensions"))
	lc.Set(flags.Flag("no-first-run"))

	return lc
}
