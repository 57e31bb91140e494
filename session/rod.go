package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
	"github.com/use-agent/pokedex/config"
	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/metrics"
	"github.com/use-agent/pokedex/models"
	"github.com/ysmood/gson"
)

// RodManager launches one go-rod controlled Chromium per Acquire.
// It is safe for concurrent use.
type RodManager struct {
	cfg config.BrowserConfig
	counters
}

// NewRodManager creates a RodManager. No browser is started until Acquire.
func NewRodManager(cfg config.BrowserConfig) *RodManager {
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = defaultReleaseTimeout
	}
	return &RodManager{cfg: cfg}
}

// Stats returns a snapshot of the manager's lifecycle counters.
func (m *RodManager) Stats() models.SessionStats {
	return m.snapshot()
}

// newLauncher builds the launcher with the fixed safety profile. Sandboxing
// layers that break in constrained containers, GPU acceleration and first-run
// telemetry are always off; none of this is tunable per request.
func newLauncher(ctx context.Context, cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(true).
		Leakless(cfg.Leakless)

	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-accelerated-2d-canvas"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-zygote"))
	l.Set(flags.Flag("disable-gpu"))

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	return l
}

// Acquire launches a browser, connects to it and opens one page.
//
// The launcher is bound to ctx, so a request that is abandoned mid-launch
// takes its browser process down with it. Any step failing after the
// process started kills it and removes its profile directory before
// returning.
func (m *RodManager) Acquire(ctx context.Context) (Session, error) {
	start := time.Now()
	s, err := m.launch(ctx)
	metrics.RecordLaunch(config.DriverRod, time.Since(start), err)
	if err != nil {
		m.failed.Add(1)
		return nil, err
	}
	m.acquired()
	slog.Debug("session acquired", "session", s.id, "driver", config.DriverRod,
		"launch_ms", time.Since(start).Milliseconds())
	return s, nil
}

func (m *RodManager) launch(ctx context.Context) (*rodSession, error) {
	l := newLauncher(ctx, m.cfg)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, launchError("failed to launch browser", err)
	}

	s := &rodSession{
		id:          uuid.NewString(),
		launcher:    l,
		extractMode: m.cfg.ExtractMode,
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.kill()
		return nil, launchError("failed to connect to browser", err)
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.kill()
		return nil, launchError("failed to open page", err)
	}

	if m.cfg.Stealth {
		if _, evalErr := s.page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"session", s.id, "error", evalErr,
			)
		}
	}
	if m.cfg.UserAgent != "" {
		_ = s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      m.cfg.UserAgent,
			AcceptLanguage: m.cfg.AcceptLanguage,
		})
	}
	if m.cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{"Accept-Language": gson.New(m.cfg.AcceptLanguage)},
		}.Call(s.page)
	}
	s.router = setupHijack(s.page, m.cfg.BlockedResourceTypes)

	return s, nil
}

// Release closes the session's browser. A close that does not finish within
// ReleaseTimeout is abandoned and the process is killed instead.
func (m *RodManager) Release(s Session) {
	rs, ok := s.(*rodSession)
	if !ok || rs == nil {
		return
	}
	rs.once.Do(func() {
		start := time.Now()
		forced := rs.close(m.cfg.ReleaseTimeout)
		m.releasedOne(forced)
		metrics.RecordRelease(config.DriverRod, time.Since(start), forced)
		slog.Debug("session released", "session", rs.id, "forced", forced,
			"release_ms", time.Since(start).Milliseconds())
	})
}

// rodSession is a Session backed by a dedicated rod browser.
type rodSession struct {
	id          string
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	router      *rod.HijackRouter
	extractMode string
	once        sync.Once
}

func (s *rodSession) ID() string { return s.id }

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	return s.page.Context(ctx).Navigate(url)
}

func (s *rodSession) WatchSettled(ctx context.Context) func() error {
	wait := s.page.Context(ctx).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	return func() error {
		wait()
		return ctx.Err()
	}
}

func (s *rodSession) WaitSelector(ctx context.Context, selector string) error {
	return s.page.Context(ctx).WaitElementsMoreThan(selector, 0)
}

func (s *rodSession) Document(ctx context.Context) (extract.Node, error) {
	p := s.page.Context(ctx)
	if s.extractMode == config.ExtractSnapshot {
		rawHTML, err := p.HTML()
		if err != nil {
			return nil, models.NewPipelineError(models.ErrCodeExtractionScript,
				"failed to snapshot rendered html", err)
		}
		return extract.FromHTML(rawHTML)
	}
	return &rodDocument{page: p}, nil
}

// close shuts the browser down and reports whether it had to be forced.
// The original page and browser references are used, without any request
// context, so cleanup still runs after the request deadline has passed.
func (s *rodSession) close(timeout time.Duration) (forced bool) {
	if s.router != nil {
		_ = s.router.Stop()
	}

	done := make(chan error, 1)
	go func() { done <- s.browser.Close() }()

	select {
	case err := <-done:
		if err != nil {
			slog.Warn("browser close failed, killing process", "session", s.id, "error", err)
			forced = true
		}
	case <-time.After(timeout):
		slog.Warn("browser close timed out, killing process", "session", s.id, "timeout", timeout)
		forced = true
	}

	s.kill()
	return forced
}

// kill terminates the browser process and removes its user-data-dir.
func (s *rodSession) kill() {
	s.launcher.Kill()
	s.launcher.Cleanup()
}
