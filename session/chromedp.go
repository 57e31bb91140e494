package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
	"github.com/use-agent/pokedex/config"
	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/metrics"
	"github.com/use-agent/pokedex/models"
)

// ChromedpManager launches one chromedp exec allocator per Acquire.
// Documents are always rendered-HTML snapshots.
type ChromedpManager struct {
	cfg config.BrowserConfig
	counters
}

// NewChromedpManager creates a ChromedpManager. No browser is started until Acquire.
func NewChromedpManager(cfg config.BrowserConfig) *ChromedpManager {
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = defaultReleaseTimeout
	}
	return &ChromedpManager{cfg: cfg}
}

// Stats returns a snapshot of the manager's lifecycle counters.
func (m *ChromedpManager) Stats() models.SessionStats {
	return m.snapshot()
}

func (m *ChromedpManager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-zygote", true),
		chromedp.Flag("disable-gpu", true),
	)
	if m.cfg.BrowserBin != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.BrowserBin))
	}
	if m.cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(m.cfg.Proxy))
	}
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}
	return opts
}

// Acquire starts a browser eagerly so launch errors surface here rather than
// on the first navigation. If ctx ends mid-launch the allocator is cancelled,
// which kills the process.
func (m *ChromedpManager) Acquire(ctx context.Context) (Session, error) {
	start := time.Now()
	s, err := m.launch(ctx)
	metrics.RecordLaunch(config.DriverChromedp, time.Since(start), err)
	if err != nil {
		m.failed.Add(1)
		return nil, err
	}
	m.acquired()
	slog.Debug("session acquired", "session", s.id, "driver", config.DriverChromedp,
		"launch_ms", time.Since(start).Milliseconds())
	return s, nil
}

func (m *ChromedpManager) launch(ctx context.Context) (*chromedpSession, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, func() {
		tabCancel()
		allocCancel()
	})
	actions := []chromedp.Action{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
	}
	if m.cfg.AcceptLanguage != "" {
		actions = append(actions, network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": m.cfg.AcceptLanguage,
		}))
	}
	if m.cfg.Stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}))
	}
	err := chromedp.Run(tabCtx, actions...)
	stop()
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, launchError("failed to launch browser", err)
	}

	return &chromedpSession{
		id:          uuid.NewString(),
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

// Release closes the browser gracefully, falling back to cancelling the
// allocator (which kills the process) after ReleaseTimeout.
func (m *ChromedpManager) Release(s Session) {
	cs, ok := s.(*chromedpSession)
	if !ok || cs == nil {
		return
	}
	cs.once.Do(func() {
		start := time.Now()
		forced := cs.close(m.cfg.ReleaseTimeout)
		m.releasedOne(forced)
		metrics.RecordRelease(config.DriverChromedp, time.Since(start), forced)
		slog.Debug("session released", "session", cs.id, "forced", forced,
			"release_ms", time.Since(start).Milliseconds())
	})
}

// chromedpSession is a Session backed by a dedicated chromedp browser.
type chromedpSession struct {
	id          string
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	once        sync.Once
}

func (s *chromedpSession) ID() string { return s.id }

// run executes actions on the session's tab, aborting when ctx ends.
// Cancelling the derived context stops only this call, not the tab.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate returns once the page's load event fires; chromedp.Navigate
// does not report earlier than that.
func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromedpSession) WatchSettled(ctx context.Context) func() error {
	settled := make(chan struct{})
	var once sync.Once
	chromedp.ListenTarget(s.tabCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkAlmostIdle" {
			once.Do(func() { close(settled) })
		}
	})
	return func() error {
		select {
		case <-settled:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *chromedpSession) WaitSelector(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *chromedpSession) Document(ctx context.Context) (extract.Node, error) {
	var rawHTML string
	if err := s.run(ctx, chromedp.OuterHTML("html", &rawHTML, chromedp.ByQuery)); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeExtractionScript,
			"failed to snapshot rendered html", err)
	}
	return extract.FromHTML(rawHTML)
}

func (s *chromedpSession) close(timeout time.Duration) (forced bool) {
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.tabCtx) }()

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

	s.tabCancel()
	s.allocCancel()
	return forced
}
