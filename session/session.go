// Package session owns rendering sessions: one freshly launched, isolated
// browser process with a single page per request.
//
// Nothing is pooled or shared between requests. A Manager hands out a
// Session from Acquire and tears it down in Release; callers must pair the two
// with defer so that a failing navigation or extraction cannot leak a live
// browser:
//
//	s, err := m.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer m.Release(s)
package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/use-agent/pokedex/config"
	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/models"
)

const defaultReleaseTimeout = 5 * time.Second

// Session is one exclusively-owned browser process plus one page.
type Session interface {
	// ID identifies the session in logs.
	ID() string

	// Navigate issues the navigation request. DNS, TLS and connection
	// failures are reported here. The rod driver returns as soon as the
	// browser commits the navigation; chromedp waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WatchSettled arms a listener for the page's network going almost idle.
	// It must be called before Navigate so no lifecycle event is missed; the
	// returned func blocks until the event fires or ctx is done.
	WatchSettled(ctx context.Context) func() error

	// WaitSelector blocks until selector matches at least one element or
	// ctx is done.
	WaitSelector(ctx context.Context, selector string) error

	// Document returns the rendered document for extraction.
	Document(ctx context.Context) (extract.Node, error)
}

// Manager acquires and releases sessions.
type Manager interface {
	// Acquire launches a new session. A launch problem is returned as a
	// LAUNCH_FAILURE PipelineError and leaves nothing running.
	Acquire(ctx context.Context) (Session, error)

	// Release tears s down. It is idempotent and accepts nil.
	Release(s Session)

	// Stats returns a snapshot of lifecycle counters.
	Stats() models.SessionStats
}

// New builds the Manager selected by cfg.Driver, wrapped with an admission
// cap when cfg.MaxSessions > 0.
func New(cfg config.BrowserConfig) (Manager, error) {
	var m Manager
	switch cfg.Driver {
	case "", config.DriverRod:
		m = NewRodManager(cfg)
	case config.DriverChromedp:
		m = NewChromedpManager(cfg)
	default:
		return nil, fmt.Errorf("session: unknown driver %q", cfg.Driver)
	}
	if cfg.MaxSessions > 0 {
		m = NewLimited(m, cfg.MaxSessions)
	}
	return m, nil
}

// counters tracks lifecycle events for Stats. It is safe for concurrent use.
type counters struct {
	active   atomic.Int32
	launched atomic.Int64
	released atomic.Int64
	failed   atomic.Int64
	forced   atomic.Int64
}

func (c *counters) snapshot() models.SessionStats {
	return models.SessionStats{
		Active:         int(c.active.Load()),
		Launched:       c.launched.Load(),
		Released:       c.released.Load(),
		LaunchFailures: c.failed.Load(),
		ForcedReleases: c.forced.Load(),
	}
}

func (c *counters) acquired() {
	c.active.Add(1)
	c.launched.Add(1)
}

func (c *counters) releasedOne(forced bool) {
	c.active.Add(-1)
	c.released.Add(1)
	if forced {
		c.forced.Add(1)
	}
}

func launchError(msg string, err error) *models.PipelineError {
	return models.NewPipelineError(models.ErrCodeLaunchFailure, msg, err)
}
