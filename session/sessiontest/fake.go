// Package sessiontest provides an in-memory session.Manager that serves
// fixture HTML and counts every Acquire and Release call.
package sessiontest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/models"
	"github.com/use-agent/pokedex/session"
)

// ErrQueryFault is returned by every query when Behavior.QueryFault is set.
var ErrQueryFault = errors.New("sessiontest: query fault")

// Behavior scripts how fake sessions respond.
type Behavior struct {
	// HTML is the rendered document served by Document.
	HTML string

	// LaunchErr makes Acquire fail.
	LaunchErr error

	// NavigateErr makes Navigate fail, like a DNS or TLS error.
	NavigateErr error

	// NeverSettle keeps the settled signal from ever firing.
	NeverSettle bool

	// SettleDelay postpones the settled signal.
	SettleDelay time.Duration

	// SelectorMissing keeps WaitSelector blocked until ctx ends.
	SelectorMissing bool

	// QueryFault makes every document query fail.
	QueryFault bool
}

// Manager is a counting fake session.Manager. It is safe for concurrent use.
type Manager struct {
	Behavior Behavior

	mu       sync.Mutex
	acquired int
	releases map[string]int
	urls     []string
	nextID   int
}

var _ session.Manager = (*Manager)(nil)

// NewManager returns a Manager that behaves as b.
func NewManager(b Behavior) *Manager {
	return &Manager{Behavior: b, releases: make(map[string]int)}
}

func (m *Manager) Acquire(ctx context.Context) (session.Session, error) {
	if m.Behavior.LaunchErr != nil {
		return nil, models.NewPipelineError(models.ErrCodeLaunchFailure,
			"failed to launch browser", m.Behavior.LaunchErr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired++
	m.nextID++
	return &Session{id: fmt.Sprintf("fake-%d", m.nextID), b: m.Behavior, m: m}, nil
}

// Release counts every call, including repeats, so tests can detect
// double releases.
func (m *Manager) Release(s session.Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases[s.ID()]++
}

func (m *Manager) Stats() models.SessionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	released := 0
	for _, n := range m.releases {
		released += n
	}
	return models.SessionStats{
		Active:   m.acquired - released,
		Launched: int64(m.acquired),
		Released: int64(released),
	}
}

// Acquired returns the number of successful Acquire calls.
func (m *Manager) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// Releases returns how many times each session ID was released.
func (m *Manager) Releases() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.releases))
	for k, v := range m.releases {
		out[k] = v
	}
	return out
}

// URLs returns every URL navigated to, in order.
func (m *Manager) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}

// Session is a fake session.Session.
type Session struct {
	id string
	b  Behavior
	m  *Manager
}

func (s *Session) ID() string { return s.id }

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.m.mu.Lock()
	s.m.urls = append(s.m.urls, url)
	s.m.mu.Unlock()
	return s.b.NavigateErr
}

func (s *Session) WatchSettled(ctx context.Context) func() error {
	return func() error {
		if s.b.NeverSettle {
			<-ctx.Done()
			return ctx.Err()
		}
		select {
		case <-time.After(s.b.SettleDelay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) WaitSelector(ctx context.Context, selector string) error {
	if s.b.SelectorMissing {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *Session) Document(ctx context.Context) (extract.Node, error) {
	if s.b.QueryFault {
		return faultNode{}, nil
	}
	return extract.FromHTML(s.b.HTML)
}

type faultNode struct{}

func (faultNode) QueryAll(string) ([]extract.Node, error) { return nil, ErrQueryFault }
func (faultNode) Text() (string, error)                  { return "", ErrQueryFault }
