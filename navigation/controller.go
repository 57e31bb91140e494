// Package navigation loads a URL into a session and blocks until the page
// satisfies a readiness condition.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/use-agent/pokedex/models"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds navigation plus readiness when none is configured.
const DefaultTimeout = 30 * time.Second

// Page is the part of a session the controller drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WatchSettled(ctx context.Context) func() error
	WaitSelector(ctx context.Context, selector string) error
}

// Controller navigates pages under a fixed readiness bound.
type Controller struct {
	timeout time.Duration
}

// NewController returns a Controller whose readiness wait is bounded by
// timeout, or DefaultTimeout when timeout is not positive.
func NewController(timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{timeout: timeout}
}

// Timeout returns the readiness bound.
func (c *Controller) Timeout() time.Duration {
	return c.timeout
}

// GoTo navigates page to url and returns once every signal requested by
// ready has fired.
//
// The navigation request, the settled wait and the selector wait run
// concurrently under one deadline. The settled listener is armed before the
// request is issued so a fast page cannot settle unobserved. The first
// failing signal cancels the others.
//
// A deadline or cancellation yields NAVIGATION_TIMEOUT; any other failure
// (DNS, TLS, connection reset) yields NAVIGATION_FAILED.
func (c *Controller) GoTo(ctx context.Context, page Page, url string, ready models.ReadinessCondition) error {
	navCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(navCtx)

	var waitSettled func() error
	if ready.WantsSettled() {
		waitSettled = page.WatchSettled(gctx)
	}

	g.Go(func() error {
		return page.Navigate(gctx, url)
	})
	if waitSettled != nil {
		g.Go(waitSettled)
	}
	if ready.WantsSelector() {
		g.Go(func() error {
			return page.WaitSelector(gctx, ready.Selector)
		})
	}

	if err := g.Wait(); err != nil {
		return c.categorize(ctx, navCtx, url, err)
	}
	return nil
}

// categorize maps a failed wait onto the error taxonomy. The contexts are
// consulted as well as err because drivers do not always wrap the context
// error they stopped on.
func (c *Controller) categorize(parent, navCtx context.Context, url string, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return models.NewPipelineError(models.ErrCodeNavigationTimeout, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(navCtx.Err(), context.DeadlineExceeded):
		return models.NewPipelineError(models.ErrCodeNavigationTimeout,
			fmt.Sprintf("page did not become ready within %s", c.timeout), err)
	case errors.Is(err, context.Canceled):
		return models.NewPipelineError(models.ErrCodeNavigationTimeout, "request canceled", err)
	default:
		return models.NewPipelineError(models.ErrCodeNavigation,
			fmt.Sprintf("navigation to %s failed", url), err)
	}
}
