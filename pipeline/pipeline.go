// Package pipeline runs one extraction request end to end: acquire a
// session, navigate until ready, extract, release, and wrap the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pokedex/extract"
	"github.com/use-agent/pokedex/metrics"
	"github.com/use-agent/pokedex/models"
	"github.com/use-agent/pokedex/navigation"
	"github.com/use-agent/pokedex/session"
)

// Pipeline wires a session manager, a navigation controller and an
// extraction engine together. It is safe for concurrent use; every Run owns
// its own session.
type Pipeline struct {
	sessions       session.Manager
	nav            *navigation.Controller
	engine         *extract.Engine
	requestTimeout time.Duration
}

// New creates a Pipeline. requestTimeout bounds a whole run, launch and
// extraction included; 0 leaves only the navigation bound.
func New(sessions session.Manager, nav *navigation.Controller, engine *extract.Engine, requestTimeout time.Duration) *Pipeline {
	return &Pipeline{
		sessions:       sessions,
		nav:            nav,
		engine:         engine,
		requestTimeout: requestTimeout,
	}
}

// Run executes spec with params and wraps the outcome. It never panics and
// always releases the session it acquired, whatever stage fails.
func (p *Pipeline) Run(ctx context.Context, spec models.ExtractionSpec, params map[string]string) models.Envelope {
	return Wrap(p.Execute(ctx, spec, params))
}

// Execute runs the stages in order and returns the raw outcome.
func (p *Pipeline) Execute(ctx context.Context, spec models.ExtractionSpec, params map[string]string) (out models.Outcome) {
	start := time.Now()
	target := ""

	defer func() {
		if r := recover(); r != nil {
			out = models.Failed(models.NewPipelineError(models.ErrCodeInternal,
				"internal error during extraction", fmt.Errorf("panic: %v", r)))
		}
		code := "ok"
		if out.Err != nil {
			code = models.AsPipelineError(out.Err).Code
		}
		metrics.ObserveStage(metrics.StageTotal, time.Since(start))
		metrics.RecordOutcome(spec.Name, code)

		attrs := []any{
			"use_case", spec.Name,
			"url", target,
			"code", code,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if out.Err != nil {
			slog.Warn("extraction failed", append(attrs, "error", out.Err)...)
			return
		}
		slog.Info("extraction completed", attrs...)
	}()

	// Defaults writes into Fields; copy so callers can reuse their spec.
	spec.Fields = append(models.FieldMapping(nil), spec.Fields...)
	spec.Defaults()
	if err := p.engine.Compile(&spec); err != nil {
		return models.Failed(err)
	}

	var err error
	target, err = spec.URL(params)
	if err != nil {
		return models.Failed(err)
	}

	if p.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.requestTimeout)
		defer cancel()
	}

	// ── acquire ──
	s, err := p.sessions.Acquire(ctx)
	if err != nil {
		if !models.HasCode(err, models.ErrCodeLaunchFailure) {
			err = models.NewPipelineError(models.ErrCodeLaunchFailure, "failed to launch browser", err)
		}
		return models.Failed(err)
	}
	defer p.sessions.Release(s)

	// ── navigate ──
	navStart := time.Now()
	if err := p.nav.GoTo(ctx, s, target, spec.Readiness); err != nil {
		return models.Failed(err)
	}
	metrics.ObserveStage(metrics.StageNavigate, time.Since(navStart))
	slog.Debug("page ready", "session", s.ID(), "url", target,
		"navigate_ms", time.Since(navStart).Milliseconds())

	// ── extract ──
	extractStart := time.Now()
	doc, err := s.Document(ctx)
	if err != nil {
		if models.AsPipelineError(err).Code == models.ErrCodeInternal {
			err = models.NewPipelineError(models.ErrCodeExtractionScript, "failed to read rendered document", err)
		}
		return models.Failed(err)
	}
	out = p.engine.Run(ctx, doc, &spec)
	metrics.ObserveStage(metrics.StageExtract, time.Since(extractStart))
	return out
}
