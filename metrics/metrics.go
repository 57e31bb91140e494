// Package metrics exposes prometheus collectors for session lifecycle and
// pipeline outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pokedex"

var (
	sessionsLaunched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_launched_total",
		Help:      "Rendering sessions successfully launched.",
	}, []string{"driver"})
	launchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_launch_failures_total",
		Help:      "Rendering sessions that failed to launch.",
	}, []string{"driver"})
	sessionsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_released_total",
		Help:      "Rendering sessions released, by whether the process had to be killed.",
	}, []string{"driver", "forced"})
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Rendering sessions currently acquired and not yet released.",
	})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Pipeline runs by use case and result code (\"ok\" on success).",
	}, []string{"use_case", "code"})
)

// Stage names for ObserveStage.
const (
	StageLaunch   = "launch"
	StageNavigate = "navigate"
	StageExtract  = "extract"
	StageRelease  = "release"
	StageTotal    = "total"
)

// RecordLaunch records one Acquire attempt.
func RecordLaunch(driver string, d time.Duration, err error) {
	stageDuration.WithLabelValues(StageLaunch).Observe(d.Seconds())
	if err != nil {
		launchFailures.WithLabelValues(driver).Inc()
		return
	}
	sessionsLaunched.WithLabelValues(driver).Inc()
	sessionsActive.Inc()
}

// RecordRelease records one completed Release.
func RecordRelease(driver string, d time.Duration, forced bool) {
	stageDuration.WithLabelValues(StageRelease).Observe(d.Seconds())
	sessionsReleased.WithLabelValues(driver, strconv.FormatBool(forced)).Inc()
	sessionsActive.Dec()
}

// ObserveStage records the duration of a pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordOutcome counts one finished pipeline run. code is "ok" for success.
func RecordOutcome(useCase, code string) {
	if useCase == "" {
		useCase = "custom"
	}
	requests.WithLabelValues(useCase, code).Inc()
}

// Handler serves the default registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
