package models

// HealthResponse is the response for GET /v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	Driver       string       `json:"driver"`
	Version      string       `json:"version"`
}

// SessionStats reports rendering-session lifecycle counters.
type SessionStats struct {
	// MaxSessions is the admission cap; 0 means unlimited.
	MaxSessions int `json:"max_sessions"`

	// Active is the number of sessions currently acquired and not yet released.
	Active int `json:"active"`

	// Launched counts successful acquisitions since start.
	Launched int64 `json:"launched"`

	// Released counts completed releases since start.
	Released int64 `json:"released"`

	// LaunchFailures counts acquisitions that could not start a browser.
	LaunchFailures int64 `json:"launch_failures"`

	// ForcedReleases counts releases that had to kill the browser process.
	ForcedReleases int64 `json:"forced_releases"`
}
