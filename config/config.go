package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Pipeline  PipelineConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Pokedex   PokedexConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// Session drivers.
const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"
)

// Extract modes.
const (
	ExtractLive     = "live"
	ExtractSnapshot = "snapshot"
)

// BrowserConfig controls how rendering sessions are launched.
//
// The sandbox/GPU/first-run launch profile is fixed in package session and
// is not configurable.
type BrowserConfig struct {
	// Driver selects the session implementation: "rod" or "chromedp".
	Driver string // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the upstream proxy URL for all sessions.
	Proxy string

	// Stealth injects anti-bot-detection evasions into every new page.
	Stealth bool // default: false

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// AcceptLanguage is sent as an extra header on every request.
	AcceptLanguage string // default: "en-US,en;q=0.9"

	// BlockedResourceTypes lists resource types to block (rod driver only).
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// Leakless guards against orphaned browsers if this process dies.
	Leakless bool // default: true

	// ExtractMode is "live" (query the page's DOM) or "snapshot"
	// (serialize the rendered HTML once and query it offline).
	ExtractMode string // default: "live"

	// MaxSessions caps concurrent sessions; 0 disables the cap.
	MaxSessions int // default: 0

	// ReleaseTimeout bounds a graceful browser close before the process is killed.
	ReleaseTimeout time.Duration // default: 5s
}

// PipelineConfig controls per-request time bounds.
type PipelineConfig struct {
	// NavigationTimeout bounds navigation plus readiness.
	NavigationTimeout time.Duration // default: 30s

	// RequestTimeout bounds the whole request (launch, navigate, extract).
	// 0 disables the bound.
	RequestTimeout time.Duration // default: 60s
}

// AuthConfig controls token authentication.
type AuthConfig struct {
	// Enabled toggles token authentication.
	Enabled bool // default: true

	// Tokens is the list of accepted tokens. Empty means open access.
	Tokens []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per identity.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// Access toggles gin's per-request access log.
	Access bool // default: true
}

// PokedexConfig controls the built-in Pokédex use cases.
type PokedexConfig struct {
	// BaseURL is the site hosting the list and detail pages.
	BaseURL string // default: "https://pokemondb.net"
}

// Load reads configuration from environment variables with sane defaults.
//
// PORT and TOKEN are honoured as fallbacks for POKEDEX_PORT and
// POKEDEX_TOKENS.
func Load() *Config {
	tokens := envSliceOr("POKEDEX_TOKENS", nil)
	if len(tokens) == 0 {
		if t := os.Getenv("TOKEN"); t != "" {
			tokens = []string{t}
		}
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("POKEDEX_HOST", "0.0.0.0"),
			Port: envIntOr("POKEDEX_PORT", envIntOr("PORT", 3000)),
			Mode: envOr("POKEDEX_MODE", "release"),
		},
		Browser: BrowserConfig{
			Driver:         envOr("POKEDEX_DRIVER", DriverRod),
			Headless:       envBoolOr("POKEDEX_HEADLESS", true),
			BrowserBin:     os.Getenv("POKEDEX_BROWSER_BIN"),
			Proxy:          os.Getenv("POKEDEX_PROXY"),
			Stealth:        envBoolOr("POKEDEX_STEALTH", false),
			UserAgent:      os.Getenv("POKEDEX_USER_AGENT"),
			AcceptLanguage: envOr("POKEDEX_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			BlockedResourceTypes: envSliceOr("POKEDEX_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			Leakless:       envBoolOr("POKEDEX_LEAKLESS", true),
			ExtractMode:    envOr("POKEDEX_EXTRACT_MODE", ExtractLive),
			MaxSessions:    envIntOr("POKEDEX_MAX_SESSIONS", 0),
			ReleaseTimeout: envDurationOr("POKEDEX_RELEASE_TIMEOUT", 5*time.Second),
		},
		Pipeline: PipelineConfig{
			NavigationTimeout: envDurationOr("POKEDEX_NAV_TIMEOUT", 30*time.Second),
			RequestTimeout:    envDurationOr("POKEDEX_REQUEST_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("POKEDEX_AUTH_ENABLED", true),
			Tokens:  tokens,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("POKEDEX_RATE_RPS", 1.0),
			Burst:             envIntOr("POKEDEX_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("POKEDEX_LOG_LEVEL", "info"),
			Format: envOr("POKEDEX_LOG_FORMAT", "json"),
			Access: envBoolOr("POKEDEX_ACCESS_LOG", true),
		},
		Pokedex: PokedexConfig{
			BaseURL: strings.TrimRight(envOr("POKEDEX_BASE_URL", "https://pokemondb.net"), "/"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
