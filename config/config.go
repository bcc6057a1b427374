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
	Session   SessionConfig
	Browser   BrowserConfig
	Market    MarketConfig
	LLM       LLMConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server (scout-server only).
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// SessionConfig controls the remote browser session provider.
// When APIKey is empty, the pipeline launches a local headless browser instead.
type SessionConfig struct {
	// BaseURL is the session provider API root.
	BaseURL string // default: "https://api.browserbase.com"

	// APIKey authenticates session creation. Empty means "run a local browser".
	APIKey string

	// ProjectID is the provider-side project the sessions bill against.
	ProjectID string

	// ReplayBaseURL is where session replays can be viewed.
	ReplayBaseURL string // default: "https://browserbase.com/sessions"
}

// BrowserConfig controls the local-launch fallback and page behavior.
type BrowserConfig struct {
	// Headless controls whether a locally launched browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types to block before navigation.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// AcceptLanguage is sent as an extra header so listings render in a
	// predictable locale. default: "en-US,en;q=0.9"
	AcceptLanguage string
}

// MarketConfig controls the target marketplace and pipeline pacing.
type MarketConfig struct {
	// BaseURL is the marketplace root.
	BaseURL string // default: "https://www.amazon.com"

	// ProductLimit is how many harvested identifiers get processed per run.
	ProductLimit int // default: 3

	// SearchSettle is the wait after submitting a search.
	SearchSettle time.Duration // default: 3s

	// ProductSettle is the wait after navigating to a listing.
	ProductSettle time.Duration // default: 2s

	// ScreenshotDir, when set, receives a results-page screenshot per run.
	ScreenshotDir string
}

// LLMConfig controls the analysis model client.
type LLMConfig struct {
	// APIKey authenticates against the LLM provider.
	APIKey string

	// Model is the completion model. default: "gpt-4o-mini"
	Model string

	// BaseURL is the OpenAI-compatible API root. default: "https://api.openai.com/v1"
	BaseURL string

	// IncludeBrandReputation asks the model for a 1-5 brand score.
	IncludeBrandReputation bool // default: false

	// Timeout is the per-request deadline. default: 60s
	Timeout time.Duration
}

// CacheConfig controls the analysis cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached analyses.
	MaxEntries int // default: 1000

	// MaxAge is how long a cached analysis stays valid. Zero disables the cache.
	MaxAge time.Duration // default: 1h
}

// AuthConfig controls API key authentication (scout-server only).
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting (scout-server only).
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// WebhookConfig controls the research.completed callback (scout-server only).
type WebhookConfig struct {
	// URL receives a POST per completed research run. Empty disables delivery.
	URL string

	// Secret signs the payload with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("SCOUT_PORT", 8080),
			Mode: envOr("SCOUT_MODE", "release"),
		},
		Session: SessionConfig{
			BaseURL:       envOr("SCOUT_SESSION_API_URL", "https://api.browserbase.com"),
			APIKey:        os.Getenv("SCOUT_SESSION_API_KEY"),
			ProjectID:     os.Getenv("SCOUT_SESSION_PROJECT_ID"),
			ReplayBaseURL: envOr("SCOUT_SESSION_REPLAY_URL", "https://browserbase.com/sessions"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("SCOUT_HEADLESS", true),
			NoSandbox:  envBoolOr("SCOUT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("SCOUT_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("SCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			AcceptLanguage: envOr("SCOUT_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		},
		Market: MarketConfig{
			BaseURL:       envOr("SCOUT_MARKET_URL", "https://www.amazon.com"),
			ProductLimit:  envIntOr("SCOUT_PRODUCT_LIMIT", 3),
			SearchSettle:  envDurationOr("SCOUT_SEARCH_SETTLE", 3*time.Second),
			ProductSettle: envDurationOr("SCOUT_PRODUCT_SETTLE", 2*time.Second),
			ScreenshotDir: os.Getenv("SCOUT_SCREENSHOT_DIR"),
		},
		LLM: LLMConfig{
			APIKey:                 os.Getenv("OPENAI_API_KEY"),
			Model:                  envOr("SCOUT_LLM_MODEL", "gpt-4o-mini"),
			BaseURL:                envOr("SCOUT_LLM_BASE_URL", "https://api.openai.com/v1"),
			IncludeBrandReputation: envBoolOr("SCOUT_BRAND_REPUTATION", false),
			Timeout:                envDurationOr("SCOUT_LLM_TIMEOUT", 60*time.Second),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SCOUT_CACHE_MAX_ENTRIES", 1000),
			MaxAge:     envDurationOr("SCOUT_CACHE_MAX_AGE", time.Hour),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SCOUT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SCOUT_RATE_RPS", 1.0),
			Burst:             envIntOr("SCOUT_RATE_BURST", 3),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("SCOUT_WEBHOOK_URL"),
			Secret: os.Getenv("SCOUT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("SCOUT_LOG_LEVEL", "info"),
			Format: envOr("SCOUT_LOG_FORMAT", "text"),
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
