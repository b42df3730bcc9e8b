package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SEOAUDIT_"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Engine    EngineConfig    `yaml:"engine"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"

	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"` // default: ["*"]
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Enabled launches headless Chrome for JavaScript-rendered pages.
	Enabled bool `yaml:"enabled"` // default: false

	Headless bool `yaml:"headless"` // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int `yaml:"max_pages"` // default: 5

	Proxy string `yaml:"proxy"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"`

	// Bin overrides the Chromium binary path.
	Bin string `yaml:"bin"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"` // default: 10s
	MaxTimeout     time.Duration `yaml:"max_timeout"`     // default: 120s

	MaxRetries           uint64        `yaml:"max_retries"`            // default: 2
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"` // default: 250ms
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`     // default: 2s

	MaxBodyBytes int64  `yaml:"max_body_bytes"` // default: 10 MiB
	UserAgent    string `yaml:"user_agent"`

	// BlockedResourceTypes lists browser resource types never loaded.
	// Markup is all the audit reads, so images need not be downloaded.
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for http, rod, rod-stealth.
	EscalationDelays []time.Duration `yaml:"escalation_delays"` // default: [0s, 2s, 5s]

	// DomainMemoryTTL is how long a winning engine is remembered per host.
	DomainMemoryTTL time.Duration `yaml:"domain_memory_ttl"` // default: 24h
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`             // default: true
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 2
	Burst             int     `yaml:"burst"`               // default: 5
}

// WebhookConfig controls outgoing audit notifications.
type WebhookConfig struct {
	// Secret signs payloads with HMAC-SHA256. Empty disables signing.
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"` // default: 10s
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`   // default: true
	Namespace string `yaml:"namespace"` // default: "seoaudit"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "release",
			CORSOrigins: []string{"*"},
		},
		Browser: BrowserConfig{
			Headless: true,
			MaxPages: 5,
		},
		Fetch: FetchConfig{
			DefaultTimeout:       10 * time.Second,
			MaxTimeout:           120 * time.Second,
			MaxRetries:           2,
			RetryInitialInterval: 250 * time.Millisecond,
			RetryMaxInterval:     2 * time.Second,
			MaxBodyBytes:         10 << 20,
			BlockedResourceTypes: []string{"Image", "Stylesheet", "Font", "Media"},
		},
		Engine: EngineConfig{
			EscalationDelays: []time.Duration{0, 2 * time.Second, 5 * time.Second},
			DomainMemoryTTL:  24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "seoaudit",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// SEOAUDIT_CONFIG (if set), then SEOAUDIT_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(EnvPrefix + "CONFIG"))
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("HOST", c.Server.Host)
	c.Server.Port = envIntOr("PORT", c.Server.Port)
	c.Server.Mode = envOr("MODE", c.Server.Mode)
	c.Server.CORSOrigins = envSliceOr("CORS_ORIGINS", c.Server.CORSOrigins)

	c.Browser.Enabled = envBoolOr("BROWSER_ENABLED", c.Browser.Enabled)
	c.Browser.Headless = envBoolOr("HEADLESS", c.Browser.Headless)
	c.Browser.MaxPages = envIntOr("MAX_PAGES", c.Browser.MaxPages)
	c.Browser.Proxy = envOr("PROXY", c.Browser.Proxy)
	c.Browser.NoSandbox = envBoolOr("NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.Bin = envOr("BROWSER_BIN", c.Browser.Bin)

	c.Fetch.DefaultTimeout = envDurationOr("DEFAULT_TIMEOUT", c.Fetch.DefaultTimeout)
	c.Fetch.MaxTimeout = envDurationOr("MAX_TIMEOUT", c.Fetch.MaxTimeout)
	c.Fetch.MaxRetries = uint64(envIntOr("MAX_RETRIES", int(c.Fetch.MaxRetries)))
	c.Fetch.RetryInitialInterval = envDurationOr("RETRY_INITIAL_INTERVAL", c.Fetch.RetryInitialInterval)
	c.Fetch.RetryMaxInterval = envDurationOr("RETRY_MAX_INTERVAL", c.Fetch.RetryMaxInterval)
	c.Fetch.MaxBodyBytes = int64(envIntOr("MAX_BODY_BYTES", int(c.Fetch.MaxBodyBytes)))
	c.Fetch.UserAgent = envOr("USER_AGENT", c.Fetch.UserAgent)
	c.Fetch.BlockedResourceTypes = envSliceOr("BLOCKED_RESOURCES", c.Fetch.BlockedResourceTypes)

	c.Engine.EscalationDelays = envDurationSliceOr("ESCALATION_DELAYS", c.Engine.EscalationDelays)
	c.Engine.DomainMemoryTTL = envDurationOr("DOMAIN_MEMORY_TTL", c.Engine.DomainMemoryTTL)

	c.RateLimit.Enabled = envBoolOr("RATE_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerSecond = envFloatOr("RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("RATE_BURST", c.RateLimit.Burst)

	c.Webhook.Secret = envOr("WEBHOOK_SECRET", c.Webhook.Secret)
	c.Webhook.Timeout = envDurationOr("WEBHOOK_TIMEOUT", c.Webhook.Timeout)

	c.Metrics.Enabled = envBoolOr("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Namespace = envOr("METRICS_NAMESPACE", c.Metrics.Namespace)

	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("LOG_FORMAT", c.Log.Format)
}

// Validate reports settings that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Fetch.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("fetch.default_timeout must be positive"))
	}
	if c.Fetch.MaxTimeout < c.Fetch.DefaultTimeout {
		errs = append(errs, errors.New("fetch.max_timeout must not be below fetch.default_timeout"))
	}
	if c.Browser.Enabled && c.Browser.MaxPages < 1 {
		errs = append(errs, errors.New("browser.max_pages must be at least 1"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("rate_limit requires positive requests_per_second and burst"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return splitList(v)
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	var result []time.Duration
	for _, p := range splitList(v) {
		if d, err := time.ParseDuration(p); err == nil {
			result = append(result, d)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
