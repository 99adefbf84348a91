package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// NATS configuration
	NatsURL           string
	NatsSubjectPrefix string
	NatsTimeout       time.Duration

	// Anthropic configuration
	AnthropicAPIKey         string
	AnthropicModel          string
	AnthropicFallbackAPIKey string
	AnthropicFallbackModel  string
	LLMTimeout              time.Duration

	// Backend API configuration
	BackendBaseURL string
	BackendTimeout time.Duration

	// Session storage
	RedisURL   string // "memory" keeps sessions in process
	SessionTTL time.Duration

	// Orchestration
	CatalogPath        string // empty uses the embedded catalogue
	RoutingThreshold   float64
	ContextKeepRecent  int
	AuditStream        string
	AuditSubject       string
	AuditBuffer        int
	AuditStreamMaxLen  int64

	// Service configuration
	ServiceName string
	MetricsAddr string
	LogLevel    string
	LogPretty   bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// NATS settings
		NatsURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NatsSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "officebuddy"),
		NatsTimeout:       getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Anthropic settings
		AnthropicAPIKey:         getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:          getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		AnthropicFallbackAPIKey: getEnv("ANTHROPIC_FALLBACK_API_KEY", ""),
		AnthropicFallbackModel:  getEnv("ANTHROPIC_FALLBACK_MODEL", ""),
		LLMTimeout:              getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		// Backend settings
		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		BackendTimeout: getDurationEnv("BACKEND_TIMEOUT", 15*time.Second),

		// Session settings
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		// Orchestration settings
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		RoutingThreshold:  getFloatEnv("ROUTING_CONFIDENCE_THRESHOLD", 0.7),
		ContextKeepRecent: getIntEnv("CONTEXT_KEEP_RECENT", 6),
		AuditStream:       getEnv("AUDIT_STREAM", "officebuddy:audit"),
		AuditSubject:      getEnv("AUDIT_SUBJECT", ""),
		AuditBuffer:       getIntEnv("AUDIT_BUFFER", 256),
		AuditStreamMaxLen: int64(getIntEnv("AUDIT_STREAM_MAXLEN", 100000)),

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "officebuddy"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPretty:   getBoolEnv("LOG_PRETTY", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.AnthropicAPIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY environment variable is required"))
	}
	if c.RoutingThreshold <= 0 || c.RoutingThreshold > 1 {
		errs = append(errs, fmt.Errorf("ROUTING_CONFIDENCE_THRESHOLD must be in (0, 1], got %v", c.RoutingThreshold))
	}
	if c.ContextKeepRecent < 1 {
		errs = append(errs, fmt.Errorf("CONTEXT_KEEP_RECENT must be positive, got %d", c.ContextKeepRecent))
	}
	if c.NatsSubjectPrefix == "" {
		errs = append(errs, errors.New("NATS_SUBJECT_PREFIX must not be empty"))
	}
	return errors.Join(errs...)
}

// Subject returns the full NATS subject for an endpoint such as "chat"
func (c *Config) Subject(name string) string {
	return strings.TrimSuffix(c.NatsSubjectPrefix, ".") + "." + name
}

// InMemorySessions reports whether sessions stay in process
func (c *Config) InMemorySessions() bool {
	return c.RedisURL == "" || c.RedisURL == "memory"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
