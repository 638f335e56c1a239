// Package config provides application configuration loaded from environment
// variables. This is part of the platform layer and contains no business logic.
//
// Modules depend on the narrow per-concern interfaces rather than the full
// Config struct, so each module only sees the settings it actually uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Per-Concern Interfaces
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT signing settings.
type JWTConfig interface {
	GetJWTAccessSecret() string
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides HTTP server settings.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides SMTP delivery settings for the notification channel.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// BillingConfig provides the billing engine's rates and retry policy.
// Fee rates are expressed in basis points and keyed by invoice kind, so a
// fee change never requires touching the payment code paths.
type BillingConfig interface {
	GetUpfrontRateBps() int
	GetPlatformFeeBps(invoiceKind string) int
	GetOnHoldRetryDelay() time.Duration
	GetOnHoldMaxRetries() int
	GetServiceAPIKeyHash() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	JWTAccessSecret   string
	AccessTokenTTL    time.Duration
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool
	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	EmailEnabled      bool
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	UpfrontRateBps    int
	PlatformFeeBps    map[string]int
	DefaultFeeBps     int
	OnHoldRetryDelay  time.Duration
	OnHoldMaxRetries  int
	ServiceAPIKeyHash string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string       { return c.JWTAccessSecret }
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool      { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string   { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// BillingConfig implementation
func (c *Config) GetUpfrontRateBps() int { return c.UpfrontRateBps }

func (c *Config) GetPlatformFeeBps(invoiceKind string) int {
	if bps, ok := c.PlatformFeeBps[invoiceKind]; ok {
		return bps
	}
	return c.DefaultFeeBps
}

func (c *Config) GetOnHoldRetryDelay() time.Duration { return c.OnHoldRetryDelay }
func (c *Config) GetOnHoldMaxRetries() int           { return c.OnHoldMaxRetries }
func (c *Config) GetServiceAPIKeyHash() string       { return c.ServiceAPIKeyHash }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", ""))
	corsAllowAll := containsWildcard(corsOrigins) || strings.EqualFold(getEnv("CORS_ALLOW_ALL", ""), "true")

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:   mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		EmailEnabled:     emailEnabled,
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "GigPortal"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		UpfrontRateBps:   mustInt(getEnv("BILLING_UPFRONT_RATE_BPS", "1200")),
		PlatformFeeBps: map[string]int{
			"upfront":        mustInt(getEnv("BILLING_FEE_UPFRONT_BPS", "250")),
			"manual":         mustInt(getEnv("BILLING_FEE_MANUAL_BPS", "500")),
			"final":          mustInt(getEnv("BILLING_FEE_FINAL_BPS", "500")),
			"auto_milestone": mustInt(getEnv("BILLING_FEE_MILESTONE_BPS", "500")),
		},
		DefaultFeeBps:     mustInt(getEnv("BILLING_FEE_DEFAULT_BPS", "500")),
		OnHoldRetryDelay:  mustDuration(getEnv("BILLING_ONHOLD_RETRY_DELAY", "30m")),
		OnHoldMaxRetries:  mustInt(getEnv("BILLING_ONHOLD_MAX_RETRIES", "3")),
		ServiceAPIKeyHash: getEnv("SERVICE_API_KEY_HASH", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.UpfrontRateBps <= 0 || cfg.UpfrontRateBps >= 10000 {
		return nil, fmt.Errorf("BILLING_UPFRONT_RATE_BPS must be between 1 and 9999")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
