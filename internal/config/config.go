package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Attempt store backends.
const (
	AttemptStoreMemory = "memory"
	AttemptStoreRedis  = "redis"
)

// Ways the chatbot picks among equivalent canned replies.
const (
	ReplyVariantsHash   = "hash"
	ReplyVariantsRandom = "random"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string

	// Database
	DatabaseURL string

	// Redis (sessions and shared attempt counters); empty disables it
	RedisURL string

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Session
	SessionSecret  string // Used for encrypting cookies (32 bytes, base64)
	SessionMaxIdle time.Duration

	// CORS
	CORSOrigins string // Comma-separated allowed origins, e.g. "https://example.com,https://app.example.com"

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      string // "none", "tls" or "starttls"

	// Inbox that receives escalation and contact-support alerts
	ChatbotEmail string

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json or console

	// Storefront
	BusinessTimezone string // IANA zone business hours are expressed in
	CurrencySymbol   string
	MediaURL         string
	MediaDir         string
	BrandName        string

	// Chatbot
	AttemptStore     string        // memory or redis
	AttemptTTL       time.Duration // redis key expiry for failed-attempt counters
	SettingsCacheTTL time.Duration
	JanitorInterval  time.Duration
	SeedFile         string  // YAML seed data applied at startup; empty skips seeding
	ReplyVariants    string  // hash (same message, same reply) or random
	FAQThreshold     float64 // minimum FAQ match score
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func Load() *Config {
	_ = loadDotEnv(getEnv("ENV_FILE", ".env"))

	return &Config{
		Env:              getEnv("ENV", "development"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost:5432/riverway?sslmode=disable"),
		RedisURL:         getEnv("REDIS_URL", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		SessionSecret:    getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		SessionMaxIdle:   getDuration("SESSION_MAX_IDLE", 2*time.Hour),
		CORSOrigins:      getEnv("CORS_ORIGINS", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@riverway.example"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Riverway Company"),
		SMTPTLS:      strings.ToLower(getEnv("SMTP_TLS", "starttls")),
		ChatbotEmail: getEnv("CHATBOT_EMAIL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "Africa/Accra"),
		CurrencySymbol:   getEnv("CURRENCY_SYMBOL", "₵"),
		MediaURL:         getEnv("MEDIA_URL", "/media/"),
		MediaDir:         getEnv("MEDIA_DIR", "./media"),
		BrandName:        getEnv("BRAND_NAME", "Riverway Company"),

		AttemptStore:     strings.ToLower(getEnv("ATTEMPT_STORE", AttemptStoreMemory)),
		AttemptTTL:       getDuration("ATTEMPT_TTL", 2*time.Hour),
		SettingsCacheTTL: getDuration("SETTINGS_CACHE_TTL", time.Minute),
		JanitorInterval:  getDuration("JANITOR_INTERVAL", 10*time.Minute),
		SeedFile:         getEnv("SEED_FILE", ""),
		ReplyVariants:    strings.ToLower(getEnv("CHATBOT_VARIANTS", ReplyVariantsHash)),
		FAQThreshold:     getFloat("FAQ_THRESHOLD", 0.7),
	}
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// getFloat returns fallback unless the variable holds a positive number.
func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return fallback
}

// getDuration accepts Go duration strings ("90s", "2h") or a bare number of
// seconds. Zero and negative values fall back.
func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d <= 0 {
			return fallback
		}
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Location returns the business time zone, falling back to the server's
// local zone when the name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// UseRedisAttempts reports whether failed-attempt counters live in Redis.
func (c *Config) UseRedisAttempts() bool {
	return c.AttemptStore == AttemptStoreRedis && c.RedisURL != ""
}

// RandomReplyVariants reports whether canned replies are picked at random
// rather than by hashing the message.
func (c *Config) RandomReplyVariants() bool {
	return c.ReplyVariants == ReplyVariantsRandom
}

// IsEmailEnabled reports whether outbound email is configured.
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}
