package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"civicwatch/internal/category"
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

	// TLS
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string // CA for verifying client certs (mTLS)

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Session
	SessionSecret string // Used for signing cookies (min 32 chars)

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Redis backs sessions and the rate limiter. Empty uses in-memory storage.
	RedisURL string

	RateLimitPerMinute int

	// Image classification
	InferenceURL            string
	InferenceAPIKey         string
	InferenceTimeout        time.Duration
	ClassificationBypass    bool
	ClassificationThreshold category.Thresholds
	MaxImageBytes           int

	// Object storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
	S3PathStyle bool

	// SMTP
	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      string // "none", "tls", "starttls"

	// Email notification toggles
	EmailNotifyUserOnModeration   bool
	EmailNotifyUserOnStatusChange bool
	EmailNotifyAdminsDigest       bool

	// Jobs
	ModerationDigestInterval time.Duration // 0 disables

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	SiteTitle string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:              getEnv("ENV", "development"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost:5432/civicwatch?sslmode=disable"),
		TLSEnabled:       getEnv("TLS_ENABLED", "") != "",
		TLSCertFile:      getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:       getEnv("TLS_KEY_FILE", ""),
		TLSCAFile:        getEnv("TLS_CA_FILE", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		SessionSecret:    getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:      getEnv("CORS_ORIGINS", ""),
		RedisURL:         getEnv("REDIS_URL", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),

		InferenceURL:            getEnv("INFERENCE_URL", "https://api-inference.huggingface.co/models/google/vit-base-patch16-224"),
		InferenceAPIKey:         getEnv("INFERENCE_API_KEY", ""),
		InferenceTimeout:        getEnvDuration("INFERENCE_TIMEOUT", 60*time.Second),
		ClassificationBypass:    getEnvBool("CLASSIFICATION_BYPASS", false),
		ClassificationThreshold: loadThresholds(),
		MaxImageBytes:           getEnvInt("MAX_IMAGE_BYTES", 10<<20),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
		S3PathStyle: getEnvBool("S3_PATH_STYLE", false),

		SMTPEnabled:  getEnvBool("SMTP_ENABLED", false),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "CivicWatch"),
		SMTPTLS:      getEnv("SMTP_TLS", "starttls"),

		EmailNotifyUserOnModeration:   getEnvBool("EMAIL_NOTIFY_USER_ON_MODERATION", true),
		EmailNotifyUserOnStatusChange: getEnvBool("EMAIL_NOTIFY_USER_ON_STATUS_CHANGE", true),
		EmailNotifyAdminsDigest:       getEnvBool("EMAIL_NOTIFY_ADMINS_DIGEST", true),

		ModerationDigestInterval: getEnvDuration("MODERATION_DIGEST_INTERVAL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		SiteTitle: getEnv("SITE_TITLE", "CivicWatch"),
	}
}

// loadThresholds reads the shared and per-category classification threshold
// overrides. Values that are not positive numbers are ignored.
func loadThresholds() category.Thresholds {
	t := category.Thresholds{PerCategory: make(map[string]float64)}
	if v, ok := category.ParseThreshold(os.Getenv("CLASSIFICATION_THRESHOLD")); ok {
		t.Shared = v
	}
	for _, id := range category.IDs() {
		if v, ok := category.ParseThreshold(os.Getenv(ThresholdEnvKey(id))); ok {
			t.PerCategory[id] = v
		}
	}
	return t
}

// ThresholdEnvKey returns the environment variable overriding a category's threshold.
func ThresholdEnvKey(categoryID string) string {
	return "CLASSIFICATION_THRESHOLD_" + strings.ToUpper(categoryID)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsMTLSEnabled returns true if mTLS is configured with a CA file.
func (c *Config) IsMTLSEnabled() bool {
	return c.TLSEnabled && c.TLSCAFile != ""
}

// IsClassificationEnabled returns true when an inference credential is configured.
func (c *Config) IsClassificationEnabled() bool {
	return c.InferenceAPIKey != ""
}

// IsStorageEnabled returns true when an image bucket is configured.
func (c *Config) IsStorageEnabled() bool {
	return c.S3Bucket != ""
}

// IsEmailEnabled returns true when SMTP is switched on and fully addressed.
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPEnabled && c.SMTPHost != "" && c.SMTPFrom != ""
}
