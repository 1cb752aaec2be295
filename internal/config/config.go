package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the server configuration, read from the environment.
type Config struct {
	// Environment
	Environment string
	Port        string
	BaseURL     string // Public URL, used for OAuth callbacks

	// Database (optional). Users, OAuth links and conversion history live here.
	DatabaseURL string

	// Auth
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// AWS
	AWSRegion string
	S3Bucket  string // Bucket for the s3 storage backend and the s3 cloud provider
	S3Prefix  string

	// Storage for persisted conversions
	// - "memory", "file", "sqlite", "postgres" or "s3"
	StorageBackend  string
	StoragePath     string
	StorageCompress bool

	// Local folder exposed as the "local" cloud provider (optional)
	LocalImportDir string

	// Conversion defaults
	RecoveryMode  string
	DefaultFormat string
	MaxInputBytes int64

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	// - "jwt": Bearer tokens issued by /api/auth
	AuthMode string
}

func Load() *Config {
	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Port:               getEnv("PORT", "8080"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:  getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:  getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:       getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:    getEnv("LANGFUSE_ENABLED", "false") == "true",
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", "memory")),
		StoragePath:        getEnv("STORAGE_PATH", "data"),
		StorageCompress:    getEnv("STORAGE_COMPRESS", "false") == "true",
		LocalImportDir:     getEnv("LOCAL_IMPORT_DIR", ""),
		RecoveryMode:       strings.ToLower(getEnv("RECOVERY_MODE", "moderate")),
		DefaultFormat:      getEnv("DEFAULT_FORMAT", "bracket"),
		MaxInputBytes:      getEnvInt("MAX_INPUT_BYTES", 1<<20),
		AuthMode:           getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// IsGatewayMode returns true if running behind an auth gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsJWTMode returns true if the API issues and checks its own tokens
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}

// HasDatabase reports whether a database is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
