// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// minSessionSecretLength is the shortest HMAC secret accepted for session signing.
const minSessionSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3000"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis): rate limits, refresh tokens, directory lookups
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Session   SessionConfig
	Directory DirectoryConfig
	Hashing   HashingConfig

	// Rate limiting for register/login/refresh, per client IP
	RateLimitAuthEnabled   bool `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthPerMinute int  `env:"RATE_LIMIT_AUTH_PER_MINUTE" envDefault:"20"`
	RateLimitAuthBurst     int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"5"`

	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// SessionConfig configures access and refresh credentials.
type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET,required"`
	Issuer     string        `env:"SESSION_ISSUER" envDefault:"koinonia"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

// DirectoryConfig configures the Planning Center People API client.
type DirectoryConfig struct {
	BaseURL        string        `env:"PCO_BASE_URL,required"`
	Token          string        `env:"PCO_TOKEN,required"`
	Timeout        time.Duration `env:"PCO_TIMEOUT" envDefault:"10s"`
	LookupCacheTTL time.Duration `env:"PCO_LOOKUP_CACHE_TTL" envDefault:"24h"`
}

// HashingConfig holds the Argon2id work factor.
type HashingConfig struct {
	Time    uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Memory  uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Threads uint8  `env:"ARGON2_THREADS" envDefault:"4"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Session.RefreshTTL < c.Session.TTL {
		return errors.New("REFRESH_TTL must not be shorter than SESSION_TTL")
	}
	if c.Directory.Timeout <= 0 {
		return errors.New("PCO_TIMEOUT must be positive")
	}
	if c.Hashing.Time == 0 || c.Hashing.Memory == 0 || c.Hashing.Threads == 0 {
		return errors.New("argon2 parameters must be non-zero")
	}
	return nil
}

// LoadDotEnv loads variables from the given files into the process environment.
// Missing files are ignored; variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
