package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultTokenSecret signs tokens when TOKEN_SECRET is unset. It is only
// accepted with the sqlite backend.
const DefaultTokenSecret = "dev-insecure-secret"

var ErrDefaultTokenSecret = errors.New("TOKEN_SECRET must be set when DB_TYPE is not sqlite")

// Config holds application configuration
type Config struct {
	ServerPort      string        `env:"PORT" env-default:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	DatabaseType    string        `env:"DB_TYPE" env-default:"sqlite"`
	DatabasePath    string        `env:"DB_PATH" env-default:"./familytasks.db"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" env-default:"./migrations"`
	SessionDuration time.Duration `env:"SESSION_DURATION" env-default:"24h"`

	// Bearer tokens
	TokenSecret string `env:"TOKEN_SECRET" env-default:"dev-insecure-secret"`
	TokenIssuer string `env:"TOKEN_ISSUER" env-default:"familytasks"`

	// Browser clients
	FrontendURL          string   `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	AllowedOrigins       []string `env:"ALLOWED_ORIGINS" env-separator:","`
	OAuthRedirectBaseURL string   `env:"OAUTH_REDIRECT_BASE_URL" env-default:"http://localhost:8080"`

	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`

	// Email notifications via SES; disabled when SESFromEmail is empty
	AWSRegion    string `env:"AWS_REGION" env-default:"us-east-1"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" env-default:"Family Tasks"`
	EmailDebug   bool   `env:"EMAIL_DEBUG" env-default:"false"`

	// Login and signup rate limit per client IP
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" env-default:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m"`

	// Proxies (IPs or CIDRs) whose X-Forwarded-For and X-Real-IP headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:","`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

// UsesDefaultTokenSecret reports whether tokens would be signed with DefaultTokenSecret
func (c *Config) UsesDefaultTokenSecret() bool {
	return c.TokenSecret == "" || c.TokenSecret == DefaultTokenSecret
}

// ValidateServer checks the settings the HTTP server refuses to start without
func (c *Config) ValidateServer() error {
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
		return nil
	}
	if c.UsesDefaultTokenSecret() {
		return ErrDefaultTokenSecret
	}
	return nil
}

// Usage returns a description of every supported environment variable
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}
