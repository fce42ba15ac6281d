package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "SESSION_DURATION", "RATE_LIMIT_REQUESTS", "SES_FROM_EMAIL", "TOKEN_SECRET", "TRUSTED_PROXIES"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, 24*time.Hour, cfg.SessionDuration)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.Empty(t, cfg.SESFromEmail)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, DefaultTokenSecret, cfg.TokenSecret)
	assert.True(t, cfg.UsesDefaultTokenSecret())
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUSTED_PROXIES", "127.0.0.1,10.0.0.0/8")
	t.Setenv("TOKEN_SECRET", "s3cret-from-vault")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Hour, cfg.SessionDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.TrustedProxies)
	assert.False(t, cfg.UsesDefaultTokenSecret())
	assert.NoError(t, cfg.ValidateServer())
}

func TestValidateServerRequiresTokenSecretOffSQLite(t *testing.T) {
	tests := []struct {
		dbType  string
		secret  string
		wantErr bool
	}{
		{"sqlite", DefaultTokenSecret, false},
		{"", "", false},
		{"postgres", DefaultTokenSecret, true},
		{"mysql", "", true},
		{"postgres", "s3cret-from-vault", false},
	}
	for _, tt := range tests {
		t.Run(tt.dbType+"/"+tt.secret, func(t *testing.T) {
			cfg := &Config{DatabaseType: tt.dbType, TokenSecret: tt.secret}
			err := cfg.ValidateServer()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDefaultTokenSecret)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
