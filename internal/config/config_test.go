package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearJWTEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"JWT_SECRET", "JWT_ISS", "JWT_AUD", "JWT_EXPIRY", "ENVIRONMENT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func validConfig() *Config {
	return &Config{
		JWTSecret:   "fieldserve-signing-key-with-enough-length",
		JWTIssuer:   "fieldserve-api",
		JWTAudience: "fieldserve-api",
		JWTExpiry:   8 * time.Hour,
	}
}

func TestLoadDefaults(t *testing.T) {
	clearJWTEnv(t)

	cfg := Load()

	assert.Equal(t, "fieldserve-api", cfg.JWTIssuer)
	assert.Equal(t, "fieldserve-api", cfg.JWTAudience)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-signing-key-with-enough-length-123456")
	t.Setenv("JWT_ISS", "fieldserve-staging")
	t.Setenv("JWT_AUD", "fieldserve-clients")
	t.Setenv("JWT_EXPIRY", "45m")

	cfg := Load()

	assert.Equal(t, "env-signing-key-with-enough-length-123456", cfg.JWTSecret)
	assert.Equal(t, "fieldserve-staging", cfg.JWTIssuer)
	assert.Equal(t, "fieldserve-clients", cfg.JWTAudience)
	assert.Equal(t, 45*time.Minute, cfg.JWTExpiry)
}

func TestLoadIgnoresUnparseableExpiry(t *testing.T) {
	clearJWTEnv(t)
	t.Setenv("JWT_EXPIRY", "three days")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.JWTSecret = "tooshort" },
			wantErr: "at least 32",
		},
		{
			name:    "empty issuer",
			mutate:  func(c *Config) { c.JWTIssuer = "" },
			wantErr: "JWT_ISS",
		},
		{
			name:    "empty audience",
			mutate:  func(c *Config) { c.JWTAudience = "" },
			wantErr: "JWT_AUD",
		},
		{
			name:    "zero expiry",
			mutate:  func(c *Config) { c.JWTExpiry = 0 },
			wantErr: "at least 1 minute",
		},
		{
			name:    "negative expiry",
			mutate:  func(c *Config) { c.JWTExpiry = -time.Hour },
			wantErr: "at least 1 minute",
		},
		{
			name:    "sub-minute expiry",
			mutate:  func(c *Config) { c.JWTExpiry = 20 * time.Second },
			wantErr: "at least 1 minute",
		},
		{
			name:    "expiry beyond 30 days",
			mutate:  func(c *Config) { c.JWTExpiry = 45 * 24 * time.Hour },
			wantErr: "30 days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearJWTEnv(t)
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	clearJWTEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load() // default placeholder secret
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "rotated-production-key-with-enough-length"
	assert.NoError(t, cfg.Validate())
}

func TestLoadAndValidate(t *testing.T) {
	clearJWTEnv(t)
	t.Setenv("JWT_SECRET", "fieldserve-signing-key-with-enough-length")

	cfg, err := LoadAndValidate()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Setenv("JWT_SECRET", "tooshort")
	_, err = LoadAndValidate()
	assert.Error(t, err)
}
