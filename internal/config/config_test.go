package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan/flashdeck/internal/auth"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "flashdeck.db", cfg.DatabaseDSN)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 256, cfg.LLM.CacheSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLASHDECK_HTTP_ADDR", ":9000")
	t.Setenv("FLASHDECK_DATABASE_DSN", "postgres://localhost/flashdeck")
	t.Setenv("FLASHDECK_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("FLASHDECK_LLM_PROVIDER", "anthropic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://localhost/flashdeck", cfg.DatabaseDSN)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoad_DevelopmentGeneratesJWTSecret(t *testing.T) {
	t.Setenv("FLASHDECK_ENV", "development")
	t.Setenv("FLASHDECK_JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.JWTSecretGenerated)

	// The generated secret must be a valid verifier key.
	_, err = auth.NewVerifier(cfg.JWTSecret)
	assert.NoError(t, err)

	t.Setenv("FLASHDECK_JWT_SECRET", "configured-secret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "configured-secret", cfg.JWTSecret)
	assert.False(t, cfg.JWTSecretGenerated)
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("FLASHDECK_ENV", "production")
	t.Setenv("FLASHDECK_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("FLASHDECK_JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
}
