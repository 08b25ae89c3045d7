// Package config loads service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rohan/flashdeck/internal/llm"
)

// Config is the service configuration.
type Config struct {
	// Env is "production" or "development". Controls log output format.
	Env string

	// HTTPAddr is the listen address of the API server.
	HTTPAddr string

	// DatabaseDSN selects the database: a postgres:// URL or a SQLite
	// file path.
	DatabaseDSN string

	// JWTSecret verifies access tokens from the auth service. Required in
	// production; generated per process in development when unset.
	JWTSecret string

	// JWTSecretGenerated is set when JWTSecret was generated rather than
	// configured, so serve can surface it for local token signing.
	JWTSecretGenerated bool

	// CORSOrigins are the allowed browser origins, comma-separated in
	// the environment.
	CORSOrigins []string

	LLM llm.Config
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:         getenv("FLASHDECK_ENV", "development"),
		HTTPAddr:    getenv("FLASHDECK_HTTP_ADDR", ":8080"),
		DatabaseDSN: getenv("FLASHDECK_DATABASE_DSN", "flashdeck.db"),
		JWTSecret:   os.Getenv("FLASHDECK_JWT_SECRET"),
		LLM:         llm.ConfigFromEnv(),
	}

	origins := getenv("FLASHDECK_CORS_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return Config{}, fmt.Errorf("FLASHDECK_JWT_SECRET is required in production")
		}
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generate development JWT secret: %w", err)
		}
		cfg.JWTSecret = secret
		cfg.JWTSecretGenerated = true
	}

	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
