package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config holds the environment-driven settings for the driver client.
type Config struct {
	// IdentityURL is the base URL of the identity service.
	IdentityURL string
	// DeliveryURL is the base URL of the delivery service.
	DeliveryURL string
	// TokenPath is the file holding the persisted bearer token.
	TokenPath string
	// HTTPTimeout caps every gateway call. Calls that exceed it fail
	// visibly rather than hang.
	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for anything unset. It never fails on missing values: the defaults point
// at a local sandbox backend.
func Load() Config {
	return Config{
		IdentityURL: getEnv("IDENTITY_API_URL", "http://localhost:5005"),
		DeliveryURL: getEnv("DELIVERY_API_URL", "http://localhost:5004"),
		TokenPath:   getEnv("TOKEN_PATH", defaultTokenPath()),
		HTTPTimeout: getDuration("HTTP_TIMEOUT", 15*time.Second),
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".driverapp-token"
	}
	return filepath.Join(home, ".driverapp", "token")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}
