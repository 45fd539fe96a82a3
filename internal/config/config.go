// Package config loads service configuration from the environment. Missing
// required values never fail startup; they degrade at the health endpoint and
// error clearly at the point of use.
package config

import (
	"os"
	"strconv"
	"time"
)

// Required environment variable names, in the order health reports them.
var requiredKeys = []string{
	"OPENAI_API_KEY",
	"SINK_WEBHOOK_URL",
	"SHARED_TOKEN",
	"SERVER_API_KEY",
}

// Config holds all service-level settings.
type Config struct {
	Addr        string
	SinkURL     string
	SharedToken string
	APIKey      string // inbound X-API-Key credential
	DBPath      string // optional dispatch journal; empty disables it

	SinkTimeout time.Duration
	PendingTTL  time.Duration
	DedupTTL    time.Duration
}

// Default returns a Config with operational defaults and no credentials.
func Default() Config {
	return Config{
		Addr:        ":8080",
		SinkTimeout: 20 * time.Second,
		PendingTTL:  30 * time.Minute,
		DedupTTL:    time.Hour,
	}
}

// Load reads service configuration from environment variables, falling back
// to defaults for any unset values.
func Load() Config {
	cfg := Default()

	cfg.SinkURL = os.Getenv("SINK_WEBHOOK_URL")
	cfg.SharedToken = os.Getenv("SHARED_TOKEN")
	cfg.APIKey = os.Getenv("SERVER_API_KEY")
	cfg.DBPath = os.Getenv("HASHI_DB")

	if v := os.Getenv("HASHI_ADDR"); v != "" {
		cfg.Addr = v
	}
	applyDurationMsEnv(&cfg.SinkTimeout, "HASHI_SINK_TIMEOUT_MS")
	applyDurationMsEnv(&cfg.PendingTTL, "HASHI_PENDING_TTL_MS")
	applyDurationMsEnv(&cfg.DedupTTL, "HASHI_DEDUP_TTL_MS")

	return cfg
}

// MissingEnv lists required environment variables that are currently unset.
// Used by the health endpoint.
func MissingEnv() []string {
	missing := []string{}
	for _, key := range requiredKeys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func applyDurationMsEnv(d *time.Duration, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return
	}
	*d = time.Duration(n) * time.Millisecond
}
