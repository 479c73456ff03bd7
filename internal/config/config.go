package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration for the pipeline. Values are
// sourced from environment variables once at process start and passed by
// reference into every component; nothing reads the environment after Load.
type Config struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	// TomTomAPIKey authenticates both the flow and routing endpoints.
	TomTomAPIKey string

	// GoogleMapsAPIKey is only needed by the geocode-venues command.
	GoogleMapsAPIKey string

	ListenAddr string

	// IngestKey is the bearer token the external event scraper must present
	// when POSTing event batches. If empty, ingest is disabled.
	IngestKey string

	// BaselineMaxCalls caps vendor API calls per baseline run. Venues left
	// over once the cap is hit wait for the next scheduled slot.
	BaselineMaxCalls int

	// EventMaxCalls caps vendor API calls per event-collection run.
	EventMaxCalls int

	// CallPause is the courtesy delay between consecutive vendor calls.
	CallPause time.Duration
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		DBHost:           getenv("DB_HOST", "localhost"),
		DBPort:           getenv("DB_PORT", "5432"),
		DBName:           os.Getenv("DB_NAME"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		TomTomAPIKey:     os.Getenv("TOMTOM_API_KEY"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		ListenAddr:       getenv("APP_LISTEN_ADDR", ":8080"),
		IngestKey:        os.Getenv("APP_INGEST_KEY"),
		BaselineMaxCalls: 1000,
		EventMaxCalls:    50,
		CallPause:        200 * time.Millisecond,
	}

	if v := os.Getenv("BASELINE_MAX_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BaselineMaxCalls = n
		}
	}
	if v := os.Getenv("EVENT_MAX_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EventMaxCalls = n
		}
	}
	if v := os.Getenv("CALL_PAUSE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.CallPause = time.Duration(n) * time.Millisecond
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
