package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, populated from environment variables.
type Config struct {
	Port string

	TrafficAPIURL string
	TrafficAPIKey string
	OSRMBaseURL   string

	// DatabaseURL selects Postgres when set; SQLitePath selects SQLite
	// otherwise. With neither set the server runs on an in-memory store.
	DatabaseURL string
	SQLitePath  string

	UpdateInterval       time.Duration
	HistoryRetentionDays int

	// RoutesFile points to an optional JSON file of routes to register
	// at startup.
	RoutesFile string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		TrafficAPIURL:        getEnv("TRAFFIC_API_URL", "https://openapi.its.go.kr:9443/trafficInfo"),
		TrafficAPIKey:        getEnv("TRAFFIC_API_KEY", ""),
		OSRMBaseURL:          getEnv("OSRM_BASE_URL", "http://localhost:5000"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SQLitePath:           getEnv("SQLITE_PATH", ""),
		UpdateInterval:       time.Duration(getEnvInt("UPDATE_INTERVAL_MINUTES", 30)) * time.Minute,
		HistoryRetentionDays: getEnvInt("ROUTE_HISTORY_DAYS", 7),
		RoutesFile:           getEnv("ROUTES_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
