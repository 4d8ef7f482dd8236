package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// OpenWeatherAPIKey authorizes geocoding, weather, and air-quality calls.
	OpenWeatherAPIKey string

	// GoogleAPIKey switches reverse geocoding to the Google Maps API when set.
	GoogleAPIKey string

	// HTTPTimeout bounds each outbound provider call.
	HTTPTimeout time.Duration

	// DBPath is the SQLite file holding history and favorites.
	DBPath string

	// Region cache bounds.
	RegionCacheTTL     time.Duration
	RegionCacheMax     int
	CacheSweepInterval time.Duration

	// NewsLanguage is the hl value for the headline feed, e.g. "en-US".
	NewsLanguage string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.DBPath = getenvDefault("DB_PATH", "citypulse.db")

	ttlStr := getenvDefault("REGION_CACHE_TTL", "24h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REGION_CACHE_TTL: %w", err)
	}
	cfg.RegionCacheTTL = ttl
	cfg.RegionCacheMax = getenvInt("REGION_CACHE_MAX", 1024)

	sweepStr := getenvDefault("CACHE_SWEEP_INTERVAL", "1h")
	sweep, err := time.ParseDuration(sweepStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SWEEP_INTERVAL: %w", err)
	}
	cfg.CacheSweepInterval = sweep

	cfg.NewsLanguage = getenvDefault("NEWS_LANGUAGE", "en-US")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
