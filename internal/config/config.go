package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr           string
	APIBaseURL         string
	GeocoderBaseURL    string
	GeocoderAPIKey     string
	RequestTimeout     time.Duration
	RefreshInterval    time.Duration
	GeocodeConcurrency int
	SessionFile        string
	RedisAddr          string
	RedisPassword      string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:           getenv("HTTP_ADDR", ":8090"),
		APIBaseURL:         getenv("API_BASE_URL", "http://localhost:5000/api"),
		GeocoderBaseURL:    getenv("GEOCODER_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocoderAPIKey:     getenv("GEOCODER_API_KEY", ""),
		RequestTimeout:     getenvDuration("REQUEST_TIMEOUT", 10*time.Second),
		RefreshInterval:    getenvDuration("REFRESH_INTERVAL", 5*time.Second),
		GeocodeConcurrency: getenvInt("GEOCODE_CONCURRENCY", 4),
		SessionFile:        getenv("SESSION_FILE", "session.json"),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
