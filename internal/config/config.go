// Package config reads service configuration from environment
// variables, with an optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Addr         string // HTTP listen address
	DBPath       string // SQLite file, ":memory:" allowed
	LogLevel     string
	CacheBackend string // "memory" or "redis"
	RedisAddr    string
	RedisPass    string
	RedisDB      int

	// Bulletin ingestion. Sources is a comma-separated list of
	// name=region=url triples; an empty list disables ingestion.
	BulletinSources []BulletinSource
	IngestCronSpec  string
}

// BulletinSource is one configured bulletin endpoint.
type BulletinSource struct {
	Name   string
	Region string
	URL    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("SOKOSCOPE_ADDR", ":8090"),
		DBPath:         getEnv("SOKOSCOPE_DB", "./data/sokoscope.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CacheBackend:   getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvAsInt("REDIS_DB", 0),
		IngestCronSpec: getEnv("INGEST_CRON", "0 6 * * *"),
	}

	sources, err := parseBulletinSources(getEnv("BULLETIN_SOURCES", ""))
	if err != nil {
		return nil, err
	}
	cfg.BulletinSources = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	return nil
}

// parseBulletinSources parses "name=region=url,name=region=url".
func parseBulletinSources(raw string) ([]BulletinSource, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var out []BulletinSource
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("malformed bulletin source %q, want name=region=url", entry)
		}
		out = append(out, BulletinSource{Name: parts[0], Region: parts[1], URL: parts[2]})
	}
	return out, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
