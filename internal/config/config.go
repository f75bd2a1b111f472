package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string

	// Formula fetches may only target these hostnames.
	FetchAllowedHosts []string
	FetchTimeout      time.Duration
}

func Load() *Config {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "lattice"),
		DBPassword:        getEnv("DB_PASSWORD", "lattice_dev_password"),
		DBName:            getEnv("DB_NAME", "lattice"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		FetchAllowedHosts: splitHosts(getEnv("FETCH_ALLOWED_HOSTS", "")),
		FetchTimeout:      getDuration("FETCH_TIMEOUT_SECONDS", 3),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getDuration(key string, fallbackSeconds int) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallbackSeconds) * time.Second
}

func splitHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
