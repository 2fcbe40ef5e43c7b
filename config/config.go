package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func load() {
	loadOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println(".env file not found, reading from system environment variables")
		}
	})
}

// Config returns the value of an environment variable, loading .env on first use.
func Config(key string) string {
	load()
	return os.Getenv(key)
}

// ConfigDefault returns the variable or fallback when it is unset or blank.
func ConfigDefault(key, fallback string) string {
	if v := strings.TrimSpace(Config(key)); v != "" {
		return v
	}
	return fallback
}

func ConfigInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(Config(key)))
	if err != nil {
		return fallback
	}
	return v
}

func ConfigBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(Config(key)))
	if err != nil {
		return fallback
	}
	return v
}

// ConfigDuration accepts Go durations ("10s") or a bare number of seconds.
func ConfigDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(Config(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
