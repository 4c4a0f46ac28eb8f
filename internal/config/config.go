// Package config reads configuration from the process environment with
// fallback defaults. Dotenv loading happens in main, not here.
package config

import (
	"os"
	"strconv"
	"time"
)

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt parses the environment value as an integer, falling back on unset,
// empty, or malformed values.
func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetDuration parses the environment value with time.ParseDuration, falling
// back on unset, empty, or malformed values.
func GetDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
