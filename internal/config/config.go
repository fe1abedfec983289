// Package config reads process configuration from environment variables,
// with a fallback default for each key.
package config

import (
	"os"
	"strconv"
	"time"
)

// GetString returns the value of the environment variable key, or fallback
// if it is unset.
func GetString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// GetInt returns the integer value of the environment variable key, or
// fallback if it is unset or unparseable.
func GetInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetDuration returns the duration value of the environment variable key
// (parsed via time.ParseDuration, e.g. "500ms", "1h"), or fallback if it is
// unset or unparseable.
func GetDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
