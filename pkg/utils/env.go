package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv retrieves the value of the environment variable named by the key.
// If the variable is not present or its value is empty, Getenv returns the fallback string.
func Getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// GetenvList splits a comma separated variable, dropping empty entries.
func GetenvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func GetenvBool(key string, fallback bool) (bool, error) {
	return parseEnv(key, fallback, strconv.ParseBool)
}

func GetenvInt(key string, fallback int) (int, error) {
	return parseEnv(key, fallback, strconv.Atoi)
}

func GetenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	return parseEnv(key, fallback, time.ParseDuration)
}

func parseEnv[T any](key string, fallback T, parse func(string) (T, error)) (T, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
