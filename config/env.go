package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file if one exists next to the binary. Missing
// files are not an error; the environment simply stays as-is.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// EnvString returns the value of key and whether it was set.
func EnvString(key string) (string, bool) {
	return os.LookupEnv(key)
}

// EnvInt parses key as an integer. The second return reports presence.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean. The second return reports presence.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a time.Duration ("30s", "2m").
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}
