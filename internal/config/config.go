// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Strings for identifiers and
// secrets, ints/durations for knobs.
type Config struct {
	Env            string        // application environment (dev/test/prod)
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	SessionTTL     time.Duration // lifetime of an opaque session token
	BcryptCost     int           // bcrypt cost for teacher/admin passwords
	ResetSecret    string        // HMAC secret for password-reset tokens
	ResetTTL       time.Duration // lifetime of a password-reset token
	WhisperURL     string        // speech service base URL; empty = analysis unavailable
	AudioDir       string        // directory for stored recordings
	MigrationsPath string        // source for golang-migrate (file://... URL)
}

// Load reads configuration from environment variables. Required variables
// are enforced by must() and missing values cause a fatal exit.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		SessionTTL:     dur("SESSION_TTL", 7*24*time.Hour),
		BcryptCost:     num("BCRYPT_COST", 12),
		ResetSecret:    must("RESET_TOKEN_SECRET"),
		ResetTTL:       dur("RESET_TOKEN_TTL", 30*time.Minute),
		WhisperURL:     os.Getenv("WHISPER_API_URL"),
		AudioDir:       getenv("AUDIO_DIR", "uploads"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "file://internal/database/migrations"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func num(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
