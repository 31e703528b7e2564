// Package config loads this service's environment-driven configuration.
// Grounded on the teacher's internal/config/config.go: the same
// getEnv/getEnvAsInt/getEnvAsDuration helper trio over godotenv, and the
// same load-then-validate shape.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// RateLimitBackend selects which RateLimitStore implementation is wired
// at startup. Per spec §6 this isn't its own setting: presence of both
// VALKEY_HOST and VALKEY_PORT selects the cluster KV backend, otherwise
// the document-store backend is used.
type RateLimitBackend string

const (
	BackendFirestore RateLimitBackend = "firestore"
	BackendRedis     RateLimitBackend = "redis"
)

// Config holds this service's configuration loaded from the environment.
type Config struct {
	AppName  string
	LogLevel string
	HTTPPort string

	MaxNotificationsPerDay int64
	Region                 string
	Debug                  bool

	RateLimitBackend RateLimitBackend

	ValkeyHost string
	ValkeyPort string

	FirestoreProjectID        string
	FirestoreCredentialsFile  string
	FirestoreCollectionName   string

	FCMProjectID        string
	FCMCredentialsFile  string

	QuirksConfigPath string

	AuditDatabaseURL string
	AuditQueueURL    string

	StartupDialTimeout time.Duration
}

// Load loads configuration from the environment (via an optional .env
// file, teacher-style) and validates the backend selector.
func Load() (*Config, error) {
	_ = godotenv.Load()

	valkeyHost := getEnv("VALKEY_HOST", "")
	valkeyPort := getEnv("VALKEY_PORT", "")

	backend := BackendFirestore
	if valkeyHost != "" && valkeyPort != "" {
		backend = BackendRedis
	}

	cfg := &Config{
		AppName:  getEnv("APP_NAME", "mobile-apps-fcm-push"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnv("PORT", "8080"),

		MaxNotificationsPerDay: int64(getEnvAsInt("MAX_NOTIFICATIONS_PER_DAY", 500)),
		Region:                 getEnv("REGION", "us-central1"),
		Debug:                  getEnvAsBool("DEBUG", false),

		RateLimitBackend: backend,

		ValkeyHost: valkeyHost,
		ValkeyPort: valkeyPort,

		FirestoreProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCredentialsFile: getEnv("FIRESTORE_CREDENTIALS_FILE", ""),
		FirestoreCollectionName:  getEnv("FIRESTORE_COLLECTION", "rateLimits"),

		FCMProjectID:       getEnv("FCM_PROJECT_ID", ""),
		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),

		QuirksConfigPath: getEnv("QUIRKS_CONFIG_PATH", ""),

		AuditDatabaseURL: getEnv("AUDIT_DATABASE_URL", ""),
		AuditQueueURL:    getEnv("AUDIT_QUEUE_URL", ""),

		StartupDialTimeout: getEnvAsDuration("STARTUP_DIAL_TIMEOUT", 2*time.Second),
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	if c.RateLimitBackend == BackendFirestore && c.FirestoreProjectID == "" {
		missing = append(missing, "FIRESTORE_PROJECT_ID")
	}

	if c.FCMProjectID == "" {
		missing = append(missing, "FCM_PROJECT_ID")
	}
	if c.FCMCredentialsFile == "" {
		missing = append(missing, "FCM_CREDENTIALS_FILE")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %v", missing)
	}
	return nil
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid int for %s, using default %d: %v", key, def, err)
			return def
		}
		return i
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid bool for %s, using default %t: %v", key, def, err)
			return def
		}
		return b
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid duration for %s, using default %s: %v", key, def, err)
			return def
		}
		return d
	}
	return def
}
