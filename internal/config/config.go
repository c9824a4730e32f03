package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// APP
	AppEnv string
	Port   string

	// Local store
	DBPath string

	// Remote store API
	RemoteBaseURL  string
	ConsumerKey    string
	ConsumerSecret string
	HTTPTimeout    time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Per-entity sync toggles
	SyncProducts  bool
	SyncOrders    bool
	SyncCustomers bool
	SyncInventory bool

	// Scheduling
	SyncInterval   time.Duration // queue drain + reconcile cadence
	ImportInterval time.Duration // coarser catalog/customer import cadence
	ProbeInterval  time.Duration // connectivity probe cadence

	// Queue retry policy
	MaxAttempts int
	RetryWindow time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// App
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8001"),

		// Local store
		DBPath: getEnv("DB_PATH", "possync.db"),

		// Remote store
		RemoteBaseURL:  getEnv("REMOTE_BASE_URL", "https://example.com/wp-json/wc/v3"),
		ConsumerKey:    getEnv("REMOTE_CONSUMER_KEY", ""),
		ConsumerSecret: getEnv("REMOTE_CONSUMER_SECRET", ""),
		HTTPTimeout:    getEnvDuration("REMOTE_TIMEOUT_SECONDS", 20*time.Second, time.Second),
		MaxRetries:     getEnvInt("REMOTE_MAX_RETRIES", 3),
		RetryDelay:     getEnvDuration("REMOTE_RETRY_DELAY_SECONDS", 2*time.Second, time.Second),

		// Toggles
		SyncProducts:  getEnvBool("SYNC_PRODUCTS", true),
		SyncOrders:    getEnvBool("SYNC_ORDERS", true),
		SyncCustomers: getEnvBool("SYNC_CUSTOMERS", true),
		SyncInventory: getEnvBool("SYNC_INVENTORY", true),

		// Scheduling
		SyncInterval:   getEnvDuration("SYNC_INTERVAL_MINUTES", 30*time.Minute, time.Minute),
		ImportInterval: getEnvDuration("IMPORT_INTERVAL_MINUTES", 360*time.Minute, time.Minute),
		ProbeInterval:  getEnvDuration("PROBE_INTERVAL_SECONDS", 30*time.Second, time.Second),

		// Queue retry policy
		MaxAttempts: getEnvInt("SYNC_MAX_ATTEMPTS", 3),
		RetryWindow: getEnvDuration("SYNC_RETRY_WINDOW_HOURS", 24*time.Hour, time.Hour),
	}

	return cfg, nil
}

// getEnv returns environment variable or default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns int from env or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns bool from env or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration reads a scalar env value counted in the given unit.
func getEnvDuration(key string, defaultValue time.Duration, unit time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return defaultValue
}
