package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DataPath    string
	LogLevel    string
	Environment string

	// Notification pipeline
	AlertPolicy            string
	AlertQueueBufferSize   string
	SubscriptionBufferSize string
	MaxConsecutiveFailures string
	ReconnectInterval      string

	// Supplier lookup cache
	SupplierCacheTTL             string
	SupplierCacheCleanupInterval string

	// Outbound email
	EmailAPIURL          string
	EmailAPIKey          string
	EmailSenderName      string
	EmailSenderAddress   string
	EmailFallbackAddress string
	EmailTimeout         string
}

// Alert policy values. "every-update" re-alerts on each qualifying product
// update; "crossing" alerts only on the transition into the low-stock band.
const (
	AlertPolicyEveryUpdate = "every-update"
	AlertPolicyCrossing    = "crossing"
)

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() *Config {
	// Load .env file if it exists
	// This will not override existing environment variables
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	config := &Config{
		Port:                         getEnvWithDefault("PORT", "8080"),
		DataPath:                     getEnvWithDefault("DATA_PATH", "data/store_seed.json"),
		LogLevel:                     getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:                  getEnvWithDefault("ENVIRONMENT", "development"),
		AlertPolicy:                  getEnvWithDefault("ALERT_POLICY", AlertPolicyEveryUpdate),
		AlertQueueBufferSize:         getEnvWithDefault("ALERT_QUEUE_BUFFER_SIZE", "100"),
		SubscriptionBufferSize:       getEnvWithDefault("SUBSCRIPTION_BUFFER_SIZE", "100"),
		MaxConsecutiveFailures:       getEnvWithDefault("SUBSCRIPTION_MAX_CONSECUTIVE_FAILURES", "5"),
		ReconnectInterval:            getEnvWithDefault("SUBSCRIPTION_RECONNECT_INTERVAL", "5s"),
		SupplierCacheTTL:             getEnvWithDefault("SUPPLIER_CACHE_TTL", "2m"),
		SupplierCacheCleanupInterval: getEnvWithDefault("SUPPLIER_CACHE_CLEANUP_INTERVAL", "30s"),
		EmailAPIURL:                  getEnvWithDefault("EMAIL_API_URL", "https://api.brevo.com/v3/smtp/email"),
		EmailAPIKey:                  getEnvWithDefault("EMAIL_API_KEY", ""),
		EmailSenderName:              getEnvWithDefault("EMAIL_SENDER_NAME", "Your Store"),
		EmailSenderAddress:           getEnvWithDefault("EMAIL_SENDER_ADDRESS", "bagsuz@app.com"),
		EmailFallbackAddress:         getEnvWithDefault("EMAIL_FALLBACK_ADDRESS", ""),
		EmailTimeout:                 getEnvWithDefault("EMAIL_TIMEOUT", "10s"),
	}

	SetupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"dataPath", config.DataPath,
		"alertPolicy", config.AlertPolicy,
		"alertQueueBufferSize", config.AlertQueueBufferSize,
		"subscriptionBufferSize", config.SubscriptionBufferSize,
		"maxConsecutiveFailures", config.MaxConsecutiveFailures,
		"reconnectInterval", config.ReconnectInterval,
		"supplierCacheTTL", config.SupplierCacheTTL,
		"emailAPIURL", config.EmailAPIURL,
		"emailTimeout", config.EmailTimeout)

	return config
}

// SetupLogging configures the global slog handler based on log level
// This should be called once at application startup to configure logging for the entire application
func SetupLogging(logLevel string) {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Use TextHandler for better readability instead of JSON
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
