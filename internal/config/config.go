package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"freshcart/internal/model"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	S3          S3Config
	ServiceArea ServiceAreaConfig
	Checkout    CheckoutConfig
	Payment     PaymentConfig
	Notify      NotifyConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for reference data files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "service-areas/")
}

// ServiceAreaConfig lists service-area seed files imported at startup.
type ServiceAreaConfig struct {
	SeedFiles []string
}

// CheckoutConfig holds order placement policy.
type CheckoutConfig struct {
	Currency              string
	FreeDeliveryThreshold model.Money // zero disables free delivery by subtotal
	PendingOrderTTL       time.Duration
	GatewayTimeout        time.Duration
	ReclaimInterval       time.Duration
	ReclaimBatchSize      int
}

// PaymentConfig selects and configures the online payment gateway.
type PaymentConfig struct {
	Provider            string // "stripe" or "sandbox"
	StripeAPIKey        string
	StripeWebhookSecret string
	SandboxSecret       string
	SuccessURL          string
	CancelURL           string
}

// NotifyConfig selects where order events are delivered.
type NotifyConfig struct {
	Provider   string // "log" or "pubsub"
	ProjectID  string
	TopicID    string
	BufferSize int
}

// Load loads configuration from environment variables. Values from an
// optional dotenv file (ENV_FILE, default ".env") fill variables that are
// not already set.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	threshold, err := getEnvAsMoney("FREE_DELIVERY_THRESHOLD", 49900)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "freshcart"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "ap-south-1"),
			Prefix:  getEnv("S3_PREFIX", "service-areas/"),
		},
		ServiceArea: ServiceAreaConfig{
			SeedFiles: getEnvAsList("SERVICE_AREA_FILES", nil),
		},
		Checkout: CheckoutConfig{
			Currency:              strings.ToUpper(getEnv("CURRENCY", "INR")),
			FreeDeliveryThreshold: threshold,
			PendingOrderTTL:       getEnvAsDuration("PENDING_ORDER_TTL", 30*time.Minute),
			GatewayTimeout:        getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),
			ReclaimInterval:       getEnvAsDuration("RECLAIM_INTERVAL", time.Minute),
			ReclaimBatchSize:      getEnvAsInt("RECLAIM_BATCH_SIZE", 100),
		},
		Payment: PaymentConfig{
			Provider:            getEnv("PAYMENT_PROVIDER", "sandbox"),
			StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SandboxSecret:       getEnv("PAYMENT_SANDBOX_SECRET", ""),
			SuccessURL:          getEnv("PAYMENT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
			CancelURL:           getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
		},
		Notify: NotifyConfig{
			Provider:   getEnv("NOTIFY_PROVIDER", "log"),
			ProjectID:  getEnv("PUBSUB_PROJECT_ID", ""),
			TopicID:    getEnv("PUBSUB_TOPIC_ID", "order-events"),
			BufferSize: getEnvAsInt("NOTIFY_BUFFER_SIZE", 256),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if len(c.Checkout.Currency) != 3 {
		return fmt.Errorf("invalid currency: %q (must be an ISO 4217 code)", c.Checkout.Currency)
	}

	if c.Checkout.FreeDeliveryThreshold < 0 {
		return fmt.Errorf("free delivery threshold cannot be negative")
	}

	if c.Checkout.PendingOrderTTL <= 0 {
		return fmt.Errorf("pending order TTL must be positive")
	}

	if c.Checkout.GatewayTimeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}

	if c.Checkout.GatewayTimeout >= c.Checkout.PendingOrderTTL {
		return fmt.Errorf("gateway timeout must be shorter than the pending order TTL")
	}

	if c.Checkout.ReclaimInterval <= 0 {
		return fmt.Errorf("reclaim interval must be positive")
	}

	if c.Checkout.ReclaimBatchSize < 1 {
		return fmt.Errorf("reclaim batch size must be at least 1")
	}

	switch c.Payment.Provider {
	case "stripe":
		if c.Payment.StripeAPIKey == "" {
			return fmt.Errorf("Stripe API key is required when the stripe provider is selected")
		}
		if c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("Stripe webhook secret is required when the stripe provider is selected")
		}
	case "sandbox":
		if c.Payment.SandboxSecret == "" {
			return fmt.Errorf("sandbox secret is required when the sandbox provider is selected")
		}
	default:
		return fmt.Errorf("invalid payment provider: %s (must be stripe or sandbox)", c.Payment.Provider)
	}

	switch c.Notify.Provider {
	case "log":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("Pub/Sub project and topic are required when the pubsub provider is selected")
		}
	default:
		return fmt.Errorf("invalid notify provider: %s (must be log or pubsub)", c.Notify.Provider)
	}

	if c.Notify.BufferSize < 1 {
		return fmt.Errorf("notify buffer size must be at least 1")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration (e.g. "15m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsMoney parses a major-unit amount such as "499.00". Unlike the other
// helpers a malformed value is an error, since silently falling back would
// change prices.
func getEnvAsMoney(key string, defaultValue model.Money) (model.Money, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	m, err := model.ParseMoney(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return m, nil
}
