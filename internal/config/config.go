package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"shopify-order-tracking/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store drivers accepted in STORE_DRIVER
const (
	StoreMongo    = "mongo"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the process configuration read from the environment
type Config struct {
	Port   string `validate:"required,numeric"`
	AppURL string `validate:"required,url"`

	ShopifyAPIKey     string `validate:"required"`
	ShopifyAPISecret  string `validate:"required"`
	ShopifyScopes     []string
	ShopifyAPIVersion string `validate:"required"`
	ShopifyAppHandle  string `validate:"required"`
	BillingTest       bool

	RecurringPrice decimal.Decimal
	LifetimePrice  decimal.Decimal
	Currency       string `validate:"required,len=3"`
	TrialDays      int    `validate:"gte=0"`

	StoreDriver   string `validate:"oneof=mongo sqlite postgres"`
	MongoURI      string `validate:"required_if=StoreDriver mongo"`
	MongoDatabase string `validate:"required_if=StoreDriver mongo"`
	DatabaseURL   string `validate:"required_if=StoreDriver sqlite,required_if=StoreDriver postgres"`
	RedisURL      string

	EncryptionKey string `validate:"required"`
	LogLevel      zerolog.Level
}

// Load reads the environment, applies defaults and validates the result
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		AppURL:            strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		ShopifyAPIKey:     os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:  os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyScopes:     splitList(getEnv("SHOPIFY_SCOPES", "read_orders")),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-10"),
		ShopifyAppHandle:  getEnv("SHOPIFY_APP_HANDLE", "order-tracking"),
		Currency:          strings.ToUpper(getEnv("BILLING_CURRENCY", "USD")),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "order_tracking"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		EncryptionKey:     os.Getenv("ENCRYPTION_KEY"),
	}

	var err error
	if cfg.BillingTest, err = parseBool("SHOPIFY_BILLING_TEST", false); err != nil {
		return nil, err
	}
	if cfg.RecurringPrice, err = parseDecimal("BILLING_RECURRING_PRICE", "4.99"); err != nil {
		return nil, err
	}
	if cfg.LifetimePrice, err = parseDecimal("BILLING_LIFETIME_PRICE", "49.99"); err != nil {
		return nil, err
	}
	if cfg.TrialDays, err = parseInt("BILLING_TRIAL_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.RecurringPrice.IsPositive() || !cfg.LifetimePrice.IsPositive() {
		return nil, fmt.Errorf("invalid configuration: billing prices must be positive")
	}
	return cfg, nil
}

// Plans returns the price list built from the billing settings
func (c *Config) Plans() map[domain.ChargeType]domain.Plan {
	return map[domain.ChargeType]domain.Plan{
		domain.ChargeTypeRecurring: {
			Type:      domain.ChargeTypeRecurring,
			Name:      "Order Tracking Monthly",
			Price:     c.RecurringPrice,
			Currency:  c.Currency,
			TrialDays: c.TrialDays,
		},
		domain.ChargeTypeLifetime: {
			Type:      domain.ChargeTypeLifetime,
			Name:      "Order Tracking Lifetime",
			Price:     c.LifetimePrice,
			Currency:  c.Currency,
			TrialDays: c.TrialDays,
		},
	}
}

// EnvPresence reports which settings are configured without exposing their values
func (c *Config) EnvPresence() map[string]bool {
	return map[string]bool{
		"SHOPIFY_API_KEY":    c.ShopifyAPIKey != "",
		"SHOPIFY_API_SECRET": c.ShopifyAPISecret != "",
		"APP_URL":            c.AppURL != "",
		"ENCRYPTION_KEY":     c.EncryptionKey != "",
		"DATABASE_URL":       c.DatabaseURL != "",
		"MONGODB_URI":        c.MongoURI != "",
		"REDIS_URL":          c.RedisURL != "",
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDecimal(key, fallback string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
