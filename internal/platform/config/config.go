package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StoreDriver    string
	StoreTimeout   time.Duration
	MigrationsPath string
	DBMaxConns     int32

	JWTSecret string
	JWTIssuer string

	// Account templates
	AccountTemplatesPath string
	WatchTemplates       bool

	// Accounting policy
	CurrencyScale           int32
	DepreciationMaxFraction decimal.Decimal
	DepreciationDefaultRate decimal.Decimal
	DepreciationRates       map[string]decimal.Decimal
	ReconciliationEpsilon   decimal.Decimal

	// HTTP edge
	RateLimit          string
	CORSAllowedOrigins []string

	// Observability
	PostHogAPIKey string
	OTelEnabled   bool
	OTelEndpoint  string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("STORE_TIMEOUT", "5s")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "fleet-ledger")
	viper.SetDefault("ACCOUNT_TEMPLATES_PATH", "")
	viper.SetDefault("WATCH_TEMPLATES", false)
	viper.SetDefault("CURRENCY_SCALE", 3)
	viper.SetDefault("DEPRECIATION_MAX_FRACTION", "0.80")
	viper.SetDefault("DEPRECIATION_DEFAULT_RATE", "0.20")
	viper.SetDefault("DEPRECIATION_CATEGORY_RATES", "car=0.20,bus=0.15,truck=0.15,equipment=0.25")
	viper.SetDefault("RECONCILIATION_EPSILON", "0.001")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("OTEL_ENABLED", false)
	viper.SetDefault("OTEL_ENDPOINT", "http://localhost:4318")

	// Environment variables override defaults and .env values.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.StoreDriver = strings.ToLower(viper.GetString("STORE_DRIVER"))
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" && cfg.StoreDriver == StoreDriverPostgres {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	storeTimeoutStr := viper.GetString("STORE_TIMEOUT")
	storeTimeout, err := time.ParseDuration(storeTimeoutStr)
	if err != nil || storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
		log.Printf("Warning: Invalid value for STORE_TIMEOUT ('%s'). Defaulting to %s.\n", storeTimeoutStr, storeTimeout)
	}

	// Load JWT Secret
	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	scale := viper.GetInt32("CURRENCY_SCALE")
	if scale < 0 || scale > 8 {
		return nil, fmt.Errorf("CURRENCY_SCALE must be between 0 and 8, got %d", scale)
	}

	maxFraction, err := parseFraction("DEPRECIATION_MAX_FRACTION")
	if err != nil {
		return nil, err
	}
	defaultRate, err := parseFraction("DEPRECIATION_DEFAULT_RATE")
	if err != nil {
		return nil, err
	}
	rates, err := ParseCategoryRates(viper.GetString("DEPRECIATION_CATEGORY_RATES"))
	if err != nil {
		return nil, err
	}
	epsilon, err := decimal.NewFromString(viper.GetString("RECONCILIATION_EPSILON"))
	if err != nil || epsilon.IsNegative() {
		return nil, fmt.Errorf("invalid RECONCILIATION_EPSILON %q", viper.GetString("RECONCILIATION_EPSILON"))
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.StoreTimeout = storeTimeout
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.DBMaxConns = viper.GetInt32("DB_MAX_CONNS")
	cfg.JWTSecret = jwtSecret
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.AccountTemplatesPath = viper.GetString("ACCOUNT_TEMPLATES_PATH")
	cfg.WatchTemplates = viper.GetBool("WATCH_TEMPLATES")
	cfg.CurrencyScale = scale
	cfg.DepreciationMaxFraction = maxFraction
	cfg.DepreciationDefaultRate = defaultRate
	cfg.DepreciationRates = rates
	cfg.ReconciliationEpsilon = epsilon
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.PostHogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.OTelEnabled = viper.GetBool("OTEL_ENABLED")
	cfg.OTelEndpoint = viper.GetString("OTEL_ENDPOINT")

	if cfg.WatchTemplates && cfg.AccountTemplatesPath == "" {
		log.Println("Warning: WATCH_TEMPLATES set without ACCOUNT_TEMPLATES_PATH; built-in templates cannot be watched.")
	}

	return cfg, nil
}

// DepreciationPolicy builds the accrual policy from the loaded settings.
func (c *Config) DepreciationPolicy() domain.DepreciationPolicy {
	return domain.DepreciationPolicy{
		DefaultRate:   c.DepreciationDefaultRate,
		CategoryRates: c.DepreciationRates,
		MaxFraction:   c.DepreciationMaxFraction,
		Scale:         c.CurrencyScale,
	}
}

// ParseCategoryRates parses "bus=0.15,truck=0.15" into a rate map.
func ParseCategoryRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range splitList(raw) {
		category, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid DEPRECIATION_CATEGORY_RATES entry %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("invalid depreciation rate %q for category %q", value, category)
		}
		rates[strings.TrimSpace(category)] = rate
	}
	return rates, nil
}

func parseFraction(key string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(viper.GetString(key))
	if err != nil || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be a fraction between 0 and 1, got %q", key, viper.GetString(key))
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
