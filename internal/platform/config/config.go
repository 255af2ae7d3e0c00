package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds application configuration.
type Config struct {
	StoreDriver    string
	DatabaseURL    string
	SQLitePath     string
	MigrationsPath string
	Port           string
	IsProduction   bool
	LogLevel       string
	EnableDBCheck  bool
	RateLimit      string // ulule/limiter format, e.g. "100-M"
	CORSOrigins    []string

	RebuildConcurrency  int
	StartupCheckEnabled bool
	StartupCheckTimeout time.Duration
	AccountCheckTimeout time.Duration

	PrecisionOverrides map[string]int32
	ExchangeRates      map[string]decimal.Decimal // "FROM/TO" -> rate
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("SQLITE_PATH", "mma_ledger.db")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations/postgres")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REBUILD_CONCURRENCY", 4)
	v.SetDefault("STARTUP_CHECK_ENABLED", true)
	v.SetDefault("STARTUP_CHECK_TIMEOUT", "2m")
	v.SetDefault("ACCOUNT_CHECK_TIMEOUT", "10s")
	v.SetDefault("CURRENCY_PRECISION_OVERRIDES", "")
	v.SetDefault("EXCHANGE_RATES", "")
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		StoreDriver:         strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:         v.GetString("PGSQL_URL"),
		SQLitePath:          v.GetString("SQLITE_PATH"),
		MigrationsPath:      v.GetString("MIGRATIONS_PATH"),
		Port:                v.GetString("PORT"),
		IsProduction:        v.GetBool("IS_PRODUCTION"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		EnableDBCheck:       v.GetBool("ENABLE_DB_CHECK"),
		RateLimit:           v.GetString("RATE_LIMIT"),
		CORSOrigins:         splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RebuildConcurrency:  v.GetInt("REBUILD_CONCURRENCY"),
		StartupCheckEnabled: v.GetBool("STARTUP_CHECK_ENABLED"),
	}

	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORE_DRIVER is %s", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	if cfg.RebuildConcurrency < 1 {
		log.Printf("Warning: Invalid value for REBUILD_CONCURRENCY (%d). Defaulting to 1.\n", cfg.RebuildConcurrency)
		cfg.RebuildConcurrency = 1
	}

	var err error
	if cfg.StartupCheckTimeout, err = parseDuration(v, "STARTUP_CHECK_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AccountCheckTimeout, err = parseDuration(v, "ACCOUNT_CHECK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PrecisionOverrides, err = ParsePrecisionOverrides(v.GetString("CURRENCY_PRECISION_OVERRIDES")); err != nil {
		return nil, err
	}
	if cfg.ExchangeRates, err = ParseExchangeRates(v.GetString("EXCHANGE_RATES")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s (%q): %w", key, raw, err)
	}
	return d, nil
}

// ParsePrecisionOverrides parses "JPY=0,BTC=8".
func ParsePrecisionOverrides(raw string) (map[string]int32, error) {
	overrides := make(map[string]int32)
	for _, pair := range splitList(raw) {
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid precision override %q, expected CODE=DIGITS", pair)
		}
		p, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
		if err != nil || p < 0 || p > 18 {
			return nil, fmt.Errorf("invalid precision override %q", pair)
		}
		overrides[strings.ToUpper(strings.TrimSpace(code))] = int32(p)
	}
	return overrides, nil
}

// ParseExchangeRates parses "EUR/USD=1.10,GBP/USD=1.27".
func ParseExchangeRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range splitList(raw) {
		key, value, ok := strings.Cut(pair, "=")
		from, to, okPair := strings.Cut(strings.TrimSpace(key), "/")
		if !ok || !okPair || from == "" || to == "" {
			return nil, fmt.Errorf("invalid exchange rate %q, expected FROM/TO=RATE", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid exchange rate %q", pair)
		}
		rates[strings.ToUpper(from)+"/"+strings.ToUpper(to)] = rate
	}
	return rates, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
