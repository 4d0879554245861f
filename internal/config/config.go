package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	SeedCatalog      bool
	PricingRulesPath string

	Estimator EstimatorConfig
	Cache     CacheConfig
	Otel      OtelConfig
}

// EstimatorConfig carries the orchestrator defaults applied when user settings omit a value.
type EstimatorConfig struct {
	EngineVersion            string
	DefaultHourlyRate        float64
	DefaultMarkupPercentage  float64
	DefaultTaxRate           float64
	RetailPriceFreshnessDays int
	Workers                  int
	Timeout                  time.Duration
	CacheEstimates           bool
	IncludeSpecifications    bool
}

// RetailPriceFreshness is the window a scraped retail price stays usable.
func (c EstimatorConfig) RetailPriceFreshness() time.Duration {
	return time.Duration(c.RetailPriceFreshnessDays) * 24 * time.Hour
}

type CacheConfig struct {
	Location    TierConfig
	Assembly    TierConfig
	ItemCost    TierConfig
	RetailPrice TierConfig
	Estimate    TierConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Preloaded on start so the first estimates skip the catalog round trips.
	WarmZips       []string
	WarmCategories []string
}

type TierConfig struct {
	TTL     time.Duration
	MaxKeys int
}

type OtelConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "contractorlens"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "contractorlens"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "contractorlens.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		SeedCatalog:      getenvBool("SEED_CATALOG", false),
		PricingRulesPath: strings.TrimSpace(getenv("PRICING_RULES_PATH", "")),

		Estimator: EstimatorConfig{
			EngineVersion:            getenv("ENGINE_VERSION", "2.0"),
			DefaultHourlyRate:        getenvFloat("DEFAULT_HOURLY_RATE", 50),
			DefaultMarkupPercentage:  getenvFloat("DEFAULT_MARKUP_PERCENTAGE", 25),
			DefaultTaxRate:           getenvFloat("DEFAULT_TAX_RATE", 0.08),
			RetailPriceFreshnessDays: getenvInt("RETAIL_PRICE_FRESHNESS_DAYS", 7),
			Workers:                  getenvInt("ESTIMATE_WORKERS", 8),
			Timeout:                  getenvDuration("ESTIMATE_TIMEOUT", 30*time.Second),
			CacheEstimates:           getenvBool("ESTIMATE_CACHE_ENABLED", true),
			IncludeSpecifications:    getenvBool("INCLUDE_SPECIFICATIONS", false),
		},
		Cache: CacheConfig{
			Location: TierConfig{
				TTL:     getenvDuration("CACHE_LOCATION_TTL", time.Hour),
				MaxKeys: getenvInt("CACHE_LOCATION_MAX_KEYS", 1000),
			},
			Assembly: TierConfig{
				TTL:     getenvDuration("CACHE_ASSEMBLY_TTL", 30*time.Minute),
				MaxKeys: getenvInt("CACHE_ASSEMBLY_MAX_KEYS", 500),
			},
			ItemCost: TierConfig{
				TTL:     getenvDuration("CACHE_ITEM_COST_TTL", 15*time.Minute),
				MaxKeys: getenvInt("CACHE_ITEM_COST_MAX_KEYS", 2000),
			},
			RetailPrice: TierConfig{
				TTL:     getenvDuration("CACHE_RETAIL_PRICE_TTL", 5*time.Minute),
				MaxKeys: getenvInt("CACHE_RETAIL_PRICE_MAX_KEYS", 5000),
			},
			Estimate: TierConfig{
				TTL:     getenvDuration("CACHE_ESTIMATE_TTL", 10*time.Minute),
				MaxKeys: getenvInt("CACHE_ESTIMATE_MAX_KEYS", 100),
			},
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),

			WarmZips:       getenvList("CACHE_WARM_ZIPS"),
			WarmCategories: getenvList("CACHE_WARM_CATEGORIES"),
		},
		Otel: OtelConfig{
			Enabled:          getenvBool("OTEL_ENABLED", false),
			ExporterEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			ExporterProtocol: strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// getenvList splits a comma separated value, dropping blanks. Unset yields nil.
func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
