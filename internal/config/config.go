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
	HTTPAddr    string

	LogLevel          string
	LogFormat         string
	OTLPEndpoint      string
	OTLPProtocol      string
	OtelEnabled       bool
	OtelSamplingRatio float64

	// AdminKey guards the administrative routes. An empty value rejects every admin request.
	AdminKey                    string
	APIKeyPrefix                string
	PlatformCreateRequiresAdmin bool
	StrictDecrement             bool
	PlanCatalogPath             string
	SnowflakeNode               int64

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
	DBAutoMigrate     bool
	// DBMigrations selects how the schema is created: "auto" runs gorm
	// AutoMigrate, "versioned" applies the embedded SQL migrations (postgres only).
	DBMigrations string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds the per-platform request rate on the score endpoint.
// Quota accounting is separate and lives in the plan tracker.
type RateLimitConfig struct {
	Enabled    bool
	ScoreRate  float64
	ScoreBurst int
}

type SchedulerConfig struct {
	Enabled   bool
	ResetSpec string
	LockTTL   time.Duration
	Timeout   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:                     getenv("APP_SERVICE", "kredible"),
		AppVersion:                  getenv("APP_VERSION", "0.1.0"),
		Environment:                 getenv("ENVIRONMENT", "development"),
		HTTPAddr:                    getenv("HTTP_ADDR", ":3000"),
		LogLevel:                    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:                   strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:                getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:                strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelEnabled:                 getenvBool("OTEL_ENABLED", false),
		OtelSamplingRatio:           getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		AdminKey:                    strings.TrimSpace(getenv("ADMIN_KEY", "")),
		APIKeyPrefix:                getenv("API_KEY_PREFIX", "pk_"),
		PlatformCreateRequiresAdmin: getenvBool("PLATFORM_CREATE_REQUIRES_ADMIN", false),
		StrictDecrement:             getenvBool("PLAN_STRICT_DECREMENT", false),
		PlanCatalogPath:             strings.TrimSpace(getenv("PLAN_CATALOG_PATH", "")),
		SnowflakeNode:               getenvInt64("SNOWFLAKE_NODE", 1),
		DBType:                      strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:                      getenv("DATABASE_HOST", "localhost"),
		DBPort:                      getenv("DATABASE_PORT", "5432"),
		DBName:                      getenv("DATABASE_NAME", "kredible"),
		DBUser:                      getenv("DATABASE_USER", "postgres"),
		DBPassword:                  getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:                   getenv("DATABASE_SSLMODE", "disable"),
		DBPath:                      getenv("DATABASE_PATH", "kredible.db"),
		DBMaxIdleConn:               getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:               getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime:           getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:           getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:               getenvBool("DATABASE_AUTO_MIGRATE", true),
		DBMigrations:                strings.ToLower(getenv("DATABASE_MIGRATIONS", MigrationsAuto)),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getenvBool("RATE_LIMIT_ENABLED", true),
			ScoreRate:  getenvFloat("RATE_LIMIT_SCORE_RATE", 10),
			ScoreBurst: getenvInt("RATE_LIMIT_SCORE_BURST", 20),
		},
		Scheduler: SchedulerConfig{
			Enabled:   getenvBool("SCHEDULER_ENABLED", true),
			ResetSpec: getenv("SCHEDULER_RESET_SPEC", "@monthly"),
			LockTTL:   getenvDuration("SCHEDULER_LOCK_TTL", 5*time.Minute),
			Timeout:   getenvDuration("SCHEDULER_TIMEOUT", 2*time.Minute),
		},
	}

	return cfg
}

const (
	MigrationsAuto      = "auto"
	MigrationsVersioned = "versioned"
)

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
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
