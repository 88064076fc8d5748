package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	Sale      SaleConfig
	Auth      AuthConfig
	Reporting ReportingConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port    string
	AppName string
}

// StoreConfig selects the single backing store.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds the GORM connection settings.
type PostgresConfig struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	TimeZone string
	LogLevel string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SaleConfig bounds the sale transaction retry loop.
type SaleConfig struct {
	MaxAttempts  int
	TxTimeout    time.Duration
	RetryBackoff time.Duration
}

// AuthConfig enables bearer token verification when Secret is set.
type AuthConfig struct {
	Secret string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	Location     *time.Location
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getenvWithDefault("APP_PORT", "3000"),
			AppName: getenvWithDefault("APP_NAME", "UMKM Inventory POS v1.0"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", DriverPostgres),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getenvWithDefault("DB_PORT", "5432"),
			TimeZone: getenvWithDefault("TIMEZONE", "Asia/Jakarta"),
			LogLevel: getenvWithDefault("DB_LOG_LEVEL", "warn"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "umkm_inventory"),
		},
		Auth: AuthConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Jakarta"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Sale.MaxAttempts, err = getenvInt("SALE_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.Sale.TxTimeout, err = getenvDuration("SALE_TX_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Sale.RetryBackoff, err = getenvDuration("SALE_RETRY_BACKOFF", 25*time.Millisecond); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.URL == "" && (c.Postgres.Host == "" || c.Postgres.Name == "") {
			return errors.New("DATABASE_URL or DB_HOST and DB_NAME must be provided for the postgres driver")
		}
	case DriverMongo:
		if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
			return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not one of postgres, mongo, memory", c.Store.Driver)
	}

	if c.Sale.MaxAttempts < 1 {
		return errors.New("SALE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sale.TxTimeout <= 0 {
		return errors.New("SALE_TX_TIMEOUT must be positive")
	}
	if c.Sale.RetryBackoff < 0 {
		return errors.New("SALE_RETRY_BACKOFF must not be negative")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}
	c.Reporting.Location = loc

	return nil
}

// PostgresDSN returns DATABASE_URL or builds a keyword DSN from the parts.
func (c *Config) PostgresDSN() string {
	if c.Postgres.URL != "" {
		return c.Postgres.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.Postgres.Host,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Name,
		c.Postgres.Port,
		c.Postgres.TimeZone,
	)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 10s: %w", key, err)
	}
	return d, nil
}
