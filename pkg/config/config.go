package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

// Storage backend selectors
const (
	StorageDB   = "db"
	StorageFile = "file"
)

// Relational drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds all application configuration
type Config struct {
	Env      string `env:"HBNB_ENV" envDefault:"development"`
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTEL     OTELConfig
	CORS     CORSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `env:"HBNB_API_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"HBNB_API_PORT" envDefault:"5000"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Type     string `env:"HBNB_TYPE_STORAGE" envDefault:"file"`
	FilePath string `env:"HBNB_FILE_PATH" envDefault:"file.json"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `env:"HBNB_DB_DRIVER" envDefault:"postgres"`
	Host     string `env:"HBNB_MYSQL_HOST" envDefault:"localhost"`
	Port     int    `env:"HBNB_MYSQL_PORT" envDefault:"5432"`
	User     string `env:"HBNB_MYSQL_USER" envDefault:"hbnb_dev"`
	Password string `env:"HBNB_MYSQL_PWD"`
	Database string `env:"HBNB_MYSQL_DB" envDefault:"hbnb_dev_db"`
	SSLMode  string `env:"HBNB_DB_SSLMODE" envDefault:"disable"`
	Path     string `env:"HBNB_DB_PATH" envDefault:"hbnb.db"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"hbnb-api"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION" envDefault:"1.0.0"`
	Endpoint       string `env:"OTEL_ENDPOINT"`
	Enabled        bool   `env:"OTEL_ENABLED" envDefault:"false"`
}

// CORSConfig holds the allowed origins for cross-origin requests
type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, apperrors.NewConfigurationError("failed to parse environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks selector values that env parsing cannot
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageDB, StorageFile:
	default:
		return apperrors.NewConfigurationError(
			fmt.Sprintf("unknown storage type %q (want %q or %q)", c.Storage.Type, StorageDB, StorageFile), nil)
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return apperrors.NewConfigurationError(
			fmt.Sprintf("unknown database driver %q", c.Database.Driver), nil)
	}

	if c.Storage.Type == StorageFile && c.Storage.FilePath == "" {
		return apperrors.NewConfigurationError("HBNB_FILE_PATH must not be empty", nil)
	}

	return nil
}

// IsTest reports whether the process runs in the test environment
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

// DSN returns the driver-specific connection string
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
