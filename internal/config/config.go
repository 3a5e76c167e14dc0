// Package config loads runtime settings from the environment, an optional
// .env file and built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds runtime settings.
type Config struct {
	Env             string
	AppPort         string
	LogLevel        slog.Level
	StoreDriver     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	DatabaseDSN     string
	ConnectTimeout  time.Duration
	RabbitMQURL     string // Empty disables user events
	UserEventsQueue string
	PasswordHashing string
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "poo2db")
	v.SetDefault("MONGO_COLLECTION", "users")
	v.SetDefault("DATABASE_DSN", "file:userbook.db")
	v.SetDefault("CONNECT_TIMEOUT", 10*time.Second)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("USER_EVENTS_QUEUE", "user_events")
	v.SetDefault("PASSWORD_HASHING", "plain")
}

// Load reads .env (if present) into the process environment, then builds a
// Config from environment variables over the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:             v.GetString("ENV"),
		AppPort:         v.GetString("APP_PORT"),
		StoreDriver:     strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		MongoCollection: v.GetString("MONGO_COLLECTION"),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		ConnectTimeout:  v.GetDuration("CONNECT_TIMEOUT"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		UserEventsQueue: v.GetString("USER_EVENTS_QUEUE"),
		PasswordHashing: strings.ToLower(v.GetString("PASSWORD_HASHING")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.StoreDriver {
	case DriverMongo, DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("CONNECT_TIMEOUT must be positive, got %s", cfg.ConnectTimeout)
	}
	return cfg, nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
