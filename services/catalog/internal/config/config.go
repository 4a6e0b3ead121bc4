package config

import (
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/utafrali/jewelrycommerce/pkg/config"
	"github.com/utafrali/jewelrycommerce/pkg/database"
)

// EnvPrefix is prepended to every catalog variable, shared ones included.
const EnvPrefix = "CATALOG_"

// DefaultHTTPPort keeps the catalog off the storefront's port.
const DefaultHTTPPort = 8081

// Storage backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all configuration for the catalog service.
type Config struct {
	pkgconfig.Base

	Store string `env:"STORE" envDefault:"memory"`
	Seed  bool   `env:"SEED" envDefault:"true"`

	// Simulated payment
	PaymentDelay       time.Duration `env:"PAYMENT_DELAY" envDefault:"1500ms"`
	PaymentFailureRate float64       `env:"PAYMENT_FAILURE_RATE" envDefault:"0.05"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"jewelry"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD" envDefault:"jewelry"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns       int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	SlowQuery        time.Duration `env:"LOG_SLOW_QUERY" envDefault:"500ms"`

	// Kafka; events are dropped when empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

// Load reads configuration from CATALOG_-prefixed environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, EnvPrefix); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "catalog"
	}
	if _, ok := os.LookupEnv(EnvPrefix + "HTTP_PORT"); !ok {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("%sPOSTGRES_HOST is required for the postgres store", EnvPrefix)
		}
	default:
		return fmt.Errorf("%sSTORE must be %q or %q, got %q", EnvPrefix, StoreMemory, StorePostgres, c.Store)
	}
	if c.PaymentDelay < 0 {
		return fmt.Errorf("%sPAYMENT_DELAY must not be negative, got %s", EnvPrefix, c.PaymentDelay)
	}
	if c.PaymentFailureRate < 0 || c.PaymentFailureRate > 1 {
		return fmt.Errorf("%sPAYMENT_FAILURE_RATE must be between 0 and 1, got %v", EnvPrefix, c.PaymentFailureRate)
	}
	return nil
}

// Postgres returns the pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	pc := database.DefaultPostgresConfig()
	pc.Host = c.PostgresHost
	pc.Port = c.PostgresPort
	pc.User = c.PostgresUser
	pc.Password = c.PostgresPassword
	pc.DBName = c.PostgresDB
	pc.SSLMode = c.PostgresSSLMode
	pc.MaxConns = c.DBMaxConns
	pc.MinConns = c.DBMinConns
	return &pc
}
