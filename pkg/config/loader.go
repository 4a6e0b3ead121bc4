package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Base holds settings every service shares. Embed it in a service Config.
type Base struct {
	ServiceName string `env:"SERVICE_NAME"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:"," envDefault:"127.0.0.1/32,::1/128"`
	CORSOrigins       []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Validate checks the shared settings.
func (b Base) Validate() error {
	if b.HTTPPort <= 0 || b.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", b.HTTPPort)
	}
	if b.OTELSampleRate < 0 || b.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", b.OTELSampleRate)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (b Base) IsProduction() bool {
	return b.Environment == "production"
}

// Load parses environment variables into cfg, which must be a pointer to a
// struct tagged with `env`. A non-empty prefix is prepended to every variable
// name, so "CATALOG_" turns HTTP_PORT into CATALOG_HTTP_PORT.
func Load(cfg any, prefix ...string) error {
	opts := env.Options{}
	if len(prefix) > 0 {
		opts.Prefix = prefix[0]
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
