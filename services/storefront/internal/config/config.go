package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	pkgconfig "github.com/utafrali/jewelrycommerce/pkg/config"
	"github.com/utafrali/jewelrycommerce/pkg/database"
	"github.com/utafrali/jewelrycommerce/pkg/httpclient"
)

// Session store backends.
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	pkgconfig.Base

	// Medusa store API
	MedusaBackendURL     string        `env:"MEDUSA_BACKEND_URL" envDefault:"http://localhost:9000"`
	MedusaPublishableKey string        `env:"MEDUSA_PUBLISHABLE_KEY"`
	MedusaTimeout        time.Duration `env:"MEDUSA_TIMEOUT" envDefault:"15s"`
	MedusaMaxRetries     int           `env:"MEDUSA_MAX_RETRIES" envDefault:"2"`
	MedusaRetryWaitMin   time.Duration `env:"MEDUSA_RETRY_WAIT_MIN" envDefault:"200ms"`
	MedusaRetryWaitMax   time.Duration `env:"MEDUSA_RETRY_WAIT_MAX" envDefault:"2s"`
	MedusaMaxConns       int           `env:"MEDUSA_MAX_CONNS" envDefault:"64"`

	// Circuit breaker around the Medusa transport
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`

	// Sessions
	SessionStore        string        `env:"SESSION_STORE" envDefault:"redis"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionIdleTimeout  time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	RegionCacheTTL      time.Duration `env:"REGION_CACHE_TTL" envDefault:"5m"`

	// Redis
	RedisURL      string `env:"REDIS_URL"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka; event forwarding is disabled when empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Rate limits per client IP
	RateLimitEnabled  bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitAPI      int  `env:"RATE_LIMIT_API" envDefault:"100"`
	RateLimitRegister int  `env:"RATE_LIMIT_REGISTER" envDefault:"5"`
	RateLimitLogin    int  `env:"RATE_LIMIT_LOGIN" envDefault:"10"`
	RateLimitCheckout int  `env:"RATE_LIMIT_CHECKOUT" envDefault:"3"`

	// Peers allowed to set X-Forwarded-For / X-Real-IP.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "storefront"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	u, err := url.Parse(c.MedusaBackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("MEDUSA_BACKEND_URL must be an absolute http(s) URL, got %q", c.MedusaBackendURL)
	}
	if c.MedusaMaxRetries < 0 {
		return fmt.Errorf("MEDUSA_MAX_RETRIES must not be negative, got %d", c.MedusaMaxRetries)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %v", c.CBFailureRatio)
	}
	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreRedis, SessionStoreMemory, c.SessionStore)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative, got %s", c.SessionTTL)
	}
	for name, v := range map[string]int{
		"RATE_LIMIT_API":      c.RateLimitAPI,
		"RATE_LIMIT_REGISTER": c.RateLimitRegister,
		"RATE_LIMIT_LOGIN":    c.RateLimitLogin,
		"RATE_LIMIT_CHECKOUT": c.RateLimitCheckout,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

// HTTPClient returns the Medusa transport settings.
func (c *Config) HTTPClient() httpclient.Config {
	return httpclient.Config{
		Timeout:         c.MedusaTimeout,
		MaxRetries:      c.MedusaMaxRetries,
		RetryWaitMin:    c.MedusaRetryWaitMin,
		RetryWaitMax:    c.MedusaRetryWaitMax,
		MaxConnsPerHost: c.MedusaMaxConns,
	}
}

// CircuitBreaker returns the breaker settings for the Medusa transport.
func (c *Config) CircuitBreaker() httpclient.CircuitBreakerConfig {
	cb := httpclient.DefaultCircuitBreakerConfig("medusa")
	cb.FailureRatio = c.CBFailureRatio
	cb.MinRequests = c.CBMinRequests
	cb.Timeout = c.CBTimeout
	cb.Interval = c.CBInterval
	return cb
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.URL = c.RedisURL
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	if host, port, err := net.SplitHostPort(c.RedisAddr); err == nil {
		rc.Host = host
		if p, err := strconv.Atoi(port); err == nil {
			rc.Port = p
		}
	}
	return rc
}
