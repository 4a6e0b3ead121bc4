package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/jewelrycommerce/pkg/database"
	"github.com/utafrali/jewelrycommerce/pkg/health"
	"github.com/utafrali/jewelrycommerce/pkg/httpclient"
	pkgkafka "github.com/utafrali/jewelrycommerce/pkg/kafka"
	"github.com/utafrali/jewelrycommerce/pkg/middleware"
	"github.com/utafrali/jewelrycommerce/pkg/tracing"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/config"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/event"
	handler "github.com/utafrali/jewelrycommerce/services/storefront/internal/handler/http"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/medusa"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/session"
	"github.com/utafrali/jewelrycommerce/services/storefront/internal/storefront"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	detach         func()
	sessions       *storefront.Service
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	healthHandler := health.NewHandler()

	// Session store.
	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		redisStore := session.NewRedisStore(rdb, cfg.SessionTTL)
		healthHandler.Register("redis", redisStore.Ping)
		store = redisStore
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
	default:
		store = session.NewMemoryStore(cfg.SessionTTL)
		logger.Warn("using in-memory session store; sessions are lost on restart")
	}

	// Medusa client behind retries and a circuit breaker.
	transport := httpclient.NewCircuitBreakerClient(httpclient.New(cfg.HTTPClient()), cfg.CircuitBreaker(), logger)
	client := medusa.New(medusa.Config{
		BaseURL:        cfg.MedusaBackendURL,
		PublishableKey: cfg.MedusaPublishableKey,
	}, transport, logger)
	healthHandler.RegisterOptional("medusa", client.Ping)

	// Event bus, forwarded to Kafka when brokers are configured.
	bus := event.NewBus(logger)
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.detach = event.NewForwarder(a.producer, logger).Attach(bus)
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	a.sessions = storefront.NewService(client, store, bus, logger,
		storefront.WithRegionCacheTTL(cfg.RegionCacheTTL),
	)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.NewHandler(a.sessions, client, logger), handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		Health:      healthHandler,
		Logger:      logger,
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		CORS:        cors,
		Sessions:    handler.SessionOptions{TTL: cfg.SessionTTL, Secure: cfg.SessionCookieSecure},
		RateLimits:  rateLimits(cfg),

		TrustedProxies: cfg.TrustedProxyCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func rateLimits(cfg *config.Config) handler.RateLimits {
	if !cfg.RateLimitEnabled {
		return handler.RateLimits{}
	}
	limits := handler.DefaultRateLimits()
	limits.API.Requests = cfg.RateLimitAPI
	limits.Register.Requests = cfg.RateLimitRegister
	limits.Login.Requests = cfg.RateLimitLogin
	limits.Checkout.Requests = cfg.RateLimitCheckout
	return limits
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sessions.RunSweeper(sweepCtx, time.Minute, a.cfg.SessionIdleTimeout)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: HTTP server first, then the
// tracer, the Kafka producer and Redis.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.detach != nil {
		a.detach()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
