package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/jewelrycommerce/pkg/database"
	"github.com/utafrali/jewelrycommerce/pkg/health"
	pkgkafka "github.com/utafrali/jewelrycommerce/pkg/kafka"
	"github.com/utafrali/jewelrycommerce/pkg/middleware"
	"github.com/utafrali/jewelrycommerce/pkg/tracing"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/config"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/event"
	handler "github.com/utafrali/jewelrycommerce/services/catalog/internal/handler/http"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/payment"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository/memory"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository/postgres"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/service"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	service        *service.CatalogService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	var (
		products repository.ProductRepository
		orders   repository.OrderRepository
	)
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL", slog.String("host", cfg.PostgresHost), slog.String("db", cfg.PostgresDB))

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		healthHandler.Register("postgres", pool.Ping)

		tracer := database.QueryTracer{SlowThreshold: cfg.SlowQuery, Logger: logger}
		products = postgres.NewProductRepository(pool, tracer)
		orders = postgres.NewOrderRepository(pool, tracer)
	default:
		products = memory.NewProductRepository()
		orders = memory.NewOrderRepository()
		logger.Warn("using in-memory catalog store; data is lost on restart")
	}

	var publisher event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	a.service = service.NewCatalogService(
		products,
		orders,
		event.NewProducer(publisher, logger),
		payment.NewSimulator(cfg.PaymentDelay, cfg.PaymentFailureRate),
		logger,
	)
	if cfg.Seed {
		if _, err := a.service.Seed(ctx); err != nil {
			a.closeResources()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.NewCatalogHandler(a.service, logger), handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		Health:      healthHandler,
		Logger:      logger,
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		CORS:        cors,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
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

// Shutdown gracefully stops the HTTP server, then the tracer, Kafka and the
// database pool.
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

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var err error
	if a.producer != nil {
		if err = a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
		a.logger.Info("database pool closed")
	}
	return err
}
