package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcheckout "github.com/pasar-rakyat/kantin/internal/application/checkout"
	apporder "github.com/pasar-rakyat/kantin/internal/application/order"
	appstats "github.com/pasar-rakyat/kantin/internal/application/stats"
	"github.com/pasar-rakyat/kantin/internal/config"
	domorder "github.com/pasar-rakyat/kantin/internal/domain/order"
	domstock "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/id"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/memory"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/observability/oteltrace"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/observability/prometrics"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/observability/telemetry"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/observability/zaplogger"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/outbox"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/postgres"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/redisstore"
	"github.com/pasar-rakyat/kantin/internal/observability"
	httppresentation "github.com/pasar-rakyat/kantin/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	defer func() {
		if s, ok := logger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	tel := telemetry.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		map[string]observability.Counter{
			observability.MetricCheckoutAttempts: prometrics.NewCounter(registry,
				observability.MetricCheckoutAttempts, "Total checkout attempts by outcome.", "outcome"),
			observability.MetricReservationFailures: prometrics.NewCounter(registry,
				observability.MetricReservationFailures, "Per-line reservation failures by reason.", "reason"),
			observability.MetricCompensations: prometrics.NewCounter(registry,
				observability.MetricCompensations, "Compensating stock restores by mode.", "mode"),
			observability.MetricHTTPRequests: prometrics.NewCounter(registry,
				observability.MetricHTTPRequests, "HTTP requests by method, route, and status.", "method", "route", "status"),
		},
		map[string]observability.Histogram{
			observability.MetricCheckoutDuration: prometrics.NewHistogram(registry,
				observability.MetricCheckoutDuration, "Checkout attempt duration in seconds.", nil),
			observability.MetricHTTPRequestDuration: prometrics.NewHistogram(registry,
				observability.MetricHTTPRequestDuration, "HTTP request duration in seconds.", nil, "method", "route", "status"),
		},
	)

	var redisClient *redis.Client
	if cfg.StockBackend == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
	}

	var stockStore domstock.Store
	var journal domstock.CompensationJournal
	switch cfg.StockBackend {
	case config.BackendRedis:
		stockStore = redisstore.NewStockStore(redisClient)
		journal = redisstore.NewCompensationJournal(redisClient)
	default:
		stockStore = memory.NewStockStore()
		journal = memory.NewCompensationJournal()
	}

	var orderRepo domorder.Repository
	switch cfg.OrderBackend {
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		orderRepo = postgres.NewOrderRepository(db)
	default:
		orderRepo = memory.NewOrderRepository()
	}

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if seeds, err := cfg.SeedCounters(); err != nil {
		log.Fatalf("parse seed stock: %v", err)
	} else {
		for counterID, qty := range seeds {
			if err := stockStore.SetStock(seedCtx, counterID, qty); err != nil {
				log.Fatalf("seed counter %s: %v", counterID, err)
			}
		}
	}
	seedCancel()

	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	idGenerator := id.NewUUIDGenerator()
	recorder := apporder.NewService(orderRepo, idGenerator, tel)
	coordinator := appcheckout.NewCoordinator(
		stockStore, journal, recorder, idGenerator, bus, tel, cfg.ReserveTimeout,
	)

	compensator := appcheckout.NewCompensator(journal, stockStore, bus, tel, cfg.CompensationRetryInterval)
	compensator.Start(context.Background())
	defer compensator.Stop()

	collector := appstats.NewCollector(bus, tel)
	collector.Start()

	handler := httppresentation.NewHandler(coordinator, recorder, stockStore, collector, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("stock_backend", cfg.StockBackend),
			observability.F("order_backend", cfg.OrderBackend),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
}
