package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mnhidayatgani/chatbot-sub000/api/routes"
	"github.com/mnhidayatgani/chatbot-sub000/internal/catalog"
	"github.com/mnhidayatgani/chatbot-sub000/internal/delivery"
	"github.com/mnhidayatgani/chatbot-sub000/internal/engine"
	"github.com/mnhidayatgani/chatbot-sub000/internal/inventory"
	"github.com/mnhidayatgani/chatbot-sub000/internal/payment"
	"github.com/mnhidayatgani/chatbot-sub000/internal/ratelimit"
	"github.com/mnhidayatgani/chatbot-sub000/internal/reminder"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/internal/stock"
	"github.com/mnhidayatgani/chatbot-sub000/internal/webhook"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/gateway"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/metrics"
	pkgredis "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/transport"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if cfg.DB.AutoMigrate {
		if err := dbClient.DB().AutoMigrate(&models.Product{}, &models.FulfilledOrder{}); err != nil {
			logg.Error(ctx, "failed to run auto migration", err)
			os.Exit(1)
		}
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	sessionStorage, err := session.NewRedisStorage(redisClient, cfg.Session.TTL())
	if err != nil {
		logg.Error(ctx, "failed to create session storage", err)
		os.Exit(1)
	}
	sessions, err := session.NewStore(session.StoreParams{
		Primary:  sessionStorage,
		Fallback: session.NewMemoryStorage(cfg.Session.TTL()),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session store", err)
		os.Exit(1)
	}

	invoiceIndex, err := session.NewRedisInvoiceIndex(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create invoice index", err)
		os.Exit(1)
	}

	counters, err := stock.NewRedisCounterStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create stock counters", err)
		os.Exit(1)
	}
	history, err := stock.NewRedisHistoryStore(redisClient, cfg.Stock.HistoryLimit)
	if err != nil {
		logg.Error(ctx, "failed to create stock history", err)
		os.Exit(1)
	}
	vault, err := inventory.NewVault(cfg.Inventory.Dir)
	if err != nil {
		logg.Error(ctx, "failed to open credential vault", err)
		os.Exit(1)
	}
	ledger, err := stock.NewLedger(stock.LedgerParams{
		Counters:  counters,
		History:   history,
		Inventory: vault,
		Logger:    logg,
		Baseline:  cfg.Stock.Baseline,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stock ledger", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	sender, err := transport.NewHTTPSender(cfg.Transport)
	if err != nil {
		logg.Error(ctx, "failed to create transport sender", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(delivery.ServiceParams{
		Vault:  vault,
		Ledger: ledger,
		Audit:  delivery.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create delivery service", err)
		os.Exit(1)
	}

	var gatewayClient payment.GatewayClient
	if cfg.Gateway.BaseURL != "" {
		client, err := gateway.NewClient(cfg.Gateway, logg)
		if err != nil {
			logg.Error(ctx, "failed to create gateway client", err)
			os.Exit(1)
		}
		gatewayClient = client
	} else {
		logg.Warn(ctx, "payment gateway not configured; automatic payments disabled")
	}

	methods, err := payment.NewConfigMethodSource(cfg.Payment)
	if err != nil {
		logg.Error(ctx, "failed to parse payment methods", err)
		os.Exit(1)
	}
	payments, err := payment.NewService(payment.ServiceParams{
		Sessions: sessions,
		Gateway:  gatewayClient,
		Methods:  methods,
		Invoices: invoiceIndex,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payment service", err)
		os.Exit(1)
	}

	markers, err := reminder.NewRedisMarkerStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create reminder markers", err)
		os.Exit(1)
	}

	webhooks, err := webhook.NewService(webhook.ServiceParams{
		Sessions:  sessions,
		Invoices:  invoiceIndex,
		Delivery:  deliveryService,
		Transport: sender,
		Markers:   markers,
		Logger:    logg,
		Metrics:   webhookMetrics,
		Secret:    cfg.Webhook.Token,
		AdminID:   cfg.Transport.AdminID,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook reconciler", err)
		os.Exit(1)
	}
	payments.SetFinalizer(webhooks)

	windowStore, err := ratelimit.NewRedisWindowStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create rate limit store", err)
		os.Exit(1)
	}
	limiter, err := ratelimit.NewLimiter(ratelimit.LimiterParams{
		Store:  windowStore,
		Logger: logg,
		Config: cfg.RateLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create rate limiter", err)
		os.Exit(1)
	}

	lifecycleEngine, err := engine.New(engine.EngineParams{
		Sessions: sessions,
		Limiter:  limiter,
		Catalog:  catalogService,
		Stock:    ledger,
		Payments: payments,
		Notifier: sender,
		AdminID:  cfg.Transport.AdminID,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create lifecycle engine", err)
		os.Exit(1)
	}

	router := routes.New(routes.Params{
		Logger:    logg,
		Config:    cfg,
		Engine:    lifecycleEngine,
		Webhooks:  webhooks,
		Ledger:    ledger,
		Sessions:  sessions,
		Redis:     redisClient,
		DB:        dbClient,
		Registry:  registry,
		StartedAt: time.Now(),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	// Evict idle sessions from this process's in-memory fallback. The
	// fallback only fills while the primary backend is down.
	go sessions.RunFallbackSweeper(runCtx, cfg.Session.TTL())

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}

	logg.Info(runCtx, "api server shutting down gracefully")
}
