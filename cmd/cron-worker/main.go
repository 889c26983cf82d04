package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mnhidayatgani/chatbot-sub000/internal/cron"
	"github.com/mnhidayatgani/chatbot-sub000/internal/inventory"
	"github.com/mnhidayatgani/chatbot-sub000/internal/ratelimit"
	"github.com/mnhidayatgani/chatbot-sub000/internal/reminder"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/internal/stock"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/metrics"
	pkgredis "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/transport"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	sessionStorage, err := session.NewRedisStorage(redisClient, cfg.Session.TTL())
	if err != nil {
		logg.Error(ctx, "failed to create session storage", err)
		os.Exit(1)
	}
	fallback := session.NewMemoryStorage(cfg.Session.TTL())
	sessions, err := session.NewStore(session.StoreParams{
		Primary:  sessionStorage,
		Fallback: fallback,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session store", err)
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

	sender, err := transport.NewHTTPSender(cfg.Transport)
	if err != nil {
		logg.Error(ctx, "failed to create transport sender", err)
		os.Exit(1)
	}
	markers, err := reminder.NewRedisMarkerStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create reminder markers", err)
		os.Exit(1)
	}
	scheduler, err := reminder.NewScheduler(reminder.SchedulerParams{
		Sessions:  sessions,
		Markers:   markers,
		Transport: sender,
		Logger:    logg,
		Config:    cfg.Reminder,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reminder scheduler", err)
		os.Exit(1)
	}

	reminderJob, err := cron.NewReminderJob(scheduler)
	if err != nil {
		logg.Error(ctx, "failed to create reminder job", err)
		os.Exit(1)
	}
	reconcileJob, err := cron.NewStockReconcileJob(cron.StockReconcileJobParams{
		Logger: logg,
		Ledger: ledger,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stock reconcile job", err)
		os.Exit(1)
	}
	// Sweeps this process's own in-memory fallback, which only fills
	// while the session backend is down. The api server runs its own
	// sweeper for its fallback; Redis sessions expire via TTL.
	sessionSweepJob, err := cron.NewSessionSweepJob(cron.SessionSweepJobParams{
		Logger:  logg,
		Sweeper: fallback,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session sweep job", err)
		os.Exit(1)
	}

	windowStore, err := ratelimit.NewRedisWindowStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create rate limit store", err)
		os.Exit(1)
	}
	rateLimitSweepJob, err := cron.NewRateLimitSweepJob(cron.RateLimitSweepJobParams{
		Logger:  logg,
		Sweeper: windowStore,
	})
	if err != nil {
		logg.Error(ctx, "failed to create rate limit sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(reminderJob, reconcileJob, rateLimitSweepJob, sessionSweepJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockKey(client *pkgredis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey(fmt.Sprintf("cron-worker:%s", env))
}
