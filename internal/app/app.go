package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/api"
	"github.com/irocky-stack/rjbtranz/internal/api/middleware"
	"github.com/irocky-stack/rjbtranz/internal/config"
	"github.com/irocky-stack/rjbtranz/internal/db"
	"github.com/irocky-stack/rjbtranz/internal/fees"
	"github.com/irocky-stack/rjbtranz/internal/identifier"
	"github.com/irocky-stack/rjbtranz/internal/idempotency"
	"github.com/irocky-stack/rjbtranz/internal/lifecycle"
	"github.com/irocky-stack/rjbtranz/internal/notify"
	"github.com/irocky-stack/rjbtranz/internal/observability"
	"github.com/irocky-stack/rjbtranz/internal/rates"
	"github.com/irocky-stack/rjbtranz/internal/receipt"
	"github.com/irocky-stack/rjbtranz/internal/store"
	"github.com/irocky-stack/rjbtranz/internal/wizard"
	"github.com/irocky-stack/rjbtranz/internal/worker"
)

// Run bootstraps the console API and rate worker, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The store is Postgres when a database is configured, in-memory
	// otherwise. The in-memory store keeps the console usable standalone.
	var txStore store.TransactionStore
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		pgStore := store.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		txStore = pgStore
		logger.Info("using postgres transaction store")
	} else {
		txStore = store.NewMemoryStore()
		logger.Info("using in-memory transaction store")
	}

	// redisCmd stays a nil interface when Redis is not configured; the
	// idempotency store and readiness probe treat that as absent.
	var redisCmd redis.Cmdable
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		redisCmd = redisClient
	}
	idemStore := idempotency.NewStore(redisCmd, cfg.IdempotencyTTL)

	table := rates.NewTable()
	resolver := rates.NewResolver(table, cfg.ReferenceCurrency, cfg.RateMarkup)
	feed := rates.NewMockFeed()
	rateWorker := worker.NewRateWorker(feed, table).WithInterval(cfg.RateRefreshInterval)
	stopWorker := rateWorker.Run(ctx)
	logger.Info("rate worker started", zap.Duration("interval", cfg.RateRefreshInterval))

	feeCalc := fees.NewCalculator(cfg.ReferenceCurrency)
	ids := identifier.NewGenerator(cfg.BrandPrefix, txStore)
	notifier := notify.NewAsync(notify.NewLogNotifier())
	printer := receipt.NewTextPrinter(cfg.BrandPrefix)
	lc := lifecycle.NewService(txStore, notifier, printer).
		WithAutoPrint(cfg.AutoPrintReceipts).
		WithStagger(cfg.CompleteStagger)

	wizardCfg := wizard.Config{
		ReferenceCurrency: cfg.ReferenceCurrency,
		ViewedCountry:     cfg.ViewedCountry,
		FeeRate:           cfg.FeeRate,
		PendingWindow:     cfg.PendingWindow,
		SecuringDelay:     cfg.SecuringDelay,
	}
	sessions := wizard.NewManager(func() *wizard.Wizard {
		return wizard.New(wizardCfg, txStore, resolver, feeCalc, ids, notifier)
	})

	router := api.NewRouter(cfg, logger, pool, redisCmd, idemStore, txStore, table, resolver, lc, sessions)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping rate worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
