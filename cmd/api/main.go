package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/harshverma7/payment-web/internal/api"
	"github.com/harshverma7/payment-web/internal/auth"
	"github.com/harshverma7/payment-web/internal/config"
	"github.com/harshverma7/payment-web/internal/directory"
	"github.com/harshverma7/payment-web/internal/events"
	"github.com/harshverma7/payment-web/internal/ledger"
	"github.com/harshverma7/payment-web/internal/security"
	"github.com/harshverma7/payment-web/pkg/audit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var (
		ledgerStore ledger.Store
		dirStore    directory.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		ls := ledger.NewPostgresStore(pool)
		ds := directory.NewPostgresStore(pool)
		if err := ls.Migrate(ctx); err != nil {
			logger.Error("ledger migration failed", "error", err)
			os.Exit(1)
		}
		if err := ds.Migrate(ctx); err != nil {
			logger.Error("directory migration failed", "error", err)
			os.Exit(1)
		}
		ledgerStore, dirStore = ls, ds
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		ledgerStore, dirStore = ledger.NewMemoryStore(), directory.NewMemoryStore()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	var publisher ledger.Publisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("payment-web-api"))
		if err != nil {
			logger.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		publisher = events.NewPublisher(nc, logger)
	}

	var auditor api.Auditor
	if cfg.AuditDBPath != "" {
		chain, err := audit.Open(cfg.AuditDBPath)
		if err != nil {
			logger.Error("failed to open audit chain", "path", cfg.AuditDBPath, "error", err)
			os.Exit(1)
		}
		defer chain.Close()
		auditor = chain
	}

	tokens := auth.NewTokens([]byte(cfg.JWTSecret), "payment-web", cfg.TokenTTL)
	resolver := directory.NewResolver(dirStore, redisClient)

	var rateLimiter *security.RedisTokenBucket
	if redisClient != nil {
		rateLimiter = &security.RedisTokenBucket{
			Redis:      redisClient,
			Prefix:     "payment-web:ratelimit",
			Capacity:   cfg.RateLimitCapacity,
			RefillRate: float64(cfg.RateLimitRefillPerSec),
		}
	}

	router, err := api.NewRouter(api.Dependencies{
		Logger:       logger,
		Tokens:       tokens,
		Directory:    directory.NewService(dirStore, ledgerStore, tokens, logger),
		Resolver:     resolver,
		Engine:       ledger.NewEngine(ledgerStore, logger, publisher),
		Queries:      ledger.NewQueries(ledgerStore, resolver),
		Auditor:      auditor,
		RateLimiter:  rateLimiter,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("payment api listening", "addr", cfg.ListenAddr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
