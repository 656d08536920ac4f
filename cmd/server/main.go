// obrador is the stock and order management service for the production
// workshop and its shops.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"obrador/internal/domain/ledger"
	"obrador/internal/domain/order"
	"obrador/internal/domain/returns"
	"obrador/internal/domain/transfer"
	"obrador/internal/infrastructure/config"
	v1 "obrador/internal/infrastructure/http/v1"
	"obrador/internal/infrastructure/http/v1/handlers"
	"obrador/internal/infrastructure/storage/postgres"
	"obrador/internal/infrastructure/storage/postgres/ledger_repo"
	"obrador/internal/infrastructure/storage/postgres/order_repo"
	"obrador/internal/infrastructure/storage/postgres/transfer_repo"
	"obrador/pkg/logger"
	"obrador/pkg/numerator"
)

func main() {
	configPath := flag.String("config", "config/example.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Default().Fatalw("server exited", "error", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return err
	}
	log.Infow("migrations applied")

	poolCfg := postgres.DefaultPoolConfig(cfg.Postgres.DSN)
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolCfg.MinConns = cfg.Postgres.MinConns
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				postgres.LogPoolStats(ctx, pool.Pool)
			}
		}
	}()

	txManager := postgres.NewTxManager(pool)
	numbers := numerator.New(postgres.NewSequenceQuerier(txManager))

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		return err
	}

	movementRepo := ledger_repo.NewMovementRepo(txManager)
	transferRepo := transfer_repo.NewTransferRepo(txManager)
	orderRepo := order_repo.NewOrderRepo(txManager)
	draftRepo := order_repo.NewDraftRepo(txManager)

	movements := ledger.NewStore(movementRepo)
	stock := ledger.NewAggregator(movementRepo)
	transfers := transfer.NewCoordinator(transferRepo, movements, numbers, txManager, auditStore)
	orders := order.NewLifecycle(orderRepo, draftRepo, numbers, txManager, auditStore)
	returnsProcessor := returns.NewProcessor(orders, movements, txManager, auditStore)

	var idempotency *postgres.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idempotency = postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL)
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n, err := idempotency.CleanupExpired(ctx); err != nil {
						log.Warnw("idempotency cleanup failed", "error", err)
					} else if n > 0 {
						log.Infow("idempotency keys expired", "count", n)
					}
				}
			}
		}()
	}

	router := v1.NewRouter(v1.Deps{
		Logger:         log,
		Health:         handlers.NewHealthHandler(pool),
		Movements:      handlers.NewMovementHandler(movements),
		Stock:          handlers.NewStockHandler(stock),
		Transfers:      handlers.NewTransferHandler(transfers),
		Orders:         handlers.NewOrderHandler(orders, returnsProcessor),
		Drafts:         handlers.NewDraftHandler(orders),
		Audit:          handlers.NewAuditHandler(auditStore),
		Idempotency:    idempotency,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "addr", cfg.HTTP.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("forced shutdown", "error", err)
		return err
	}

	log.Infow("server stopped")
	return nil
}
