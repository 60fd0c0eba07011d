package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fsanano/answer-book/internal/config"
	"fsanano/answer-book/internal/handler"
	"fsanano/answer-book/internal/logger"
	"fsanano/answer-book/internal/repository"
	"fsanano/answer-book/internal/service"
	"fsanano/answer-book/internal/service/oracle"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server exited with error", zap.Error(err))
	}
	logg.Info("server exiting")
}

func run(cfg *config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup ledger
	ledger, err := openLedger(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare ledger schema: %w", err)
	}

	// 3. Setup logic
	balances := service.NewBalanceService(ledger)
	oracleClient := oracle.NewClient(oracle.Config{
		APIURL:   cfg.Oracle.APIURL,
		APIKey:   cfg.Oracle.APIKey,
		Model:    cfg.Oracle.Model,
		Language: cfg.Oracle.Language,
		Timeout:  cfg.Oracle.Timeout,
	})

	h := handler.NewHandler(balances, oracleClient, handler.AssetConfig{
		Dir:       cfg.AssetDir,
		IndexFile: cfg.IndexFile,
	}, logg)

	// 4. Setup server
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Run server until a signal arrives, then shut down gracefully
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openLedger(ctx context.Context, cfg *config.Config, logg *zap.Logger) (repository.Ledger, error) {
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logg.Info("connected to postgres ledger")
		return repository.NewPostgresLedger(pool), nil
	}

	ledger, err := repository.OpenSQLiteLedger(ctx, cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	logg.Info("opened sqlite ledger", zap.String("path", cfg.LedgerPath))
	return ledger, nil
}
