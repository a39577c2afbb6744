package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/aggregation"
	"github.com/Clark-Hu/store-rating/internal/auth"
	"github.com/Clark-Hu/store-rating/internal/catalog"
	"github.com/Clark-Hu/store-rating/internal/config"
	httpserver "github.com/Clark-Hu/store-rating/internal/http"
	"github.com/Clark-Hu/store-rating/internal/logging"
	"github.com/Clark-Hu/store-rating/internal/repository"
	"github.com/Clark-Hu/store-rating/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "store-rating: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	if cfg.MigrateOnStart {
		if err := st.Migrate(dbCtx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		store.NewPoolCollector(st),
	)

	repo := repository.New(st)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	ratings := aggregation.NewService(
		store.NewTxManager(st.Pool()),
		repo,
		aggregation.OptionsFromConfig(cfg, logger, aggregation.NewMetrics(registry)),
	)

	server := httpserver.New(cfg, httpserver.Deps{
		Store:    st,
		Auth:     auth.NewService(repo.Users, tokens, cfg.BcryptCost, logger),
		Catalog:  catalog.NewService(repo, cfg.BcryptCost, logger),
		Ratings:  ratings,
		Gatherer: registry,
	}, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
