package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/config"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/logger"
	"Gin_postgres_redis_tool_tracker/routes"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	config.LoadEnv()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	application, err := app.New(cfg, zlog)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()
	if cfg.Server.SeedDemo {
		if err := db.SeedDemo(ctx, application.Repo, cfg.Checkout.LoanPeriod, zlog); err != nil {
			zlog.Warn("demo seed failed", zap.Error(err))
		}
	}
	if err := app.BootstrapFirstAdmin(ctx, cfg, application.Repo, zlog); err != nil {
		zlog.Warn("bootstrap admin invite failed", zap.Error(err))
	}

	routes.RegisterRoutes(application.Router, application)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr), zap.String("base_url", cfg.Server.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
