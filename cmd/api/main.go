package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/AlazarG19/Test-Bulk-Buddy/api"
	"github.com/AlazarG19/Test-Bulk-Buddy/api/routes"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/app"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/instance"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/db"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// Money fields go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	dbClient, journalRepo, err := app.OpenJournal(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap order journal", err)
		os.Exit(1)
	}
	var dbPinger db.Pinger
	if dbClient != nil {
		dbPinger = dbClient
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	workflow, err := app.NewWorkflow(cfg, logg, registry, journalRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to build order workflow", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance":    instance.ID(),
		"serviceKind": cfg.Service.Kind,
		"journal":     cfg.FeatureFlags.Journal,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(cfg, logg, dbPinger, redisClient, registry, routes.Services{
		Catalog: workflow.Catalog,
		Pools:   workflow.Pools,
		Orders:  workflow.Orders,
	})

	server := api.NewServer(cfg.HTTP, addr, handler, logg)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
