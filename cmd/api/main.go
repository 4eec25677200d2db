// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adiadia/app-builder/internal/config"
	"github.com/adiadia/app-builder/internal/domain"
	"github.com/adiadia/app-builder/internal/engine"
	"github.com/adiadia/app-builder/internal/logging"
	"github.com/adiadia/app-builder/internal/persistence/postgres"
	"github.com/adiadia/app-builder/internal/repository"
	"github.com/adiadia/app-builder/internal/tracing"
	httptransport "github.com/adiadia/app-builder/internal/transport/http"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const serviceName = "app-builder-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logger := logging.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, logger, serviceName, Version)
	if err != nil {
		log.Fatalf("tracing init failed: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	registry := engine.DefaultRegistry(engine.RegistryOptions{})
	eng := engine.New(engine.Deps{
		Logger:         logging.Component(logger, "engine"),
		Registry:       registry,
		DefaultTimeout: cfg.StepTimeout,
		Timeouts:       capabilityTimeouts(cfg.CapabilityTimeouts, registry, logger),
	})

	deps := httptransport.Deps{
		Engine:               eng,
		Logger:               logging.Component(logger, "http"),
		AdminToken:           cfg.AdminToken,
		ExecuteRatePerMinute: cfg.ExecuteRatePerMinute,
		Version:              Version,
		Commit:               Commit,
		BuildDate:            BuildDate,
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
				log.Fatalf("schema bootstrap failed: %v", err)
			}
		}

		repoLogger := logging.Component(logger, "repository")
		apps := repository.NewAppRepository(pool, repoLogger)
		executions := repository.NewExecutionRepository(pool, repoLogger)

		deps.Apps = apps
		deps.Recorder = executions
		deps.Executions = executions
		deps.Health = postgres.NewSchemaHealthChecker(pool)
	} else {
		logger.Warn("DATABASE_URL not set; stored apps and execution history are disabled")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httptransport.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening",
			"addr", cfg.HTTPAddr,
			"version", Version,
			"commit", Commit,
			"build_date", BuildDate,
			"capabilities", len(registry.Types()),
		)

		if err := srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}

func capabilityTimeouts(raw map[string]time.Duration, registry *engine.Registry, logger *slog.Logger) map[domain.ComponentType]time.Duration {
	out := make(map[domain.ComponentType]time.Duration, len(raw))
	for name, d := range raw {
		ct := domain.ComponentType(name)
		if _, ok := registry.Lookup(ct); !ok {
			logger.Warn("timeout configured for unknown component type", "component_type", name)
		}
		out[ct] = d
	}
	return out
}
