// Command server runs the middleware chain behind a local net/http server.
// It mirrors the Lambda deployment so the chain can be exercised without AWS.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phrazzld/recipe-api/internal/app"
	"github.com/phrazzld/recipe-api/internal/config"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/platform/postgres"
	"github.com/phrazzld/recipe-api/internal/platform/telemetry"
	"github.com/phrazzld/recipe-api/internal/service/auth"
	"github.com/phrazzld/recipe-api/internal/store"
	"go.opentelemetry.io/otel/trace"
)

// devTokenLifetime bounds tokens verified by the local server.
const devTokenLifetime = time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	lg, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := app.Dependencies{Logger: lg}

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		deps.Identities = store.IdentityStore(postgres.NewPostgresIdentityStore(db))
	}

	if cfg.Auth.DevTokenSecret != "" {
		issuer, err := auth.NewDevTokenIssuer(cfg.Auth.DevTokenSecret, devTokenLifetime)
		if err != nil {
			return err
		}
		deps.ClaimsDecoder = issuer
		lg.Info("verifying development tokens")
	}

	if cfg.Middleware.EnableTracing {
		tp, shutdown, err := telemetry.InitTracer(cfg.Server.ServiceName, os.Stdout, lg)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				lg.Error("tracer shutdown failed", slog.Any("error", err))
			}
		}()
		deps.TracerProvider = trace.TracerProvider(tp)
	}

	chain, err := app.Build(cfg, app.PlatformHTTP, deps)
	if err != nil {
		return fmt.Errorf("failed to build middleware chain: %w", err)
	}
	defer func() { _ = chain.Close(context.Background()) }()

	return serve(ctx, cfg, lg, newRouter(cfg, chain))
}
