// Command migrate applies the IAM identity table migrations.
//
// Usage:
//
//	migrate [-verbose] <command> [args]
//
// where command is any goose command: up, down, status, version, redo, reset.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/recipe-api/internal/config"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/platform/postgres"
	"github.com/phrazzld/recipe-api/internal/redact"
)

func main() {
	verbose := flag.Bool("verbose", false, "log at debug level")
	flag.Parse()

	command := "up"
	var args []string
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	if err := run(command, *verbose, args...); err != nil {
		slog.Error("migration failed", "command", command, "error", redact.Error(err))
		os.Exit(1)
	}
}

func run(command string, verbose bool, args ...string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Server.LogLevel = "debug"
	}
	lg, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database URL is empty: set %s_DATABASE_URL", config.EnvPrefix)
	}

	lg = lg.With(
		"correlation_id", uuid.NewString(),
		"component", "migrations",
		"command", command,
	)

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return postgres.Migrate(ctx, db, command, lg, args...)
}
