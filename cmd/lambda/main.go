// Command lambda is the AWS Lambda entrypoint for API Gateway proxy
// integrations.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/phrazzld/recipe-api/internal/api"
	"github.com/phrazzld/recipe-api/internal/api/middleware/awslambda"
	"github.com/phrazzld/recipe-api/internal/app"
	"github.com/phrazzld/recipe-api/internal/config"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
	"github.com/phrazzld/recipe-api/internal/platform/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	lg, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	deps := app.Dependencies{Logger: lg}
	if cfg.Database.URL != "" {
		// The connection outlives individual invocations; the runtime
		// freezes the process between them.
		db, err := postgres.Open(context.Background(), cfg.Database.URL)
		if err != nil {
			log.Fatalf("failed to connect to identity database: %v", err)
		}
		deps.Identities = postgres.NewPostgresIdentityStore(db)
	}

	chain, err := app.Build(cfg, app.PlatformLambda, deps)
	if err != nil {
		log.Fatalf("failed to build middleware chain: %v", err)
	}

	lambda.Start(awslambda.NewProxyHandler(chain.Compose(api.WhoAmI), chain.Exceptions))
}
