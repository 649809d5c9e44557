package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/middleware/awslambda"
	"github.com/phrazzld/recipe-api/internal/api/middleware/httpapi"
	"github.com/phrazzld/recipe-api/internal/config"
	"github.com/phrazzld/recipe-api/internal/iam"
	"github.com/phrazzld/recipe-api/internal/service/auth"
	"github.com/phrazzld/recipe-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Platform names the runtime a chain is built for.
type Platform string

const (
	// PlatformLambda runs behind API Gateway on AWS Lambda.
	PlatformLambda Platform = "lambda"
	// PlatformHTTP runs as a plain net/http server.
	PlatformHTTP Platform = "http"
)

// MetricsNamespace prefixes every collector the chain registers.
const MetricsNamespace = "recipe_api"

// Dependencies are the collaborators a chain is built with. Every field is
// optional.
type Dependencies struct {
	Logger *slog.Logger

	// Identities enables IAM hydration when Auth.CallerContext is also set.
	Identities store.IdentityStore

	// Registerer receives the chain's collectors when metrics are enabled.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// TracerProvider is used when tracing is enabled. Defaults to the
	// global provider.
	TracerProvider trace.TracerProvider

	// ClaimsDecoder decodes bearer tokens on the HTTP platform. Defaults to
	// reading claims without verification.
	ClaimsDecoder auth.ClaimsDecoder
}

// Chain is a configured composer together with the pieces the platform
// adapters need.
type Chain struct {
	Composer *middleware.Composer

	// Exceptions renders errors that escape the chain, such as
	// authentication failures.
	Exceptions *middleware.ExceptionHandlerMiddleware

	// Provider is the IAM provider, or nil when hydration is disabled.
	Provider *iam.CachedProvider
}

// Build creates the middleware chain described by cfg for platform.
func Build(cfg *config.Config, platform Platform, deps Dependencies) (*Chain, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		provider      *iam.CachedProvider
		providerIface iam.Provider
	)
	if deps.Identities != nil && cfg.Auth.CallerContext != "" {
		strategy, err := iam.ParseCacheStrategy(cfg.Auth.CacheStrategy)
		if err != nil {
			return nil, err
		}
		provider = iam.NewCachedProvider(deps.Identities, strategy,
			iam.WithSupportedContexts(cfg.Auth.CallerContext),
			iam.WithLogger(log))
		providerIface = provider
	}

	var (
		authStrategy    middleware.AuthStrategy
		loggingStrategy middleware.LoggingStrategy
		errorStrategy   middleware.ErrorStrategy
	)
	switch platform {
	case PlatformLambda:
		authStrategy = awslambda.NewAuthStrategy(providerIface, cfg.Auth.CallerContext, log)
		loggingStrategy = awslambda.NewLoggingStrategy()
		errorStrategy = awslambda.NewErrorStrategy()
	case PlatformHTTP:
		authStrategy = httpapi.NewAuthStrategy(deps.ClaimsDecoder, providerIface, cfg.Auth.CallerContext, log)
		loggingStrategy = httpapi.NewLoggingStrategy(cfg.Server.ServiceName)
		errorStrategy = httpapi.NewErrorStrategy()
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	exceptions := middleware.NewExceptionHandlerMiddleware(errorStrategy, middleware.ExceptionHandlerConfig{
		Production:            cfg.Server.IsProduction(),
		ExposeInternalDetails: cfg.Middleware.ExposeInternalDetails,
		IncludeStackTrace:     cfg.Middleware.IncludeStackTrace,
	}, middleware.WithLogger(log))

	policy := middleware.NewAuthPolicy(
		middleware.RequireAuthentication(cfg.Auth.RequireAuthentication),
		middleware.AllowRoles(cfg.Auth.AllowedRoles...),
		middleware.ForCallerContext(cfg.Auth.CallerContext),
	)

	mws := []middleware.Middleware{
		middleware.NewStructuredLoggingMiddleware(loggingStrategy, middleware.LoggingConfig{
			LogRequestStart:    cfg.Middleware.LogRequestStart,
			LogResponseSummary: cfg.Middleware.LogResponseSummary,
		}, middleware.WithLogger(log)),
		middleware.NewAuthenticationMiddleware(authStrategy, policy, middleware.WithLogger(log)),
	}

	if cfg.Middleware.EnableMetrics {
		reg := deps.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		metrics := middleware.NewMetrics(MetricsNamespace, reg)
		mws = append(mws, middleware.NewMetricsMiddleware(cfg.Server.ServiceName, metrics))
	}
	if cfg.Middleware.EnableTracing {
		tp := deps.TracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		mws = append(mws, middleware.NewTracingMiddleware(tp, cfg.Server.ServiceName))
	}
	mws = append(mws, exceptions)

	composer := middleware.NewComposer(mws, middleware.WithDefaultTimeout(cfg.Middleware.Timeout))

	log.Info("middleware chain built",
		"platform", string(platform),
		"chain", composer.String(),
		"iam_enabled", provider != nil)

	return &Chain{Composer: composer, Exceptions: exceptions, Provider: provider}, nil
}

// Compose wraps h with the configured chain.
func (c *Chain) Compose(h middleware.Handler) middleware.Handler {
	return c.Composer.Compose(h)
}

// Close releases process-lifetime resources held by the chain.
func (c *Chain) Close(context.Context) error {
	if c.Provider != nil {
		c.Provider.Clear()
	}
	return nil
}
