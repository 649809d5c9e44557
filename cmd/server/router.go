package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/recipe-api/internal/api"
	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/middleware/httpapi"
	"github.com/phrazzld/recipe-api/internal/app"
	"github.com/phrazzld/recipe-api/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// newRouter registers the routes. /health runs through a chain with no
// middleware so probes never need credentials.
func newRouter(cfg *config.Config, chain *app.Chain) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.Middleware.EnableTracing {
		r.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, cfg.Server.ServiceName)
		})
	}

	open := middleware.NewComposer(nil, middleware.WithDefaultTimeout(cfg.Middleware.Timeout))
	r.Method(http.MethodGet, "/health", httpapi.NewHandler(open.Compose(api.Health(cfg.Server.ServiceName)), nil))

	r.Method(http.MethodGet, "/whoami", httpapi.NewHandler(chain.Compose(api.WhoAmI), chain.Exceptions))

	if cfg.Middleware.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	return r
}
