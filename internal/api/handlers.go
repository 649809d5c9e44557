package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/api/shared"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports that the service is up.
func Health(service string) middleware.Handler {
	return func(context.Context, *middleware.Request) (middleware.Response, error) {
		return middleware.Response{
			"statusCode": http.StatusOK,
			"body":       HealthResponse{Status: "ok", Service: service},
		}, nil
	}
}

// WhoAmIResponse describes the authenticated caller.
type WhoAmIResponse struct {
	UserID        string   `json:"user_id"`
	Roles         []string `json:"roles"`
	CallerContext string   `json:"caller_context,omitempty"`
	Hydrated      bool     `json:"hydrated"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// WhoAmI returns the caller identity placed on the context by the
// authentication middleware.
func WhoAmI(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
	ac, ok := middleware.AuthContextFrom(ctx)
	if !ok || !ac.IsAuthenticated {
		return nil, middleware.NewAuthenticationError("Authentication required")
	}

	roles := ac.UserRoles
	if roles == nil {
		roles = []string{}
	}
	return middleware.Response{
		"statusCode": http.StatusOK,
		"body": WhoAmIResponse{
			UserID:        ac.UserID,
			Roles:         roles,
			CallerContext: ac.CallerContext,
			Hydrated:      ac.User != nil,
			CorrelationID: shared.GetCorrelationID(ctx),
		},
	}, nil
}
