package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
)

// Handler adapts a composed middleware handler to net/http.
type Handler struct {
	next     middleware.Handler
	fallback middleware.Renderer
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates a Handler. Errors returned by the chain are rendered
// with fallback; with a nil fallback they become a bare 500.
func NewHandler(h middleware.Handler, fallback middleware.Renderer) *Handler {
	return &Handler{next: h, fallback: fallback}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := middleware.NewRequest(EventFromRequest(r), r)

	resp, err := h.next(ctx, req)
	if err != nil {
		if h.fallback == nil {
			logger.FromContext(ctx).ErrorContext(ctx, "unhandled middleware error",
				slog.String("correlation_id", req.CorrelationID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		resp = h.fallback.Render(ctx, req, err)
	}

	status, headers, body, err := resp.Parts()
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "response could not be encoded",
			slog.String("correlation_id", req.CorrelationID),
			slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	for name, value := range headers {
		w.Header().Set(name, value)
	}
	if req.CorrelationID != "" && w.Header().Get(CorrelationHeader) == "" {
		w.Header().Set(CorrelationHeader, req.CorrelationID)
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
