package httpapi

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// EventFromRequest projects r into the proxy event shape. Multi-valued
// headers and query parameters keep their first value.
func EventFromRequest(r *http.Request) map[string]any {
	headers := make(map[string]any, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	query := make(map[string]any)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	requestContext := map[string]any{
		"identity": map[string]any{"sourceIp": clientIP(r)},
	}
	if id := chimw.GetReqID(r.Context()); id != "" {
		requestContext["requestId"] = id
	}

	return map[string]any{
		"httpMethod":            r.Method,
		"path":                  r.URL.Path,
		"resource":              routePattern(r),
		"headers":               headers,
		"queryStringParameters": query,
		"requestContext":        requestContext,
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// clientIP returns the host part of RemoteAddr. Behind a proxy, run chi's
// RealIP middleware first.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func nested(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
