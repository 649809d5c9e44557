package middleware_test

import (
	"context"
	"sync/atomic"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
)

// fakeStrategy implements every strategy interface over a plain event map.
type fakeStrategy struct {
	auth       *middleware.AuthContext
	authErr    error
	cleanups   atomic.Int32
	injectedLC middleware.LogContext
}

func (s *fakeStrategy) RequestData(req *middleware.Request) (map[string]any, any, error) {
	if req == nil || req.Event == nil {
		return nil, nil, middleware.ErrMissingEvent
	}
	return req.Event, req.Platform, nil
}

func (s *fakeStrategy) ExtractAuthContext(_ context.Context, _ *middleware.Request) (*middleware.AuthContext, error) {
	return s.auth, s.authErr
}

func (s *fakeStrategy) InjectAuthContext(ctx context.Context, _ *middleware.Request, ac *middleware.AuthContext) context.Context {
	return middleware.WithAuthContext(ctx, ac)
}

func (s *fakeStrategy) ExtractLoggingContext(_ context.Context, req *middleware.Request) (middleware.LogContext, error) {
	event, _, err := s.RequestData(req)
	if err != nil {
		return middleware.LogContext{}, err
	}
	id, _ := event["requestId"].(string)
	return middleware.LogContext{
		CorrelationID: id,
		Function:      map[string]any{"name": "test-function"},
		Request:       map[string]any{"path": event["path"]},
	}, nil
}

func (s *fakeStrategy) InjectLoggingContext(ctx context.Context, _ *middleware.Request, lc middleware.LogContext) context.Context {
	s.injectedLC = lc
	return ctx
}

func (s *fakeStrategy) ExtractErrorContext(_ context.Context, req *middleware.Request) map[string]any {
	if req == nil || req.Event == nil {
		return nil
	}
	return map[string]any{"path": req.Event["path"]}
}

func (s *fakeStrategy) InjectErrorContext(ctx context.Context, _ *middleware.Request, ec map[string]any) context.Context {
	return middleware.WithErrorContext(ctx, ec)
}

func (s *fakeStrategy) FormatErrorResponse(er middleware.ErrorResponse) middleware.Response {
	return middleware.RenderErrorResponse(er)
}

func (s *fakeStrategy) Cleanup(context.Context) {
	s.cleanups.Add(1)
}

func newRequest() *middleware.Request {
	return middleware.NewRequest(map[string]any{"path": "/recipes", "requestId": "req-123"}, nil)
}

func okHandler(_ context.Context, _ *middleware.Request) (middleware.Response, error) {
	return middleware.Response{"statusCode": 200, "body": "ok"}, nil
}

// recorder returns a middleware that appends name to *trace before calling next.
func recorder(name string, category middleware.Category, trace *[]string) middleware.Middleware {
	return middleware.Func(name, category, func(ctx context.Context, next middleware.Handler, req *middleware.Request) (middleware.Response, error) {
		*trace = append(*trace, name)
		return next(ctx, req)
	})
}
