package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/recipe-api/internal/api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permutations[T any](items []T) [][]T {
	if len(items) <= 1 {
		return [][]T{append([]T(nil), items...)}
	}
	var out [][]T
	for i := range items {
		rest := make([]T, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]T{items[i]}, p...))
		}
	}
	return out
}

func TestComposerOrdersByCategory(t *testing.T) {
	type entry struct {
		name     string
		category middleware.Category
	}
	entries := []entry{
		{"logging", middleware.CategoryLogging},
		{"auth", middleware.CategoryAuth},
		{"custom-a", middleware.CategoryCustom},
		{"custom-b", middleware.CategoryCustom},
		{"error", middleware.CategoryError},
	}

	for _, perm := range permutations(entries) {
		var trace []string
		mws := make([]middleware.Middleware, len(perm))
		customOrder := make([]string, 0, 2)
		for i, e := range perm {
			mws[i] = recorder(e.name, e.category, &trace)
			if e.category == middleware.CategoryCustom {
				customOrder = append(customOrder, e.name)
			}
		}

		h := middleware.NewComposer(mws).Compose(okHandler)
		resp, err := h(context.Background(), newRequest())
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode())

		want := append([]string{"logging", "auth"}, customOrder...)
		want = append(want, "error")
		assert.Equal(t, want, trace, "permutation %v", perm)
	}
}

func TestComposeWithoutMiddleware(t *testing.T) {
	h := middleware.NewComposer(nil).Compose(okHandler)
	resp, err := h(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
}

func TestComposeWithoutTimeoutLeavesHandlerUnbounded(t *testing.T) {
	c := middleware.NewComposer(nil)
	assert.Zero(t, c.DefaultTimeout())

	h := c.Compose(func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return middleware.Response{"statusCode": 200}, nil
	})

	resp, err := h(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
}

func TestComposeTimeoutReturnsSentinel(t *testing.T) {
	slow := func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return middleware.Response{"statusCode": 200}, nil
		}
	}

	c := middleware.NewComposer(nil, middleware.WithDefaultTimeout(time.Second))
	start := time.Now()
	resp, err := c.Compose(slow, 20*time.Millisecond)(context.Background(), newRequest())

	require.NoError(t, err, "a timeout is a successful sentinel response")
	assert.Equal(t, middleware.TimeoutResponse(), resp)
	assert.Equal(t, 408, resp.StatusCode())
	assert.Equal(t, "Request timeout", resp["error"])
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestComposeTimeoutBypassesExceptionHandler(t *testing.T) {
	exc := middleware.NewExceptionHandlerMiddleware(nil, middleware.ExceptionHandlerConfig{})
	blocked := func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	h := middleware.NewComposer([]middleware.Middleware{exc}).Compose(blocked, 10*time.Millisecond)
	resp, err := h(context.Background(), newRequest())

	require.NoError(t, err)
	assert.Equal(t, middleware.TimeoutResponse(), resp)
	assert.NotContains(t, resp, "headers")
}

func TestComposeZeroTimeoutDisablesGuard(t *testing.T) {
	h := middleware.NewComposer(nil, middleware.WithDefaultTimeout(time.Millisecond)).Compose(
		func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
			_, hasDeadline := ctx.Deadline()
			assert.False(t, hasDeadline)
			time.Sleep(5 * time.Millisecond)
			return middleware.Response{"statusCode": 204}, nil
		}, 0)

	resp, err := h(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode())
}

func TestComposeParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := middleware.NewComposer(nil).Compose(func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := h(ctx, newRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposeRecoversPanicOutsideExceptionHandler(t *testing.T) {
	h := middleware.NewComposer(nil).Compose(func(context.Context, *middleware.Request) (middleware.Response, error) {
		panic("boom")
	}, time.Second)

	_, err := h(context.Background(), newRequest())
	var pe *middleware.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestPerMiddlewareTimeout(t *testing.T) {
	bounded := middleware.Func("bounded", middleware.CategoryCustom,
		func(ctx context.Context, next middleware.Handler, req *middleware.Request) (middleware.Response, error) {
			return next(ctx, req)
		}, middleware.WithTimeout(50*time.Millisecond))

	var deadline time.Time
	h := middleware.NewComposer([]middleware.Middleware{bounded}).Compose(
		func(ctx context.Context, _ *middleware.Request) (middleware.Response, error) {
			deadline, _ = ctx.Deadline()
			return middleware.Response{"statusCode": 200}, nil
		}, 0)

	_, err := h(context.Background(), newRequest())
	require.NoError(t, err)
	require.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}

func TestComposerMutation(t *testing.T) {
	var trace []string
	logging := recorder("logging", middleware.CategoryLogging, &trace)
	auth := recorder("auth", middleware.CategoryAuth, &trace)
	custom := recorder("custom", middleware.CategoryCustom, &trace)
	errMW := recorder("error", middleware.CategoryError, &trace)

	c := middleware.NewComposer([]middleware.Middleware{errMW, auth})
	require.Equal(t, 2, c.Len())

	// AddMiddleware honours the explicit position and does not re-sort.
	c.AddMiddleware(custom, 0)
	assert.Equal(t, "custom", c.Middleware()[0].Name())

	// AddMiddlewareOrdered restores bucket order.
	c.AddMiddlewareOrdered(logging)
	names := func() []string {
		var out []string
		for _, mw := range c.Middleware() {
			out = append(out, mw.Name())
		}
		return out
	}
	assert.Equal(t, []string{"logging", "auth", "custom", "error"}, names())

	c.AddMiddleware(recorder("tail", middleware.CategoryCustom, &trace))
	assert.Equal(t, "tail", names()[4])
	c.AddMiddleware(recorder("before-tail", middleware.CategoryCustom, &trace), -1)
	assert.Equal(t, []string{"logging", "auth", "custom", "error", "before-tail", "tail"}, names())

	assert.True(t, c.RemoveMiddleware(custom))
	assert.False(t, c.RemoveMiddleware(custom))
	assert.True(t, c.RemoveMiddlewareNamed("tail"))
	assert.Equal(t, []string{"logging", "auth", "error", "before-tail"}, names())

	assert.Equal(t, "Composer(middleware=[logging, auth, error, before-tail], timeout=0s)", c.String())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestMiddlewareSnapshotIsIndependent(t *testing.T) {
	var trace []string
	c := middleware.NewComposer([]middleware.Middleware{recorder("a", middleware.CategoryCustom, &trace)})
	h := c.Compose(okHandler)

	c.Clear()
	_, err := h(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, trace, "composed handlers keep the middleware they were built with")
}

func TestResponseStatusCode(t *testing.T) {
	tests := []struct {
		resp middleware.Response
		want int
	}{
		{middleware.Response{"statusCode": 201}, 201},
		{middleware.Response{"statusCode": int64(404)}, 404},
		{middleware.Response{"statusCode": float64(500)}, 500},
		{middleware.Response{"statusCode": "200"}, 0},
		{middleware.Response{}, 0},
		{nil, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.resp.StatusCode())
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "logging", middleware.CategoryLogging.String())
	assert.Equal(t, "error", middleware.CategoryError.String())
	assert.Equal(t, "unknown", middleware.Category(42).String())
	assert.True(t, errors.Is(middleware.ErrMissingEvent, middleware.ErrMissingEvent))
}
