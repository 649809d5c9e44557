package awslambda

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/phrazzld/recipe-api/internal/api/middleware"
)

// ProxyHandler is the signature lambda.Start expects for API Gateway proxy
// integrations.
type ProxyHandler func(ctx context.Context, r events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// NewProxyHandler adapts a composed handler to API Gateway. Errors returned by
// the chain (for example authentication failures raised outside the exception
// handler) are rendered with fallback; with a nil fallback they are returned
// to the Lambda runtime.
func NewProxyHandler(h middleware.Handler, fallback middleware.Renderer) ProxyHandler {
	return func(ctx context.Context, r events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		event, err := EventFromProxyRequest(r)
		if err != nil {
			return events.APIGatewayProxyResponse{}, err
		}

		req := middleware.NewRequest(event, platformFrom(ctx))
		resp, err := h(ctx, req)
		if err != nil {
			if fallback == nil {
				return events.APIGatewayProxyResponse{}, err
			}
			resp = fallback.Render(ctx, req, err)
		}
		return ToProxyResponse(resp)
	}
}

// ToProxyResponse converts a middleware response into a proxy response.
func ToProxyResponse(resp middleware.Response) (events.APIGatewayProxyResponse, error) {
	status, headers, body, err := resp.Parts()
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	out := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
	if b, ok := resp["isBase64Encoded"].(bool); ok {
		out.IsBase64Encoded = b
	}
	return out, nil
}

func platformFrom(ctx context.Context) any {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc
	}
	return nil
}
