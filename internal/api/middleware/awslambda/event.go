package awslambda

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// EventFromProxyRequest converts an API Gateway proxy request into the map
// form carried by middleware.Request, using the event's JSON field names.
func EventFromProxyRequest(r events.APIGatewayProxyRequest) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding proxy request: %w", err)
	}
	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decoding proxy request: %w", err)
	}
	return event, nil
}

// nested walks event through map keys and returns the map found at the end.
func nested(event map[string]any, keys ...string) map[string]any {
	cur := event
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

// header returns the first header value matching name case-insensitively.
func header(event map[string]any, name string) string {
	for k, v := range nested(event, "headers") {
		if strings.EqualFold(k, name) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Claims returns the authorizer claims of event. REST APIs carry them under
// requestContext.authorizer.claims, HTTP APIs under
// requestContext.authorizer.jwt.claims.
func Claims(event map[string]any) map[string]any {
	if claims := nested(event, "requestContext", "authorizer", "claims"); claims != nil {
		return claims
	}
	return nested(event, "requestContext", "authorizer", "jwt", "claims")
}
