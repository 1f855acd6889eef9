package ctx

import "context"

type ContextKey string

// AzureTokenKey is the context key for storing Azure tokens extracted from HTTP headers.
// This is the name of the HTTP header, not a hardcoded credential.
// #nosec G101
const AzureTokenKey ContextKey = "X-Azure-Token"

// RequestIDKey carries the X-Request-ID assigned by the HTTP facade.
const RequestIDKey ContextKey = "X-Request-ID"

// WithAzureToken returns a copy of parent carrying a caller supplied ARM token.
func WithAzureToken(parent context.Context, token string) context.Context {
	return context.WithValue(parent, AzureTokenKey, token)
}

// AzureToken returns the ARM token stored by WithAzureToken, if any.
func AzureToken(c context.Context) (string, bool) {
	token, ok := c.Value(AzureTokenKey).(string)
	return token, ok && token != ""
}

func WithRequestID(parent context.Context, id string) context.Context {
	return context.WithValue(parent, RequestIDKey, id)
}

func RequestID(c context.Context) string {
	id, _ := c.Value(RequestIDKey).(string)
	return id
}
