package auth

import "context"

// UserContext is the identity behind an authenticated request.
type UserContext struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
	Roles    []string `json:"roles"`
}

type userKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userKey{}).(*UserContext)
	return user, ok && user != nil
}
