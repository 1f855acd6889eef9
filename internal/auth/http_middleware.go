package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/logicapp-mcp/internal/config"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
)

// TokenValidator verifies a bearer token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*UserContext, error)
}

// HTTPAuthMiddleware guards the MCP routes of the HTTP transports with
// Entra ID bearer tokens.
type HTTPAuthMiddleware struct {
	authConfig *config.AuthConfig
	validator  TokenValidator
}

// NewHTTPAuthMiddleware creates the middleware. A validator is only built
// when authentication is enabled.
func NewHTTPAuthMiddleware(authConfig *config.AuthConfig) (*HTTPAuthMiddleware, error) {
	if authConfig == nil {
		authConfig = config.NewAuthConfig()
	}

	m := &HTTPAuthMiddleware{authConfig: authConfig}
	if authConfig.Enabled {
		validator, err := NewEntraValidator(authConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize authentication validator: %w", err)
		}
		m.validator = validator
	}
	return m, nil
}

// WithValidator replaces the token validator.
func (m *HTTPAuthMiddleware) WithValidator(v TokenValidator) *HTTPAuthMiddleware {
	m.validator = v
	return m
}

// Middleware rejects unauthenticated requests to protected paths. CORS
// preflights and paths outside the protected prefix pass through.
func (m *HTTPAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.authConfig.ShouldAuthenticate("http") || r.Method == http.MethodOptions || !m.authConfig.Protects(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			m.unauthorized(w, "Missing Authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			m.unauthorized(w, "Invalid Authorization header format. Expected 'Bearer <token>'")
			return
		}
		if strings.TrimSpace(token) == "" {
			m.unauthorized(w, "Empty token")
			return
		}

		user, err := m.validator.ValidateToken(r.Context(), token)
		if err != nil {
			logger.Warnf("Rejected request to %s: %v", r.URL.Path, err)
			m.unauthorized(w, "Invalid token: "+err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *HTTPAuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="logicapp-mcp"`)
	w.WriteHeader(http.StatusUnauthorized)

	response := map[string]interface{}{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"error": map[string]interface{}{
			"code":    mcp.INVALID_REQUEST,
			"message": "Authentication required",
			"data":    message,
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode unauthorized response: %v", err)
	}
}
