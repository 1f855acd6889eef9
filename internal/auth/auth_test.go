package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/logicapp-mcp/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	user *UserContext
	err  error
	seen []string
}

func (f *fakeValidator) ValidateToken(_ context.Context, token string) (*UserContext, error) {
	f.seen = append(f.seen, token)
	return f.user, f.err
}

func enabledConfig() *config.AuthConfig {
	cfg := config.NewAuthConfig()
	cfg.Enabled = true
	cfg.EntraClientID = "client-id"
	cfg.EntraTenantID = "tenant-id"
	return cfg
}

func TestNewEntraValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AuthConfig)
		wantErr string
	}{
		{"valid", func(*config.AuthConfig) {}, ""},
		{"missing client", func(c *config.AuthConfig) { c.EntraClientID = "" }, "entra_client_id"},
		{"missing tenant", func(c *config.AuthConfig) { c.EntraTenantID = "" }, "entra_tenant_id"},
		{"bad cache timeout", func(c *config.AuthConfig) { c.JWKSCacheTimeout = 0 }, "jwks_cache_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			tt.mutate(cfg)
			v, err := NewEntraValidator(cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{
				"https://login.microsoftonline.com/tenant-id/v2.0",
				"https://sts.windows.net/tenant-id/",
			}, v.issuers)
			assert.Equal(t, []string{"client-id", "api://client-id"}, v.audiences)
			assert.Equal(t, "https://login.microsoftonline.com/tenant-id/discovery/v2.0/keys", v.jwksURL)
		})
	}
}

func TestValidateTokenRejectsMalformedTokens(t *testing.T) {
	v, err := NewEntraValidator(enabledConfig())
	require.NoError(t, err)
	for _, token := range []string{"", "invalid.token", "header.payload"} {
		_, err := v.ValidateToken(context.Background(), token)
		assert.Error(t, err, token)
	}
}

func TestValidateClaims(t *testing.T) {
	cfg := enabledConfig()
	v := &EntraValidator{tenantID: "tenant-id", audiences: cfg.Audiences(), issuers: cfg.Issuers()}
	claims := func(tenant, issuer string, aud ...string) *Claims {
		return &Claims{TenantID: tenant, RegisteredClaims: jwt.RegisteredClaims{Audience: aud, Issuer: issuer}}
	}
	const v2 = "https://login.microsoftonline.com/tenant-id/v2.0"

	tests := []struct {
		name    string
		claims  *Claims
		wantErr string
	}{
		{"client id audience", claims("tenant-id", v2, "client-id"), ""},
		{"identifier uri audience", claims("tenant-id", v2, "other", "api://client-id"), ""},
		{"v1 issuer", claims("tenant-id", "https://sts.windows.net/tenant-id/", "client-id"), ""},
		{"wrong tenant", claims("other", v2, "client-id"), "invalid tenant ID"},
		{"no audience", claims("tenant-id", v2), "missing audience"},
		{"wrong audience", claims("tenant-id", v2, "other"), "invalid audience"},
		{"wrong issuer", claims("tenant-id", "https://example.com", "client-id"), "invalid issuer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.validateClaims(tt.claims)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClaimHelpers(t *testing.T) {
	assert.Equal(t, "oid", userID(&Claims{ObjectID: "oid", RegisteredClaims: jwt.RegisteredClaims{Subject: "sub"}}))
	assert.Equal(t, "sub", userID(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub"}}))
	assert.Equal(t, "upn@x", email(&Claims{UPN: "upn@x", PreferredUsername: "pref@x"}))
	assert.Equal(t, "pref@x", email(&Claims{PreferredUsername: "pref@x"}))
}

func TestMiddleware(t *testing.T) {
	var gotUser *UserContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name      string
		enabled   bool
		method    string
		path      string
		header    string
		validator *fakeValidator
		want      int
		wantUser  bool
	}{
		{"disabled", false, http.MethodPost, "/mcp/consumption/request", "", &fakeValidator{}, http.StatusOK, false},
		{"open route", true, http.MethodGet, "/health", "", &fakeValidator{}, http.StatusOK, false},
		{"listing route", true, http.MethodGet, "/logic-apps", "", &fakeValidator{}, http.StatusOK, false},
		{"preflight", true, http.MethodOptions, "/mcp/kudu/request", "", &fakeValidator{}, http.StatusOK, false},
		{"missing header", true, http.MethodPost, "/mcp/kudu/request", "", &fakeValidator{}, http.StatusUnauthorized, false},
		{"basic auth", true, http.MethodPost, "/mcp", "Basic dGVzdDp0ZXN0", &fakeValidator{}, http.StatusUnauthorized, false},
		{"empty bearer", true, http.MethodPost, "/mcp", "Bearer  ", &fakeValidator{}, http.StatusUnauthorized, false},
		{"rejected token", true, http.MethodPost, "/mcp/request", "Bearer bad", &fakeValidator{err: errors.New("expired")}, http.StatusUnauthorized, false},
		{"accepted token", true, http.MethodPost, "/mcp/standard/request", "Bearer good", &fakeValidator{user: &UserContext{UserID: "u1"}}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = nil
			cfg := enabledConfig()
			cfg.Enabled = tt.enabled
			m, err := NewHTTPAuthMiddleware(cfg)
			require.NoError(t, err)
			m.WithValidator(tt.validator)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Middleware(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser != nil)
			if tt.want == http.StatusUnauthorized {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "2.0", body["jsonrpc"])
				assert.Equal(t, float64(-32600), body["error"].(map[string]interface{})["code"])
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMiddlewareFailsOnInvalidConfig(t *testing.T) {
	cfg := enabledConfig()
	cfg.EntraTenantID = ""
	_, err := NewHTTPAuthMiddleware(cfg)
	assert.Error(t, err)

	m, err := NewHTTPAuthMiddleware(nil)
	require.NoError(t, err)
	assert.Nil(t, m.validator)
}
