package config

import (
	"errors"
	"fmt"
	"strings"
)

// AuthConfig controls the optional Entra ID guard in front of the MCP
// routes of the HTTP facade and the streamable endpoint. Callers present a
// bearer token issued for the server's app registration; the Azure identity
// used against ARM is configured separately.
type AuthConfig struct {
	Enabled bool `json:"enabled"`

	// App registration the tokens must be issued for
	EntraClientID  string `json:"entra_client_id"`
	EntraTenantID  string `json:"entra_tenant_id"`
	EntraAuthority string `json:"entra_authority"`

	// Signing keys are cached for this many seconds
	JWKSCacheTimeout int `json:"jwks_cache_timeout"`

	RequireAuthForHTTP bool `json:"require_auth_for_http"`

	// Only paths under this prefix need a token. Health, listing and
	// metrics routes live outside it.
	ProtectedPrefix string `json:"protected_prefix"`
}

// NewAuthConfig returns a disabled guard for the public cloud authority
// that protects /mcp and everything below it.
func NewAuthConfig() *AuthConfig {
	return &AuthConfig{
		EntraAuthority:     "https://login.microsoftonline.com",
		JWKSCacheTimeout:   3600,
		RequireAuthForHTTP: true,
		ProtectedPrefix:    "/mcp",
	}
}

// ShouldAuthenticate reports whether requests arriving over transport are
// checked. stdio is a local pipe and never is.
func (c *AuthConfig) ShouldAuthenticate(transport string) bool {
	return c.Enabled && transport != "stdio" && c.RequireAuthForHTTP
}

// Protects reports whether path is one of the MCP routes. An empty prefix
// guards every route.
func (c *AuthConfig) Protects(path string) bool {
	prefix := strings.TrimSuffix(c.ProtectedPrefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

var errAuthConfig = errors.New("auth")

// ValidateConfig checks the settings an enabled guard needs.
func (c *AuthConfig) ValidateConfig() error {
	if !c.Enabled {
		return nil
	}

	switch {
	case c.EntraClientID == "":
		return fmt.Errorf("%w: entra_client_id is required when authentication is enabled", errAuthConfig)
	case c.EntraTenantID == "":
		return fmt.Errorf("%w: entra_tenant_id is required when authentication is enabled", errAuthConfig)
	case c.JWKSCacheTimeout <= 0:
		return fmt.Errorf("%w: jwks_cache_timeout must be positive", errAuthConfig)
	case c.ProtectedPrefix != "" && !strings.HasPrefix(c.ProtectedPrefix, "/"):
		return fmt.Errorf("%w: protected_prefix must start with '/', got %q", errAuthConfig, c.ProtectedPrefix)
	}
	return nil
}

func (c *AuthConfig) tenantURL() string {
	return strings.TrimSuffix(c.EntraAuthority, "/") + "/" + c.EntraTenantID
}

// Audiences lists the accepted aud values: the client ID itself and its
// api:// identifier URI.
func (c *AuthConfig) Audiences() []string {
	return []string{c.EntraClientID, "api://" + c.EntraClientID}
}

// Issuers lists the accepted iss values. Tokens for app registrations on
// the v1 endpoint carry the sts.windows.net issuer.
func (c *AuthConfig) Issuers() []string {
	return []string{
		c.tenantURL() + "/v2.0",
		fmt.Sprintf("https://sts.windows.net/%s/", c.EntraTenantID),
	}
}

// JWKSURL is where the tenant publishes its signing keys.
func (c *AuthConfig) JWKSURL() string {
	return c.tenantURL() + "/discovery/v2.0/keys"
}
