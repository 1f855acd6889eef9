package config

import (
	"strings"
	"testing"
)

func TestNewAuthConfig(t *testing.T) {
	config := NewAuthConfig()

	if config.Enabled {
		t.Error("Expected Enabled to be false by default")
	}
	if config.EntraAuthority != "https://login.microsoftonline.com" {
		t.Errorf("Expected default authority, got '%s'", config.EntraAuthority)
	}
	if config.JWKSCacheTimeout != 3600 {
		t.Errorf("Expected JWKSCacheTimeout to be 3600, got %d", config.JWKSCacheTimeout)
	}
	if !config.RequireAuthForHTTP {
		t.Error("Expected RequireAuthForHTTP to be true by default")
	}
	if config.ProtectedPrefix != "/mcp" {
		t.Errorf("Expected ProtectedPrefix '/mcp', got '%s'", config.ProtectedPrefix)
	}
}

func TestAuthConfig_ShouldAuthenticate(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		require   bool
		transport string
		expected  bool
	}{
		{"disabled - http", false, true, "http", false},
		{"disabled - stdio", false, true, "stdio", false},
		{"enabled - stdio is never guarded", true, true, "stdio", false},
		{"enabled - http", true, true, "http", true},
		{"enabled - streamable-http", true, true, "streamable-http", true},
		{"enabled - http without requirement", true, false, "http", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := &AuthConfig{Enabled: test.enabled, RequireAuthForHTTP: test.require}
			if got := config.ShouldAuthenticate(test.transport); got != test.expected {
				t.Errorf("ShouldAuthenticate(%q) = %v, want %v", test.transport, got, test.expected)
			}
		})
	}
}

func TestAuthConfig_Protects(t *testing.T) {
	tests := []struct {
		prefix   string
		path     string
		expected bool
	}{
		{"/mcp", "/mcp", true},
		{"/mcp", "/mcp/consumption/request", true},
		{"/mcp", "/mcp/request", true},
		{"/mcp", "/mcpx", false},
		{"/mcp", "/health", false},
		{"/mcp", "/logic-apps", false},
		{"/mcp/", "/mcp/kudu/request", true},
		{"", "/health", true},
	}

	for _, test := range tests {
		t.Run(test.prefix+" "+test.path, func(t *testing.T) {
			config := &AuthConfig{ProtectedPrefix: test.prefix}
			if got := config.Protects(test.path); got != test.expected {
				t.Errorf("Protects(%q) with prefix %q = %v, want %v", test.path, test.prefix, got, test.expected)
			}
		})
	}
}

func TestAuthConfig_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   *AuthConfig
		errorMsg string
	}{
		{
			name:   "disabled config needs nothing",
			config: &AuthConfig{},
		},
		{
			name: "complete config",
			config: &AuthConfig{
				Enabled:          true,
				EntraClientID:    "client",
				EntraTenantID:    "tenant",
				JWKSCacheTimeout: 3600,
			},
		},
		{
			name:     "missing client ID",
			config:   &AuthConfig{Enabled: true, EntraTenantID: "tenant", JWKSCacheTimeout: 3600},
			errorMsg: "entra_client_id is required",
		},
		{
			name:     "missing tenant ID",
			config:   &AuthConfig{Enabled: true, EntraClientID: "client", JWKSCacheTimeout: 3600},
			errorMsg: "entra_tenant_id is required",
		},
		{
			name:     "non-positive cache timeout",
			config:   &AuthConfig{Enabled: true, EntraClientID: "client", EntraTenantID: "tenant"},
			errorMsg: "jwks_cache_timeout must be positive",
		},
		{
			name:     "relative protected prefix",
			config:   &AuthConfig{Enabled: true, EntraClientID: "client", EntraTenantID: "tenant", JWKSCacheTimeout: 60, ProtectedPrefix: "mcp"},
			errorMsg: "protected_prefix must start with '/'",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.ValidateConfig()
			if test.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.errorMsg) {
				t.Errorf("Expected error containing '%s', got %v", test.errorMsg, err)
			}
		})
	}
}

func TestAuthConfig_Endpoints(t *testing.T) {
	config := &AuthConfig{
		EntraAuthority: "https://login.microsoftonline.us/",
		EntraTenantID:  "tenant-67890",
		EntraClientID:  "client",
	}

	issuers := config.Issuers()
	if len(issuers) != 2 || issuers[0] != "https://login.microsoftonline.us/tenant-67890/v2.0" || issuers[1] != "https://sts.windows.net/tenant-67890/" {
		t.Errorf("Issuers() = %v", issuers)
	}
	if got, want := config.JWKSURL(), "https://login.microsoftonline.us/tenant-67890/discovery/v2.0/keys"; got != want {
		t.Errorf("JWKSURL() = %s, want %s", got, want)
	}
	if got := config.Audiences(); len(got) != 2 || got[0] != "client" || got[1] != "api://client" {
		t.Errorf("Audiences() = %v", got)
	}
}
