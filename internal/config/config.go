package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/logicapp-mcp/internal/version"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// ErrHelp is returned by ParseFlags when -h/--help or --version was handled.
var ErrHelp = errors.New("help requested")

// AzureSettings are the process-wide Azure defaults a request context falls
// back to when it does not carry its own values.
type AzureSettings struct {
	SubscriptionID string
	ResourceGroup  string
	TenantID       string
	ClientID       string
	ClientSecret   string
}

// HasServicePrincipal reports whether all service principal fields are set.
func (s AzureSettings) HasServicePrincipal() bool {
	return s.TenantID != "" && s.ClientID != "" && s.ClientSecret != ""
}

// ConfigData holds the server configuration
type ConfigData struct {
	// Command-line specific options
	Transport string
	Host      string
	Port      int
	Debug     bool
	LogLevel  string

	// Azure defaults
	Azure AzureSettings
	// Location used when creating workflows and integration accounts
	Location string

	// MCP identity
	ServerName    string
	ServerVersion string

	// Timeout for az CLI execution in seconds
	Timeout int
	// Timeout for Kudu HTTP calls in seconds
	KuduTimeout int

	// Path of the dotenv file, empty disables loading
	EnvFile string

	// OTLP endpoint for OpenTelemetry traces
	OTLPEndpoint string
	// Application Insights instrumentation key
	AppInsightsKey string

	// Authentication configuration
	Auth *AuthConfig
}

// NewConfig creates and returns a new configuration instance
func NewConfig() *ConfigData {
	return &ConfigData{
		Transport:     "http",
		Host:          "localhost",
		Port:          8000,
		LogLevel:      "info",
		Location:      "East US",
		ServerName:    "logicapp-mcp",
		ServerVersion: version.GetVersion(),
		Timeout:       300,
		KuduTimeout:   60,
		EnvFile:       ".env",
		Auth:          NewAuthConfig(),
	}
}

// Address returns the host:port listen address.
func (cfg *ConfigData) Address() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// ParseFlags parses command line arguments and updates the configuration.
// Values not given on the command line are taken from the environment,
// after the dotenv file (if any) has been loaded into it.
func (cfg *ConfigData) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("logicapp-mcp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Server configuration
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport mechanism to use (http, stdio or streamable-http)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to listen on (http and streamable-http transports)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on (http and streamable-http transports)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug mode")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Path of a dotenv file to load (empty disables)")

	// Azure defaults
	fs.StringVar(&cfg.Azure.SubscriptionID, "subscription-id", "", "Default Azure subscription ID")
	fs.StringVar(&cfg.Azure.ResourceGroup, "resource-group", "", "Default Azure resource group")
	fs.StringVar(&cfg.Azure.TenantID, "tenant-id", "", "Azure tenant ID for service principal auth")
	fs.StringVar(&cfg.Azure.ClientID, "client-id", "", "Azure client ID for service principal auth")
	fs.StringVar(&cfg.Location, "location", cfg.Location, "Azure location for new Logic Apps")

	// MCP identity
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "MCP server name")
	fs.StringVar(&cfg.ServerVersion, "server-version", cfg.ServerVersion, "MCP server version")

	// Timeouts
	fs.IntVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for az CLI execution in seconds")
	fs.IntVar(&cfg.KuduTimeout, "kudu-timeout", cfg.KuduTimeout, "Timeout for Kudu REST calls in seconds")

	// Authentication settings
	fs.BoolVar(&cfg.Auth.Enabled, "auth-enabled", cfg.Auth.Enabled, "Enable Entra ID authentication on /mcp routes")
	fs.StringVar(&cfg.Auth.EntraClientID, "auth-client-id", "", "Entra ID client ID")
	fs.StringVar(&cfg.Auth.EntraTenantID, "auth-tenant-id", "", "Entra ID tenant ID")
	fs.StringVar(&cfg.Auth.EntraAuthority, "auth-authority", cfg.Auth.EntraAuthority, "Entra ID authority URL for different Azure clouds")
	fs.IntVar(&cfg.Auth.JWKSCacheTimeout, "auth-jwks-cache-timeout", cfg.Auth.JWKSCacheTimeout, "JWKS cache timeout in seconds")
	fs.BoolVar(&cfg.Auth.RequireAuthForHTTP, "auth-require-for-http", cfg.Auth.RequireAuthForHTTP, "Require authentication for HTTP transports")

	// Logging settings
	verbose := fs.BoolP("verbose", "v", false, "Enable verbose logging")

	// Telemetry settings
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint for OpenTelemetry traces (e.g. localhost:4317)")
	fs.StringVar(&cfg.AppInsightsKey, "appinsights-key", "", "Application Insights instrumentation key")

	showHelp := fs.BoolP("help", "h", false, "Show help message")
	showVersion := fs.Bool("version", false, "Show version information and exit")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n\nUsage of logicapp-mcp:\n%s", err, fs.FlagUsages())
	}

	if *showHelp {
		fmt.Printf("Usage of logicapp-mcp:\n%s", fs.FlagUsages())
		return ErrHelp
	}

	if *showVersion {
		cfg.PrintVersion()
		return ErrHelp
	}

	if cfg.EnvFile != "" {
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", cfg.EnvFile, err)
		}
	}

	if err := cfg.loadFromEnv(fs); err != nil {
		return err
	}

	if *verbose {
		cfg.Debug = true
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return nil
}

// loadFromEnv fills every setting whose flag was not given explicitly.
func (cfg *ConfigData) loadFromEnv(fs *flag.FlagSet) error {
	strs := []struct {
		flag   string
		envKey string
		target *string
	}{
		{"transport", "MCP_TRANSPORT", &cfg.Transport},
		{"host", "HOST", &cfg.Host},
		{"log-level", "LOG_LEVEL", &cfg.LogLevel},
		{"subscription-id", "AZURE_SUBSCRIPTION_ID", &cfg.Azure.SubscriptionID},
		{"resource-group", "AZURE_RESOURCE_GROUP", &cfg.Azure.ResourceGroup},
		{"tenant-id", "AZURE_TENANT_ID", &cfg.Azure.TenantID},
		{"client-id", "AZURE_CLIENT_ID", &cfg.Azure.ClientID},
		{"location", "LOGIC_APP_LOCATION", &cfg.Location},
		{"server-name", "MCP_SERVER_NAME", &cfg.ServerName},
		{"server-version", "MCP_SERVER_VERSION", &cfg.ServerVersion},
		{"otlp-endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTLPEndpoint},
		{"appinsights-key", "APPINSIGHTS_INSTRUMENTATIONKEY", &cfg.AppInsightsKey},
		{"auth-client-id", "LOGICAPP_MCP_AUTH_ENTRA_CLIENT_ID", &cfg.Auth.EntraClientID},
		{"auth-tenant-id", "LOGICAPP_MCP_AUTH_ENTRA_TENANT_ID", &cfg.Auth.EntraTenantID},
		{"auth-authority", "LOGICAPP_MCP_AUTH_ENTRA_AUTHORITY", &cfg.Auth.EntraAuthority},
	}
	for _, s := range strs {
		if fs.Changed(s.flag) {
			continue
		}
		if v, ok := os.LookupEnv(s.envKey); ok && v != "" {
			*s.target = v
		}
	}

	// The client secret is never accepted on the command line.
	if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		cfg.Azure.ClientSecret = v
	}

	if !fs.Changed("port") {
		if v := os.Getenv("PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid PORT %q: %w", v, err)
			}
			cfg.Port = port
		}
	}

	if !fs.Changed("timeout") {
		if v := os.Getenv("MCP_CLI_TIMEOUT"); v != "" {
			timeout, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid MCP_CLI_TIMEOUT %q: %w", v, err)
			}
			cfg.Timeout = timeout
		}
	}

	if !fs.Changed("kudu-timeout") {
		if v := os.Getenv("KUDU_TIMEOUT"); v != "" {
			timeout, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid KUDU_TIMEOUT %q: %w", v, err)
			}
			cfg.KuduTimeout = timeout
		}
	}

	if !fs.Changed("debug") {
		if v := os.Getenv("DEBUG"); v != "" {
			cfg.Debug = parseBool(v)
		}
	}

	if !fs.Changed("auth-enabled") {
		if v := os.Getenv("LOGICAPP_MCP_AUTH_ENABLED"); v != "" {
			cfg.Auth.Enabled = parseBool(v)
		}
	}

	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// PrintVersion prints version information
func (cfg *ConfigData) PrintVersion() {
	versionInfo := version.GetVersionInfo()
	fmt.Printf("logicapp-mcp version %s\n", versionInfo["version"])
	fmt.Printf("Git commit: %s\n", versionInfo["gitCommit"])
	fmt.Printf("Git tree state: %s\n", versionInfo["gitTreeState"])
	fmt.Printf("Go version: %s\n", versionInfo["goVersion"])
	fmt.Printf("Platform: %s\n", versionInfo["platform"])
}
