// Package server wires the consumption, standard and kudu families to their
// transports: the HTTP facade, stdio and streamable HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/config"
	"github.com/Azure/logicapp-mcp/internal/dispatcher"
	"github.com/Azure/logicapp-mcp/internal/handlers"
	"github.com/Azure/logicapp-mcp/internal/kudu"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/Azure/logicapp-mcp/internal/logicapp"
	"github.com/Azure/logicapp-mcp/internal/registry"
	"github.com/Azure/logicapp-mcp/internal/telemetry"
)

// Family names, also used as the suffix of each family's server name.
const (
	FamilyConsumption = "consumption"
	FamilyStandard    = "standard"
	FamilyKudu        = "kudu"
)

var familyOrder = []string{FamilyConsumption, FamilyStandard, FamilyKudu}

// Service owns the dispatchers of all families and the shared adapters
// behind them.
type Service struct {
	cfg         *config.ConfigData
	clients     *azure.ClientFactory
	kudu        *kudu.Service
	adapters    *handlers.Adapters
	telemetry   *telemetry.Service
	defaults    azure.Context
	dispatchers map[string]*dispatcher.Dispatcher

	httpServer *http.Server
}

// Option customizes a Service before Initialize.
type Option func(*Service)

// WithClientFactory replaces the Azure client factory.
func WithClientFactory(f *azure.ClientFactory) Option {
	return func(s *Service) { s.clients = f }
}

// WithKuduService replaces the Kudu client service.
func WithKuduService(k *kudu.Service) Option {
	return func(s *Service) { s.kudu = k }
}

// WithAdapters replaces the per-call adapter factory.
func WithAdapters(a *handlers.Adapters) Option {
	return func(s *Service) { s.adapters = a }
}

// NewService creates a new service.
func NewService(cfg *config.ConfigData, opts ...Option) *Service {
	s := &Service{
		cfg:         cfg,
		defaults:    azure.FromSettings(cfg.Azure),
		dispatchers: make(map[string]*dispatcher.Dispatcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize builds telemetry, the shared clients and one dispatcher per
// family.
func (s *Service) Initialize(ctx context.Context) error {
	logger.Infof("Initializing Logic App MCP service")

	endpoint, insecure := otlpEndpoint(s.cfg.OTLPEndpoint)
	tel, err := telemetry.NewService(ctx, telemetry.Config{
		ServiceName:        s.cfg.ServerName,
		ServiceVersion:     s.cfg.ServerVersion,
		OTLPEndpoint:       endpoint,
		OTLPInsecure:       insecure,
		InstrumentationKey: s.cfg.AppInsightsKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetry = tel

	if s.clients == nil {
		s.clients = azure.NewClientFactory(nil)
	}
	if s.kudu == nil {
		s.kudu = kudu.NewService(time.Duration(s.cfg.KuduTimeout) * time.Second)
	}
	if s.adapters == nil {
		s.adapters = handlers.NewAdapters(s.clients, logicapp.Options{Location: s.cfg.Location}, s.cfg.Timeout, s.kudu)
	}

	register := map[string]func(*registry.ToolRegistry, *handlers.Adapters){
		FamilyConsumption: handlers.RegisterConsumptionTools,
		FamilyStandard:    handlers.RegisterStandardTools,
		FamilyKudu:        handlers.RegisterKuduTools,
	}
	for _, family := range familyOrder {
		reg := registry.NewToolRegistry(family)
		register[family](reg, s.adapters)

		info := dispatcher.ServerInfo{
			Name:    s.cfg.ServerName + "-" + family,
			Version: s.cfg.ServerVersion,
			Capabilities: dispatcher.Capabilities{
				Tools:     true,
				Resources: true,
				Logging:   true,
			},
		}
		s.dispatchers[family] = dispatcher.New(info, reg, s.defaults, s.telemetry)
		logger.Infof("Registered %d tools for the %s family", len(reg.GetAllTools()), family)
	}

	if s.defaults.SubscriptionID == "" {
		logger.Warnf("No default subscription configured, every call must supply azure_context.subscription_id")
	}
	return nil
}

// Dispatcher returns the dispatcher of family, or nil.
func (s *Service) Dispatcher(family string) *dispatcher.Dispatcher {
	return s.dispatchers[family]
}

// Run serves the configured transport until ctx is cancelled or the
// transport fails.
func (s *Service) Run(ctx context.Context) error {
	s.telemetry.TrackStartup(s.cfg.Transport)

	switch s.cfg.Transport {
	case "stdio":
		logger.Infof("Logic App MCP version: %s", s.cfg.ServerVersion)
		logger.Infof("Listening for requests on STDIO...")
		return s.serveStdio(ctx)
	case "streamable-http":
		logger.Infof("Streamable HTTP server listening on %s/mcp", s.cfg.Address())
		return s.serveHTTP(ctx, s.streamableHandler())
	case "http":
		logger.Infof("Logic App MCP facade listening on %s", s.cfg.Address())
		return s.serveHTTP(ctx, s.Handler())
	default:
		return fmt.Errorf("invalid transport type: %s (must be 'http', 'stdio' or 'streamable-http')", s.cfg.Transport)
	}
}

func (s *Service) serveHTTP(ctx context.Context, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the HTTP listener, if any, and flushes telemetry.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Shutdown(ctx))
	}
	if s.telemetry != nil {
		errs = append(errs, s.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// otlpEndpoint turns a configured endpoint into the host:port the gRPC
// exporter expects. An http:// scheme selects a plaintext connection.
func otlpEndpoint(raw string) (endpoint string, insecure bool) {
	switch {
	case strings.HasPrefix(raw, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(raw, "http://"), "/"), true
	case strings.HasPrefix(raw, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(raw, "https://"), "/"), false
	default:
		return raw, false
	}
}
