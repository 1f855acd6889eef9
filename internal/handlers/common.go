// Package handlers declares the tools of the consumption, standard and kudu
// families and binds them to per-call adapters.
package handlers

import (
	"context"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/kudu"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/Azure/logicapp-mcp/internal/logicapp"
)

// Adapters builds the adapters a tool call needs, bound to the call's
// context. Values returned are never shared between calls.
type Adapters struct {
	clients    azure.ClientProvider
	options    logicapp.Options
	cliTimeout int
	kudu       *kudu.Service

	// newRunner overrides the az process, for tests.
	newRunner func(c azure.Context) logicapp.Runner
}

// NewAdapters creates the per-call adapter factory.
func NewAdapters(clients azure.ClientProvider, options logicapp.Options, cliTimeout int, kuduService *kudu.Service) *Adapters {
	return &Adapters{
		clients:    clients,
		options:    options,
		cliTimeout: cliTimeout,
		kudu:       kuduService,
	}
}

// WithRunner makes CLI adapters use runner instead of spawning az.
func (a *Adapters) WithRunner(newRunner func(c azure.Context) logicapp.Runner) *Adapters {
	a.newRunner = newRunner
	return a
}

// subscriptionClients resolves the SDK clients for c. Failures are logged
// and yield nil, which the logic adapters treat as "not initialized".
func (a *Adapters) subscriptionClients(ctx context.Context, c azure.Context) *azure.SubscriptionClients {
	clients, err := a.clients.ClientsFor(ctx, c)
	if err != nil {
		logger.Errorf("Failed to initialize Azure clients for %s: %v", c, err)
		return nil
	}
	return clients
}

// Consumption returns a Consumption adapter for the call.
func (a *Adapters) Consumption(ctx context.Context, c azure.Context) *logicapp.Consumption {
	return logicapp.NewConsumption(a.subscriptionClients(ctx, c), c.ResourceGroup, a.options)
}

// Standard returns a Standard adapter for the call.
func (a *Adapters) Standard(ctx context.Context, c azure.Context) *logicapp.Standard {
	return logicapp.NewStandard(a.subscriptionClients(ctx, c), c.ResourceGroup, a.options)
}

// CLI returns an az logicapp driver for the call.
func (a *Adapters) CLI(c azure.Context) *logicapp.CLI {
	if a.newRunner != nil {
		return logicapp.NewCLIWithRunner(a.newRunner(c), c)
	}
	return logicapp.NewCLI(c, a.cliTimeout)
}

// Kudu returns a Kudu client for the call. Publishing credentials are read
// with the call's identity and cached per caller and resource group.
func (a *Adapters) Kudu(ctx context.Context, c azure.Context) (*kudu.Client, error) {
	clients, err := a.clients.ClientsFor(ctx, c)
	if err != nil {
		return nil, err
	}
	scope := c.CallerKey(ctx) + "/" + c.ResourceGroup
	return a.kudu.Client(scope, kudu.WebAppsProfiles(clients.WebApps, c.ResourceGroup)), nil
}
