// Package azure resolves per-call Azure scoping and builds the management
// SDK clients used by the Logic Apps, App Service and Kudu adapters.
package azure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v2"
	reqctx "github.com/Azure/logicapp-mcp/internal/ctx"
)

// ErrNoSubscription is returned when neither the call nor the configuration
// names a subscription.
var ErrNoSubscription = errors.New("azure subscription ID is not configured")

// SubscriptionClients contains Azure clients for a specific subscription and identity.
type SubscriptionClients struct {
	SubscriptionID string
	Credential     azcore.TokenCredential
	Options        *arm.ClientOptions

	// Logic Apps
	Workflows                *armlogic.WorkflowsClient
	WorkflowRuns             *armlogic.WorkflowRunsClient
	WorkflowTriggers         *armlogic.WorkflowTriggersClient
	WorkflowTriggerHistories *armlogic.WorkflowTriggerHistoriesClient
	WorkflowRunActions       *armlogic.WorkflowRunActionsClient
	WorkflowVersions         *armlogic.WorkflowVersionsClient
	IntegrationAccounts      *armlogic.IntegrationAccountsClient
	IntegrationMaps          *armlogic.IntegrationAccountMapsClient
	IntegrationSchemas       *armlogic.IntegrationAccountSchemasClient
	IntegrationPartners      *armlogic.IntegrationAccountPartnersClient
	IntegrationAgreements    *armlogic.IntegrationAccountAgreementsClient

	// App Service, networking and monitoring for Standard apps
	WebApps *armappservice.WebAppsClient
	Plans   *armappservice.PlansClient
	Subnets *armnetwork.SubnetsClient
	Metrics *armmonitor.MetricsClient
}

// CredentialFunc resolves the credential for a call.
type CredentialFunc func(ctx context.Context, c Context) (azcore.TokenCredential, error)

// ClientFactory builds SubscriptionClients and caches them per identity.
type ClientFactory struct {
	// Map of context key to clients for that context
	clientsMap map[string]*SubscriptionClients
	// Mutex to ensure thread safety when accessing the map
	mu sync.RWMutex

	options       *arm.ClientOptions
	newCredential CredentialFunc
}

// NewClientFactory creates a factory that resolves credentials with
// Context.Credential. options may be nil.
func NewClientFactory(options *arm.ClientOptions) *ClientFactory {
	return NewClientFactoryWithCredential(func(ctx context.Context, c Context) (azcore.TokenCredential, error) {
		return c.Credential(ctx)
	}, options)
}

// NewClientFactoryWithCredential creates a factory with a custom credential source.
func NewClientFactoryWithCredential(newCredential CredentialFunc, options *arm.ClientOptions) *ClientFactory {
	return &ClientFactory{
		clientsMap:    make(map[string]*SubscriptionClients),
		options:       options,
		newCredential: newCredential,
	}
}

// ClientsFor returns the clients for c, creating them on first use.
// Clients built from a forwarded header token are not cached since the
// token is short lived.
func (f *ClientFactory) ClientsFor(ctx context.Context, c Context) (*SubscriptionClients, error) {
	if c.SubscriptionID == "" {
		return nil, ErrNoSubscription
	}

	if _, fromHeader := reqctx.AzureToken(ctx); fromHeader && !c.HasServicePrincipal() {
		return f.create(ctx, c)
	}

	key := c.Key()

	// First try to get existing clients with a read lock
	f.mu.RLock()
	clients, exists := f.clientsMap[key]
	f.mu.RUnlock()
	if exists {
		return clients, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Check again in case another goroutine created the clients while we were waiting for the lock
	if clients, exists = f.clientsMap[key]; exists {
		return clients, nil
	}

	clients, err := f.create(ctx, c)
	if err != nil {
		return nil, err
	}
	f.clientsMap[key] = clients
	return clients, nil
}

func (f *ClientFactory) create(ctx context.Context, c Context) (*SubscriptionClients, error) {
	cred, err := f.newCredential(ctx, c)
	if err != nil {
		return nil, err
	}
	return NewSubscriptionClients(c.SubscriptionID, cred, f.options)
}

// NewSubscriptionClients creates every SDK client for one subscription.
func NewSubscriptionClients(subscriptionID string, cred azcore.TokenCredential, options *arm.ClientOptions) (*SubscriptionClients, error) {
	var (
		s   = &SubscriptionClients{SubscriptionID: subscriptionID, Credential: cred, Options: options}
		err error
	)

	wrap := func(name string, err error) error {
		return fmt.Errorf("failed to create %s client for subscription %s: %w", name, subscriptionID, err)
	}

	if s.Workflows, err = armlogic.NewWorkflowsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("workflows", err)
	}
	if s.WorkflowRuns, err = armlogic.NewWorkflowRunsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("workflow runs", err)
	}
	if s.WorkflowTriggers, err = armlogic.NewWorkflowTriggersClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("workflow triggers", err)
	}
	if s.WorkflowTriggerHistories, err = armlogic.NewWorkflowTriggerHistoriesClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("workflow trigger histories", err)
	}
	if s.WorkflowRunActions, err = armlogic.NewWorkflowRunActionsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("workflow run actions", err)
	}
	if s.WorkflowVersions, err = armlogic.NewWorkflowVersionsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("workflow versions", err)
	}
	if s.IntegrationAccounts, err = armlogic.NewIntegrationAccountsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("integration accounts", err)
	}
	if s.IntegrationMaps, err = armlogic.NewIntegrationAccountMapsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("integration account maps", err)
	}
	if s.IntegrationSchemas, err = armlogic.NewIntegrationAccountSchemasClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("integration account schemas", err)
	}
	if s.IntegrationPartners, err = armlogic.NewIntegrationAccountPartnersClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("integration account partners", err)
	}
	if s.IntegrationAgreements, err = armlogic.NewIntegrationAccountAgreementsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("integration account agreements", err)
	}
	if s.WebApps, err = armappservice.NewWebAppsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("web apps", err)
	}
	if s.Plans, err = armappservice.NewPlansClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("app service plans", err)
	}
	if s.Subnets, err = armnetwork.NewSubnetsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("subnets", err)
	}
	if s.Metrics, err = armmonitor.NewMetricsClient(subscriptionID, cred, options); err != nil {
		return nil, wrap("metrics", err)
	}

	return s, nil
}
