package logicapp

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/Azure/logicapp-mcp/internal/logger"
)

// callbackURLLifetime is how long an integration account callback URL stays valid.
const callbackURLLifetime = time.Hour

func (c *Consumption) ListIntegrationAccounts(ctx context.Context, top int) []map[string]any {
	out := []map[string]any{}
	if !c.ready() {
		return out
	}
	opts := &armlogic.IntegrationAccountsClientListByResourceGroupOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.IntegrationAccounts.NewListByResourceGroupPager(c.resourceGroup, opts), top)
	if err != nil {
		logger.Errorf("Error listing integration accounts: %v", err)
		return out
	}
	for _, item := range items {
		out = append(out, serializeIntegrationAccount(item))
	}
	return out
}

func (c *Consumption) GetIntegrationAccount(ctx context.Context, name string) map[string]any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.IntegrationAccounts.Get(ctx, c.resourceGroup, name, nil)
	if err != nil {
		logger.Errorf("Error getting integration account %s: %v", name, err)
		return map[string]any{}
	}
	return serializeIntegrationAccount(toJSON(resp))
}

// CreateIntegrationAccount creates an account on the given SKU (Free when empty).
func (c *Consumption) CreateIntegrationAccount(ctx context.Context, name, sku, location string) bool {
	if sku == "" {
		sku = string(armlogic.IntegrationAccountSKUNameFree)
	}
	return c.act("creating integration account", name, func() error {
		account := armlogic.IntegrationAccount{
			Location: to.Ptr(c.location(location)),
			SKU:      &armlogic.IntegrationAccountSKU{Name: to.Ptr(armlogic.IntegrationAccountSKUName(sku))},
		}
		_, err := c.clients.IntegrationAccounts.CreateOrUpdate(ctx, c.resourceGroup, name, account, nil)
		return err
	})
}

func (c *Consumption) DeleteIntegrationAccount(ctx context.Context, name string) bool {
	return c.act("deleting integration account", name, func() error {
		_, err := c.clients.IntegrationAccounts.Delete(ctx, c.resourceGroup, name, nil)
		return err
	})
}

func (c *Consumption) ListIntegrationAccountMaps(ctx context.Context, account string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.IntegrationAccountMapsClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.IntegrationMaps.NewListPager(c.resourceGroup, account, opts), top)
	if err != nil {
		logger.Errorf("Error listing maps for %s: %v", account, err)
		return []map[string]any{}
	}
	return projectAll(items, mapFields)
}

func (c *Consumption) ListIntegrationAccountSchemas(ctx context.Context, account string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.IntegrationAccountSchemasClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.IntegrationSchemas.NewListPager(c.resourceGroup, account, opts), top)
	if err != nil {
		logger.Errorf("Error listing schemas for %s: %v", account, err)
		return []map[string]any{}
	}
	return projectAll(items, schemaFields)
}

func (c *Consumption) ListIntegrationAccountPartners(ctx context.Context, account string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.IntegrationAccountPartnersClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.IntegrationPartners.NewListPager(c.resourceGroup, account, opts), top)
	if err != nil {
		logger.Errorf("Error listing partners for %s: %v", account, err)
		return []map[string]any{}
	}
	return projectAll(items, partnerFields)
}

func (c *Consumption) ListIntegrationAccountAgreements(ctx context.Context, account string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.IntegrationAccountAgreementsClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.IntegrationAgreements.NewListPager(c.resourceGroup, account, opts), top)
	if err != nil {
		logger.Errorf("Error listing agreements for %s: %v", account, err)
		return []map[string]any{}
	}
	return projectAll(items, agreementFields)
}

// GetIntegrationAccountCallbackURL returns a callback URL valid for one hour.
func (c *Consumption) GetIntegrationAccountCallbackURL(ctx context.Context, name, keyType string) map[string]any {
	if !c.ready() {
		return map[string]any{"error": errNotInitialized.Error()}
	}
	if keyType == "" {
		keyType = string(armlogic.KeyTypePrimary)
	}

	params := armlogic.GetCallbackURLParameters{
		KeyType:  to.Ptr(armlogic.KeyType(keyType)),
		NotAfter: to.Ptr(time.Now().UTC().Add(callbackURLLifetime)),
	}
	resp, err := c.clients.IntegrationAccounts.ListCallbackURL(ctx, c.resourceGroup, name, params, nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"callback_url": toJSON(resp).Get("value").Value()}
}
