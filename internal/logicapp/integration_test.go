package logicapp

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const accountsPath = "/resourceGroups/rg/providers/Microsoft.Logic/integrationAccounts"

const integrationAccount = `{
	"id": "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/integrationAccounts/b2b",
	"name": "b2b",
	"type": "Microsoft.Logic/integrationAccounts",
	"location": "eastus",
	"sku": {"name": "Standard"},
	"properties": {"state": "Enabled"}
}`

func TestIntegrationAccounts(t *testing.T) {
	f := (&fakeARM{}).
		on(http.MethodGet, accountsPath, http.StatusOK, listBody(integrationAccount)).
		on(http.MethodGet, accountsPath+"/b2b", http.StatusOK, integrationAccount).
		on(http.MethodPut, accountsPath+"/fresh", http.StatusCreated, `{"name":"fresh","sku":{"name":"Free"}}`).
		on(http.MethodDelete, accountsPath+"/b2b", http.StatusOK, ``)
	c := newConsumption(t, f)
	ctx := context.Background()

	accounts := c.ListIntegrationAccounts(ctx, 10)
	require.Len(t, accounts, 1)
	assert.Equal(t, "b2b", accounts[0]["name"])
	assert.Equal(t, map[string]any{"name": "Standard"}, accounts[0]["sku"])
	assert.Equal(t, map[string]any{"state": "Enabled"}, accounts[0]["properties"])

	account := c.GetIntegrationAccount(ctx, "b2b")
	assert.Equal(t, "eastus", account["location"])
	assert.Empty(t, c.GetIntegrationAccount(ctx, "missing"))

	require.True(t, c.CreateIntegrationAccount(ctx, "fresh", "", ""))
	req, _ := f.find(http.MethodPut, accountsPath+"/fresh")
	body := gjson.Parse(req.body)
	assert.Equal(t, "Free", body.Get("sku.name").String())
	assert.Equal(t, "East US", body.Get("location").String())

	assert.True(t, c.DeleteIntegrationAccount(ctx, "b2b"))
	assert.False(t, c.DeleteIntegrationAccount(ctx, "missing"))
}

func TestIntegrationAccountArtifacts(t *testing.T) {
	f := (&fakeARM{}).
		on(http.MethodGet, "/b2b/maps", http.StatusOK, listBody(`{"name":"m1","properties":{"mapType":"Xslt"}}`)).
		on(http.MethodGet, "/b2b/schemas", http.StatusOK, listBody(`{"name":"s1","properties":{"schemaType":"Xml","targetNamespace":"urn:orders"}}`)).
		on(http.MethodGet, "/b2b/partners", http.StatusOK, listBody(`{"name":"p1","properties":{"partnerType":"B2B"}}`)).
		on(http.MethodGet, "/b2b/agreements", http.StatusOK, listBody(`{"name":"a1","properties":{"agreementType":"AS2"}}`))
	c := newConsumption(t, f)
	ctx := context.Background()

	maps := c.ListIntegrationAccountMaps(ctx, "b2b", 5)
	require.Len(t, maps, 1)
	assert.Equal(t, "Xslt", maps[0]["map_type"])

	schemas := c.ListIntegrationAccountSchemas(ctx, "b2b", 5)
	require.Len(t, schemas, 1)
	assert.Equal(t, "urn:orders", schemas[0]["target_namespace"])

	partners := c.ListIntegrationAccountPartners(ctx, "b2b", 5)
	require.Len(t, partners, 1)
	assert.Equal(t, "B2B", partners[0]["partner_type"])

	agreements := c.ListIntegrationAccountAgreements(ctx, "b2b", 5)
	require.Len(t, agreements, 1)
	assert.Equal(t, "AS2", agreements[0]["agreement_type"])

	assert.Empty(t, c.ListIntegrationAccountMaps(ctx, "missing", 5))
}

func TestIntegrationAccountCallbackURL(t *testing.T) {
	f := (&fakeARM{}).on(http.MethodPost, accountsPath+"/b2b/listCallbackUrl", http.StatusOK, `{"value":"https://b2b.example/callback"}`)
	c := newConsumption(t, f)

	res := c.GetIntegrationAccountCallbackURL(context.Background(), "b2b", "")
	assert.Equal(t, map[string]any{"callback_url": "https://b2b.example/callback"}, res)

	req, found := f.find(http.MethodPost, accountsPath+"/b2b/listCallbackUrl")
	require.True(t, found)
	body := gjson.Parse(req.body)
	assert.Equal(t, "Primary", body.Get("keyType").String())
	notAfter, err := time.Parse(time.RFC3339Nano, body.Get("notAfter").String())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), notAfter, time.Minute)

	missing := c.GetIntegrationAccountCallbackURL(context.Background(), "missing", "Secondary")
	assert.Contains(t, missing, "error")
}
