package azure

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/logicapp-mcp/internal/azureclient"
	"github.com/Azure/logicapp-mcp/internal/config"
	reqctx "github.com/Azure/logicapp-mcp/internal/ctx"
)

// Argument keys that carry Azure scoping rather than domain input.
const (
	ContextKey       = "azure_context"
	LegacyContextKey = "azure"

	SubscriptionIDKey = "subscription_id"
	ResourceGroupKey  = "resource_group"
	TenantIDKey       = "tenant_id"
	ClientIDKey       = "client_id"
	ClientSecretKey   = "client_secret"
)

// FieldKeys lists the context fields in schema order.
var FieldKeys = []string{SubscriptionIDKey, ResourceGroupKey, TenantIDKey, ClientIDKey, ClientSecretKey}

// Context scopes a single tool call to a subscription, resource group and
// identity. It is a value type and is never mutated once resolved.
type Context struct {
	SubscriptionID string
	ResourceGroup  string
	TenantID       string
	ClientID       string
	ClientSecret   string
}

// FromSettings converts configured defaults into a Context.
func FromSettings(s config.AzureSettings) Context {
	return Context{
		SubscriptionID: s.SubscriptionID,
		ResourceGroup:  s.ResourceGroup,
		TenantID:       s.TenantID,
		ClientID:       s.ClientID,
		ClientSecret:   s.ClientSecret,
	}
}

// HasServicePrincipal reports whether tenant, client and secret are all set.
func (c Context) HasServicePrincipal() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// String never includes the secret.
func (c Context) String() string {
	return fmt.Sprintf("subscription=%s resourceGroup=%s tenant=%s client=%s", c.SubscriptionID, c.ResourceGroup, c.TenantID, c.ClientID)
}

// Key identifies the identity behind this context. The secret is
// hashed so it never ends up in a map key verbatim.
func (c Context) Key() string {
	h := sha256.New()
	for _, part := range []string{c.SubscriptionID, c.TenantID, c.ClientID, c.ClientSecret} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CallerKey is Key extended with the forwarded X-Azure-Token when that
// token is the identity in use, so callers sharing a subscription but not
// a token never share cached state.
func (c Context) CallerKey(ctx context.Context) string {
	token, ok := reqctx.AzureToken(ctx)
	if !ok || c.HasServicePrincipal() {
		return c.Key()
	}
	sum := sha256.Sum256([]byte(c.Key() + "\x00" + token))
	return hex.EncodeToString(sum[:])
}

// Credential materializes the token credential for this context. A service
// principal wins when complete; otherwise a bearer token forwarded in the
// X-Azure-Token header is used; otherwise the default credential chain.
func (c Context) Credential(ctx context.Context) (azcore.TokenCredential, error) {
	if c.HasServicePrincipal() {
		cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}
		return cred, nil
	}

	if token, ok := reqctx.AzureToken(ctx); ok {
		return azureclient.NewStaticTokenCredential(token), nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create default credential: %w", err)
	}
	return cred, nil
}

// ExtractContext resolves the Context for a call. Each field is taken from
// the nested azure_context (or legacy azure) object, then from a flat
// argument of the same name, then from defaults. Anything that is not a
// JSON object is treated as empty.
func ExtractContext(params any, defaults Context) Context {
	args, _ := params.(map[string]any)

	nested, _ := args[ContextKey].(map[string]any)
	if nested == nil {
		nested, _ = args[LegacyContextKey].(map[string]any)
	}

	pick := func(key, fallback string) string {
		if v, ok := nested[key].(string); ok && v != "" {
			return v
		}
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
		return fallback
	}

	return Context{
		SubscriptionID: pick(SubscriptionIDKey, defaults.SubscriptionID),
		ResourceGroup:  pick(ResourceGroupKey, defaults.ResourceGroup),
		TenantID:       pick(TenantIDKey, defaults.TenantID),
		ClientID:       pick(ClientIDKey, defaults.ClientID),
		ClientSecret:   pick(ClientSecretKey, defaults.ClientSecret),
	}
}

// StripContext returns a shallow copy of args without any context keys.
func StripContext(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	delete(out, ContextKey)
	delete(out, LegacyContextKey)
	for _, k := range FieldKeys {
		delete(out, k)
	}
	return out
}
