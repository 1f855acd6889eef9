package registry

import "github.com/Azure/logicapp-mcp/internal/azure"

var contextFieldDescriptions = map[string]string{
	azure.SubscriptionIDKey: "Azure subscription ID",
	azure.ResourceGroupKey:  "Resource group name",
	azure.TenantIDKey:       "Azure AD tenant ID",
	azure.ClientIDKey:       "Service principal client ID",
	azure.ClientSecretKey:   "Service principal client secret",
}

// AzureContextSchema is the schema fragment advertised as the azure_context
// property of every tool. A fresh map is returned on each call.
func AzureContextSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(azure.FieldKeys))
	for _, key := range azure.FieldKeys {
		props[key] = map[string]interface{}{
			"type":        "string",
			"description": contextFieldDescriptions[key],
		}
	}
	return map[string]interface{}{
		"type":        "object",
		"description": "Azure context for this call. Omitted fields fall back to the server defaults.",
		"properties":  props,
	}
}
