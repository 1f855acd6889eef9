package tests

import (
	"context"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolTest defines the interface for all E2E tool tests
type ToolTest interface {
	// Name returns the name of the test
	Name() string

	// GetParams returns the tool arguments, for verbose output
	GetParams() map[string]interface{}

	// Run executes the test and returns the result
	Run(ctx context.Context, mcpClient *client.Client) (*mcp.CallToolResult, error)

	// Validate verifies the tool call result
	Validate(result *mcp.CallToolResult) error
}

// Target is the Azure scope every test call is sent with.
type Target struct {
	SubscriptionID string
	ResourceGroup  string
}

func (t Target) azureContext() map[string]interface{} {
	return map[string]interface{}{
		"subscription_id": t.SubscriptionID,
		"resource_group":  t.ResourceGroup,
	}
}
