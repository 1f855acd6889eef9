package tests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// KuduReadTest calls a read-only Kudu tool against a Standard app.
type KuduReadTest struct {
	Target
	Tool    string
	AppName string
}

// Name returns the test name
func (t *KuduReadTest) Name() string {
	return fmt.Sprintf("%s (app: %s)", t.Tool, t.AppName)
}

// GetParams returns the parameters for verbose output
func (t *KuduReadTest) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"azure_context": t.azureContext(),
		"app_name":      t.AppName,
	}
}

// Run executes the test
func (t *KuduReadTest) Run(ctx context.Context, mcpClient *client.Client) (*mcp.CallToolResult, error) {
	return callTool(ctx, mcpClient, t.Tool, t.GetParams())
}

// Validate checks that the Kudu response was passed through as JSON.
func (t *KuduReadTest) Validate(result *mcp.CallToolResult) error {
	text, err := resultText(result)
	if err != nil {
		return err
	}
	if !json.Valid([]byte(text)) {
		return fmt.Errorf("response is not valid JSON")
	}
	return nil
}
