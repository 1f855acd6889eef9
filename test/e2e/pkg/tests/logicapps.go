package tests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListLogicAppsTest lists the workflows of one tier.
type ListLogicAppsTest struct {
	Target
	// Tier is "consumption" or "standard"
	Tier string
}

func (t *ListLogicAppsTest) tool() string {
	return fmt.Sprintf("list_%s_logic_apps", t.Tier)
}

// Name returns the test name
func (t *ListLogicAppsTest) Name() string {
	return t.tool()
}

// GetParams returns the parameters for verbose output
func (t *ListLogicAppsTest) GetParams() map[string]interface{} {
	return map[string]interface{}{"azure_context": t.azureContext()}
}

// Run executes the test
func (t *ListLogicAppsTest) Run(ctx context.Context, mcpClient *client.Client) (*mcp.CallToolResult, error) {
	return callTool(ctx, mcpClient, t.tool(), t.GetParams())
}

// Validate checks that the result is a JSON array of workflow summaries.
func (t *ListLogicAppsTest) Validate(result *mcp.CallToolResult) error {
	text, err := resultText(result)
	if err != nil {
		return err
	}

	var apps []map[string]interface{}
	if err := json.Unmarshal([]byte(text), &apps); err != nil {
		return fmt.Errorf("response is not a JSON array: %w", err)
	}
	for _, app := range apps {
		if app["plan_type"] != t.Tier {
			return fmt.Errorf("workflow %v has plan_type %v, want %s", app["name"], app["plan_type"], t.Tier)
		}
	}
	return nil
}

// GetLogicAppTest reads one workflow of a tier.
type GetLogicAppTest struct {
	Target
	Tier         string
	WorkflowName string
}

func (t *GetLogicAppTest) tool() string {
	return fmt.Sprintf("get_%s_logic_app", t.Tier)
}

// Name returns the test name
func (t *GetLogicAppTest) Name() string {
	return fmt.Sprintf("%s (workflow: %s)", t.tool(), t.WorkflowName)
}

// GetParams returns the parameters for verbose output
func (t *GetLogicAppTest) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"azure_context": t.azureContext(),
		"workflow_name": t.WorkflowName,
	}
}

// Run executes the test
func (t *GetLogicAppTest) Run(ctx context.Context, mcpClient *client.Client) (*mcp.CallToolResult, error) {
	return callTool(ctx, mcpClient, t.tool(), t.GetParams())
}

// Validate checks that the named workflow came back as JSON.
func (t *GetLogicAppTest) Validate(result *mcp.CallToolResult) error {
	text, err := resultText(result)
	if err != nil {
		return err
	}
	if text == "null" {
		return fmt.Errorf("workflow %s not found in the %s tier", t.WorkflowName, t.Tier)
	}
	if !json.Valid([]byte(text)) {
		return fmt.Errorf("response is not valid JSON")
	}
	return requireKeywords(text, t.WorkflowName, t.Tier)
}
