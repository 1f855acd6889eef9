package tests

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

func callTool(ctx context.Context, mcpClient *client.Client, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result, nil
}

// resultText returns the first text block of a successful result.
func resultText(result *mcp.CallToolResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty result content")
	}

	var text string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text = tc.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in result")
	}
	if result.IsError {
		return "", fmt.Errorf("tool reported an error: %s", text)
	}
	return text, nil
}

func requireKeywords(text string, keywords ...string) error {
	for _, keyword := range keywords {
		if !strings.Contains(text, keyword) {
			return fmt.Errorf("response missing expected keyword: %s", keyword)
		}
	}
	return nil
}
