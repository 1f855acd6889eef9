package client

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// Options are the optional credentials sent with every request.
type Options struct {
	// BearerToken is an Entra ID token for servers started with --auth-enabled
	BearerToken string
	// AzureToken is an ARM token the server uses instead of its own identity
	AzureToken string
}

func (o Options) headers() map[string]string {
	h := map[string]string{}
	if o.BearerToken != "" {
		h["Authorization"] = "Bearer " + o.BearerToken
	}
	if o.AzureToken != "" {
		h["X-Azure-Token"] = o.AzureToken
	}
	return h
}

// MCPClient wraps the mcp-go client for E2E testing
type MCPClient struct {
	client    *client.Client
	serverURL string
}

// NewMCPClient connects to the streamable HTTP endpoint of a running
// server. Both the http facade and the streamable-http transport serve it.
func NewMCPClient(serverURL string, opts Options) (*MCPClient, error) {
	mcpClient, err := client.NewStreamableHttpClient(serverURL+"/mcp", transport.WithHTTPHeaders(opts.headers()))
	if err != nil {
		return nil, fmt.Errorf("failed to create streamable HTTP client: %w", err)
	}

	return &MCPClient{
		client:    mcpClient,
		serverURL: serverURL,
	}, nil
}

// Initialize performs the MCP handshake
func (c *MCPClient) Initialize(ctx context.Context) (*mcp.InitializeResult, error) {
	result, err := c.client.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "logicapp-mcp-e2e-test",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}
	return result, nil
}

// ListTools retrieves available tools from the server
func (c *MCPClient) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result, nil
}

// ListResources retrieves the resource pointers of all families.
func (c *MCPClient) ListResources(ctx context.Context) (*mcp.ListResourcesResult, error) {
	result, err := c.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return result, nil
}

// Close closes the MCP client connection
func (c *MCPClient) Close() error {
	return c.client.Close()
}

// GetInternalClient returns the internal mcp-go client for direct access
func (c *MCPClient) GetInternalClient() *client.Client {
	return c.client
}
