package server

import (
	"context"
	"net/http"
	"os"

	"github.com/Azure/logicapp-mcp/internal/ctx"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mcpServer exposes the tools and resources of every family on one mcp-go
// server. Calls go through the family's dispatcher, so context resolution
// and validation match the HTTP facade.
func (s *Service) mcpServer() *server.MCPServer {
	srv := server.NewMCPServer(
		s.cfg.ServerName,
		s.cfg.ServerVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	for _, family := range familyOrder {
		d := s.dispatchers[family]
		for _, tool := range d.Registry().ListTools() {
			name := tool.Name
			srv.AddTool(tool, func(c context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				text, err := d.CallTool(c, name, req.GetArguments())
				if err != nil {
					return mcp.NewToolResultError(err.Message), nil
				}
				return mcp.NewToolResultText(text), nil
			})
		}
		for _, resource := range d.Registry().ListResources() {
			srv.AddResource(resource, func(c context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				contents, err := d.ReadResource(c, req.Params.URI, req.Params.Arguments)
				if err != nil {
					return nil, err
				}
				return contents, nil
			})
		}
	}
	return srv
}

func (s *Service) streamableServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcpServer(),
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(func(c context.Context, r *http.Request) context.Context {
			if token := r.Header.Get(string(ctx.AzureTokenKey)); token != "" {
				return ctx.WithAzureToken(c, token)
			}
			return c
		}),
	)
}

func (s *Service) serveStdio(c context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer())
	stdio.SetContextFunc(func(c context.Context) context.Context {
		if token := os.Getenv("AZURE_ACCESS_TOKEN"); token != "" {
			return ctx.WithAzureToken(c, token)
		}
		return c
	})
	logger.Debugf("Serving %d families over stdio", len(s.dispatchers))
	return stdio.Listen(c, os.Stdin, os.Stdout)
}
