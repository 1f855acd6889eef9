// Package registry provides the tool and resource catalog of one handler
// family (consumption, standard or kudu).
package registry

import (
	"context"
	"sync"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCategory defines a category for tools.
type ToolCategory string

const (
	// CategoryWorkflows defines tools managing workflows themselves.
	CategoryWorkflows ToolCategory = "workflows"
	// CategoryRuns defines tools for runs, run actions and trigger histories.
	CategoryRuns ToolCategory = "runs"
	// CategoryTriggers defines tools for triggers and callback URLs.
	CategoryTriggers ToolCategory = "triggers"
	// CategoryIntegration defines integration account tools.
	CategoryIntegration ToolCategory = "integration"
	// CategoryHosting defines App Service hosting tools for Standard apps.
	CategoryHosting ToolCategory = "hosting"
	// CategoryCLI defines tools backed by the az CLI.
	CategoryCLI ToolCategory = "cli"
	// CategorySCM defines Kudu source control and command tools.
	CategorySCM ToolCategory = "scm"
	// CategoryFiles defines Kudu VFS and zip tools.
	CategoryFiles ToolCategory = "files"
	// CategoryDeployments defines Kudu deployment tools.
	CategoryDeployments ToolCategory = "deployments"
	// CategoryRuntime defines Kudu environment, process and WebJob tools.
	CategoryRuntime ToolCategory = "runtime"
)

// ToolHandler runs one tool call. args have the Azure context keys removed;
// c is the context resolved for the call. The result is rendered with
// tools.Render.
type ToolHandler func(ctx context.Context, c azure.Context, args tools.Args) (interface{}, error)

// ToolDefinition defines a tool and its handler.
type ToolDefinition struct {
	Tool     mcp.Tool
	Handler  ToolHandler
	Category ToolCategory
}

// ResourceReader produces the text of a resource for one call context.
type ResourceReader func(ctx context.Context, c azure.Context) (string, error)

// ResourceDefinition defines a static resource and its reader.
type ResourceDefinition struct {
	Resource mcp.Resource
	Read     ResourceReader
}

// ToolRegistry is the catalog of one handler family. Tools and resources are
// registered once at startup; the required field cache is filled lazily and
// may be read concurrently.
type ToolRegistry struct {
	family    string
	order     []string
	tools     map[string]ToolDefinition
	resources []ResourceDefinition

	mu       sync.RWMutex
	required map[string][]string
}

// NewToolRegistry creates a new tool registry.
func NewToolRegistry(family string) *ToolRegistry {
	return &ToolRegistry{
		family: family,
		tools:  make(map[string]ToolDefinition),
	}
}

// Family returns the family name, e.g. "consumption".
func (r *ToolRegistry) Family() string {
	return r.family
}

// RegisterTool registers a tool with the registry. Registering a name twice
// replaces the handler but keeps the original position.
func (r *ToolRegistry) RegisterTool(tool mcp.Tool, handler ToolHandler, category ToolCategory) {
	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = ToolDefinition{
		Tool:     tool,
		Handler:  handler,
		Category: category,
	}

	r.mu.Lock()
	r.required = nil
	r.mu.Unlock()
}

// RegisterResource registers a readable resource.
func (r *ToolRegistry) RegisterResource(resource mcp.Resource, read ResourceReader) {
	r.resources = append(r.resources, ResourceDefinition{Resource: resource, Read: read})
}

// GetTool returns the definition registered under name.
func (r *ToolRegistry) GetTool(name string) (ToolDefinition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// GetAllTools returns all registered tools.
func (r *ToolRegistry) GetAllTools() map[string]ToolDefinition {
	return r.tools
}

// ListTools returns the advertised tools in registration order, each with the
// azure_context property added to its input schema. It also refreshes the
// required field cache used by ValidateRequired.
func (r *ToolRegistry) ListTools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	required := make(map[string][]string, len(r.order))

	for _, name := range r.order {
		tool := r.tools[name].Tool

		props := make(map[string]interface{}, len(tool.InputSchema.Properties)+1)
		for k, v := range tool.InputSchema.Properties {
			props[k] = v
		}
		props[azure.ContextKey] = AzureContextSchema()
		tool.InputSchema.Properties = props

		req := append([]string{}, tool.InputSchema.Required...)
		tool.InputSchema.Required = req
		required[name] = req

		out = append(out, tool)
	}

	r.mu.Lock()
	r.required = required
	r.mu.Unlock()
	return out
}

// ValidateRequired returns the required arguments of the named tool that are
// absent, nil or the empty string, each listed once in schema order. Only
// presence is checked.
func (r *ToolRegistry) ValidateRequired(name string, args map[string]interface{}) []string {
	r.mu.RLock()
	cached := r.required
	r.mu.RUnlock()

	if cached == nil {
		r.ListTools()
		r.mu.RLock()
		cached = r.required
		r.mu.RUnlock()
	}

	var missing []string
	seen := make(map[string]bool)
	for _, field := range cached[name] {
		if seen[field] {
			continue
		}
		seen[field] = true
		if isMissing(args[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

func isMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// ListResources returns the registered resources in order.
func (r *ToolRegistry) ListResources() []mcp.Resource {
	out := make([]mcp.Resource, 0, len(r.resources))
	for _, def := range r.resources {
		out = append(out, def.Resource)
	}
	return out
}

// GetResource returns the resource registered under uri.
func (r *ToolRegistry) GetResource(uri string) (ResourceDefinition, bool) {
	for _, def := range r.resources {
		if def.Resource.URI == uri {
			return def, true
		}
	}
	return ResourceDefinition{}, false
}
