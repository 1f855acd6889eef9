// Package dispatcher routes MCP JSON-RPC requests for one handler family to
// its tool registry.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/Azure/logicapp-mcp/internal/registry"
	"github.com/Azure/logicapp-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// ProtocolVersion is the MCP revision spoken by every family.
const ProtocolVersion = "2024-11-05"

// Request is an MCP request. Method is kept untyped so a non-string method
// can be reported as an invalid request.
type Request struct {
	Method interface{} `json:"method"`
	Params interface{} `json:"params,omitempty"`
	ID     interface{} `json:"id,omitempty"`
}

// Response carries either Result or Error, never both.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
	ID     interface{} `json:"id,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

func newError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ServerInfo identifies the family in the initialize result.
type ServerInfo struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities are the feature flags reported by initialize.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
	Logging   bool `json:"logging"`
}

// Observer is notified after every tool call. Implementations must be safe
// for concurrent use.
type Observer interface {
	ToolCalled(ctx context.Context, family, tool string, duration time.Duration, err error)
}

// Dispatcher handles the requests of one family. It holds no per-request
// state and may serve requests concurrently.
type Dispatcher struct {
	info      ServerInfo
	registry  *registry.ToolRegistry
	defaults  azure.Context
	observers []Observer
}

// New creates a dispatcher for reg. defaults are the configured Azure values
// every call falls back to.
func New(info ServerInfo, reg *registry.ToolRegistry, defaults azure.Context, observers ...Observer) *Dispatcher {
	return &Dispatcher{info: info, registry: reg, defaults: defaults, observers: observers}
}

// Info returns the server info reported by initialize.
func (d *Dispatcher) Info() ServerInfo {
	return d.info
}

// Registry returns the family's tool registry.
func (d *Dispatcher) Registry() *registry.ToolRegistry {
	return d.registry
}

// HandleRequest processes one request and returns its response envelope.
// The request id is echoed only when it is truthy.
func (d *Dispatcher) HandleRequest(ctx context.Context, req Request) Response {
	result, err := d.route(ctx, req)

	resp := Response{}
	if err != nil {
		resp.Error = err
	} else {
		resp.Result = result
	}
	if isTruthy(req.ID) {
		resp.ID = req.ID
	}
	return resp
}

func (d *Dispatcher) route(ctx context.Context, req Request) (interface{}, *Error) {
	method, ok := req.Method.(string)
	if !ok {
		return nil, newError(mcp.INVALID_REQUEST, "Invalid request: method must be a string")
	}

	switch method {
	case string(mcp.MethodInitialize):
		return d.initialize(), nil
	case string(mcp.MethodToolsList):
		return map[string]interface{}{"tools": d.registry.ListTools()}, nil
	case string(mcp.MethodToolsCall):
		return d.callTool(ctx, req.Params)
	case string(mcp.MethodResourcesList):
		return map[string]interface{}{"resources": d.registry.ListResources()}, nil
	case string(mcp.MethodResourcesRead):
		return d.readResource(ctx, req.Params)
	default:
		return nil, newError(mcp.METHOD_NOT_FOUND, "Method not found: %s", method)
	}
}

func (d *Dispatcher) initialize() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"serverInfo":      d.info,
		"capabilities":    d.info.Capabilities,
	}
}

// CallTool runs a tool and returns the text of its single content block.
// It applies the same context resolution, validation and error mapping as a
// tools/call request.
func (d *Dispatcher) CallTool(ctx context.Context, name string, arguments interface{}) (string, *Error) {
	start := time.Now()
	text, err := d.callToolText(ctx, name, arguments)

	// Names are caller chosen, so only registered tools reach observers.
	if _, known := d.registry.GetTool(name); !known {
		return text, err
	}

	var callErr error
	if err != nil {
		callErr = err
	}
	for _, o := range d.observers {
		o.ToolCalled(ctx, d.registry.Family(), name, time.Since(start), callErr)
	}
	return text, err
}

func (d *Dispatcher) callToolText(ctx context.Context, name string, arguments interface{}) (string, *Error) {
	c := azure.ExtractContext(arguments, d.defaults)

	raw, _ := arguments.(map[string]interface{})
	args := azure.StripContext(raw)

	if missing := d.registry.ValidateRequired(name, args); len(missing) > 0 {
		return "", newError(mcp.INVALID_PARAMS, "Missing required arguments: %s", strings.Join(missing, ", "))
	}

	def, ok := d.registry.GetTool(name)
	if !ok {
		return "", newError(mcp.METHOD_NOT_FOUND, "Unknown tool: %s", name)
	}

	tools.LogToolCall(name, raw)
	result, err := def.Handler(ctx, c, tools.Args(args))
	if err != nil {
		tools.LogToolResult(name, "", err)
		logger.Errorf("Error executing %s: %v", name, err)
		return "", newError(mcp.INTERNAL_ERROR, "Error executing %s: %v", name, err)
	}

	text, err := tools.Render(result)
	if err != nil {
		return "", newError(mcp.INTERNAL_ERROR, "Error executing %s: %v", name, err)
	}
	tools.LogToolResult(name, text, nil)
	return text, nil
}

func (d *Dispatcher) callTool(ctx context.Context, params interface{}) (interface{}, *Error) {
	p, ok := params.(map[string]interface{})
	if !ok {
		return nil, newError(mcp.INVALID_PARAMS, "Invalid params: tools/call params must be an object")
	}
	name, _ := p["name"].(string)

	text, err := d.CallTool(ctx, name, p["arguments"])
	if err != nil {
		return nil, err
	}
	return mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}, nil
}

func (d *Dispatcher) readResource(ctx context.Context, params interface{}) (interface{}, *Error) {
	p, _ := params.(map[string]interface{})
	uri, _ := p["uri"].(string)

	contents, err := d.ReadResource(ctx, uri, p)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"contents": contents}, nil
}

// ReadResource reads the resource at uri. params may carry Azure context
// fields the same way tool arguments do.
func (d *Dispatcher) ReadResource(ctx context.Context, uri string, params map[string]interface{}) ([]mcp.ResourceContents, *Error) {
	def, ok := d.registry.GetResource(uri)
	if !ok {
		return nil, newError(mcp.INVALID_PARAMS, "Unknown resource URI: %s", uri)
	}

	text, err := def.Read(ctx, azure.ExtractContext(params, d.defaults))
	if err != nil {
		return nil, newError(mcp.INTERNAL_ERROR, "Error reading %s: %v", uri, err)
	}

	mimeType := def.Resource.MIMEType
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeType, Text: text},
	}, nil
}

// isTruthy mirrors JSON truthiness: null, false, 0, "" and empty
// containers are falsy.
func isTruthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
