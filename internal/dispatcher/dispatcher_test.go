package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/registry"
	"github.com/Azure/logicapp-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingObserver) ToolCalled(_ context.Context, family, tool string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, family+"/"+tool)
	o.errs = append(o.errs, err)
}

type fixture struct {
	dispatcher *Dispatcher
	observer   *recordingObserver
	lastCtx    azure.Context
	lastArgs   tools.Args
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{observer: &recordingObserver{}}

	reg := registry.NewToolRegistry("consumption")
	reg.RegisterTool(mcp.NewTool("list_consumption_logic_apps"), func(_ context.Context, c azure.Context, args tools.Args) (interface{}, error) {
		f.lastCtx, f.lastArgs = c, args
		return []map[string]interface{}{{"name": "orders"}}, nil
	}, registry.CategoryWorkflows)
	reg.RegisterTool(mcp.NewTool("get_consumption_logic_app",
		mcp.WithString("workflow_name", mcp.Required()),
	), func(context.Context, azure.Context, tools.Args) (interface{}, error) {
		return nil, nil
	}, registry.CategoryWorkflows)
	reg.RegisterTool(mcp.NewTool("get_consumption_run",
		mcp.WithString("workflow_name", mcp.Required()),
		mcp.WithString("run_name", mcp.Required()),
	), func(context.Context, azure.Context, tools.Args) (interface{}, error) {
		return "ok", nil
	}, registry.CategoryRuns)
	reg.RegisterTool(mcp.NewTool("get_file"), func(context.Context, azure.Context, tools.Args) (interface{}, error) {
		return []byte{0x00, 0xff}, nil
	}, registry.CategoryFiles)
	reg.RegisterTool(mcp.NewTool("delete_consumption_logic_app"), func(_ context.Context, _ azure.Context, args tools.Args) (interface{}, error) {
		return tools.Action("Consumption Logic App '"+args.String("workflow_name", "")+"' deleted", false), nil
	}, registry.CategoryWorkflows)
	reg.RegisterTool(mcp.NewTool("execute_command"), func(context.Context, azure.Context, tools.Args) (interface{}, error) {
		return nil, errors.New("Kudu API POST https://app.scm.azurewebsites.net/api/command returned status 500")
	}, registry.CategorySCM)
	reg.RegisterResource(mcp.NewResource("logicapp://consumption/workflows", "Consumption Logic Apps List",
		mcp.WithMIMEType("application/json"),
	), func(context.Context, azure.Context) (string, error) {
		return `[{"name":"orders"}]`, nil
	})

	info := ServerInfo{Name: "logicapp-mcp-consumption", Version: "0.1.0", Capabilities: Capabilities{Tools: true, Resources: true, Logging: true}}
	defaults := azure.Context{SubscriptionID: "default-sub", ResourceGroup: "default-rg"}
	f.dispatcher = New(info, reg, defaults, f.observer)
	return f
}

func (f *fixture) call(t *testing.T, method interface{}, params interface{}, id interface{}) map[string]interface{} {
	t.Helper()
	resp := f.dispatcher.HandleRequest(context.Background(), Request{Method: method, Params: params, ID: id})
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	_, hasResult := out["result"]
	_, hasError := out["error"]
	assert.False(t, hasResult && hasError, "a response never has both result and error")
	return out
}

func errorCode(t *testing.T, resp map[string]interface{}) (float64, string) {
	t.Helper()
	e, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "expected an error response, got %v", resp)
	return e["code"].(float64), e["message"].(string)
}

func toolText(t *testing.T, resp map[string]interface{}) string {
	t.Helper()
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "expected a result, got %v", resp)
	content := result["content"].([]interface{})
	require.Len(t, content, 1)
	block := content[0].(map[string]interface{})
	assert.Equal(t, "text", block["type"])
	return block["text"].(string)
}

func TestInitialize(t *testing.T) {
	resp := newFixture(t).call(t, "initialize", nil, float64(1))
	result := resp["result"].(map[string]interface{})
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "logicapp-mcp-consumption", info["name"])
	assert.Equal(t, map[string]interface{}{"tools": true, "resources": true, "prompts": false, "logging": true}, result["capabilities"])
	assert.Equal(t, float64(1), resp["id"])
}

func TestRequestShape(t *testing.T) {
	f := newFixture(t)

	code, _ := errorCode(t, f.call(t, float64(3), nil, nil))
	assert.Equal(t, float64(mcp.INVALID_REQUEST), code)

	code, msg := errorCode(t, f.call(t, "prompts/list", nil, nil))
	assert.Equal(t, float64(mcp.METHOD_NOT_FOUND), code)
	assert.Contains(t, msg, "prompts/list")

	code, _ = errorCode(t, f.call(t, "tools/call", "not an object", nil))
	assert.Equal(t, float64(mcp.INVALID_PARAMS), code)
}

func TestIDEcho(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		id   interface{}
		echo bool
	}{
		{"abc", true},
		{float64(7), true},
		{float64(0), false},
		{"", false},
		{nil, false},
		{false, false},
	}
	for _, tt := range tests {
		resp := f.call(t, "tools/list", nil, tt.id)
		_, has := resp["id"]
		assert.Equal(t, tt.echo, has, "id %v", tt.id)
	}
}

func TestToolsList(t *testing.T) {
	resp := newFixture(t).call(t, "tools/list", nil, nil)
	listed := resp["result"].(map[string]interface{})["tools"].([]interface{})
	require.Len(t, listed, 6)
	for _, item := range listed {
		schema := item.(map[string]interface{})["inputSchema"].(map[string]interface{})
		ctxProps := schema["properties"].(map[string]interface{})["azure_context"].(map[string]interface{})["properties"].(map[string]interface{})
		assert.Len(t, ctxProps, 5)
		for _, key := range azure.FieldKeys {
			assert.Contains(t, ctxProps, key)
		}
	}
}

func TestToolsCallMissingArguments(t *testing.T) {
	f := newFixture(t)

	code, msg := errorCode(t, f.call(t, "tools/call", map[string]interface{}{"name": "get_consumption_logic_app", "arguments": map[string]interface{}{}}, nil))
	assert.Equal(t, float64(mcp.INVALID_PARAMS), code)
	assert.Equal(t, "Missing required arguments: workflow_name", msg)

	code, msg = errorCode(t, f.call(t, "tools/call", map[string]interface{}{
		"name":      "get_consumption_run",
		"arguments": map[string]interface{}{"workflow_name": ""},
	}, nil))
	assert.Equal(t, float64(mcp.INVALID_PARAMS), code)
	assert.Equal(t, "Missing required arguments: workflow_name, run_name", msg)
}

func TestToolsCallUnknownTool(t *testing.T) {
	code, msg := errorCode(t, newFixture(t).call(t, "tools/call", map[string]interface{}{"name": "unknown_tool"}, nil))
	assert.Equal(t, float64(mcp.METHOD_NOT_FOUND), code)
	assert.Equal(t, "Unknown tool: unknown_tool", msg)
}

func TestUnknownToolsAreNotObserved(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"bogus_1", "bogus_2", ""} {
		f.call(t, "tools/call", map[string]interface{}{"name": name}, nil)
	}
	assert.Empty(t, f.observer.calls)

	f.call(t, "tools/call", map[string]interface{}{"name": "get_consumption_run"}, nil)
	assert.Equal(t, []string{"consumption/get_consumption_run"}, f.observer.calls)
	require.Len(t, f.observer.errs, 1)
	assert.Error(t, f.observer.errs[0])
}

func TestToolsCallResolvesAndStripsContext(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, "tools/call", map[string]interface{}{
		"name": "list_consumption_logic_apps",
		"arguments": map[string]interface{}{
			"azure_context":  map[string]interface{}{"subscription_id": "nested-sub"},
			"resource_group": "flat-rg",
			"top":            float64(3),
		},
	}, "req-1")

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &listed))
	assert.Equal(t, []map[string]interface{}{{"name": "orders"}}, listed)

	assert.Equal(t, azure.Context{SubscriptionID: "nested-sub", ResourceGroup: "flat-rg"}, f.lastCtx)
	assert.Equal(t, tools.Args{"top": float64(3)}, f.lastArgs)
	assert.Equal(t, []string{"consumption/list_consumption_logic_apps"}, f.observer.calls)
}

func TestToolsCallRendersResults(t *testing.T) {
	f := newFixture(t)

	text := toolText(t, f.call(t, "tools/call", map[string]interface{}{"name": "get_file"}, nil))
	assert.Equal(t, "Binary file (base64): AP8=", text)

	text = toolText(t, f.call(t, "tools/call", map[string]interface{}{
		"name":      "delete_consumption_logic_app",
		"arguments": map[string]interface{}{"workflow_name": "orders"},
	}, nil))
	assert.Equal(t, "Consumption Logic App 'orders' deleted: false", text)

	text = toolText(t, f.call(t, "tools/call", map[string]interface{}{
		"name":      "get_consumption_logic_app",
		"arguments": map[string]interface{}{"workflow_name": "missing"},
	}, nil))
	assert.Equal(t, "null", text)
}

func TestToolsCallAdapterError(t *testing.T) {
	f := newFixture(t)
	code, msg := errorCode(t, f.call(t, "tools/call", map[string]interface{}{"name": "execute_command"}, nil))
	assert.Equal(t, float64(mcp.INTERNAL_ERROR), code)
	assert.Contains(t, msg, "execute_command")
	assert.Contains(t, msg, "returned status 500")

	require.Len(t, f.observer.errs, 1)
	assert.Error(t, f.observer.errs[0])
}

func TestResources(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "resources/list", nil, nil)
	resources := resp["result"].(map[string]interface{})["resources"].([]interface{})
	require.Len(t, resources, 1)
	assert.Equal(t, "logicapp://consumption/workflows", resources[0].(map[string]interface{})["uri"])

	resp = f.call(t, "resources/read", map[string]interface{}{"uri": "logicapp://consumption/workflows"}, nil)
	contents := resp["result"].(map[string]interface{})["contents"].([]interface{})
	require.Len(t, contents, 1)
	first := contents[0].(map[string]interface{})
	assert.Equal(t, "application/json", first["mimeType"])

	var parsed []interface{}
	require.NoError(t, json.Unmarshal([]byte(first["text"].(string)), &parsed), "text is a JSON array")

	code, msg := errorCode(t, f.call(t, "resources/read", map[string]interface{}{"uri": "logicapp://nope"}, nil))
	assert.Equal(t, float64(mcp.INVALID_PARAMS), code)
	assert.Contains(t, msg, "logicapp://nope")
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, isTruthy("x"))
	assert.True(t, isTruthy(float64(-1)))
	assert.True(t, isTruthy([]interface{}{1}))
	assert.True(t, isTruthy(json.Number("2")))
	assert.False(t, isTruthy(json.Number("0")))
	assert.False(t, isTruthy(map[string]interface{}{}))
}
