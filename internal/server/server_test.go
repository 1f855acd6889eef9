package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/azureclient"
	"github.com/Azure/logicapp-mcp/internal/config"
	"github.com/Azure/logicapp-mcp/internal/kudu"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSub   = "00000000-0000-0000-0000-000000000000"
	workflows = `{"value":[
		{"id":"/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/workflows/orders",
		 "name":"orders","type":"Microsoft.Logic/workflows","location":"eastus",
		 "properties":{"state":"Enabled","definition":{}}},
		{"id":"/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/workflows/billing",
		 "name":"billing","type":"Microsoft.Logic/workflows","location":"eastus",
		 "properties":{"state":"Enabled","sku":{"name":"WS1"},"definition":{}}}
	]}`
)

// armTransport serves the workflow list and 404s everything else.
type armTransport struct {
	mu    sync.Mutex
	calls int
}

func (a *armTransport) Do(req *http.Request) (*http.Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	status, body := http.StatusNotFound, `{"error":{"code":"ResourceNotFound","message":"not found"}}`
	if req.Method == http.MethodGet && strings.HasSuffix(strings.ToLower(req.URL.Path), "/providers/microsoft.logic/workflows") {
		status, body = http.StatusOK, workflows
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func testConfig() *config.ConfigData {
	cfg := config.NewConfig()
	cfg.ServerName = "logicapp-mcp"
	cfg.ServerVersion = "1.2.3"
	cfg.Azure = config.AzureSettings{SubscriptionID: testSub, ResourceGroup: "rg"}
	cfg.OTLPEndpoint = ""
	cfg.AppInsightsKey = ""
	cfg.Auth = config.NewAuthConfig()
	return cfg
}

func newTestService(t *testing.T, cfg *config.ConfigData) *Service {
	t.Helper()
	clients := azure.NewClientFactoryWithCredential(func(context.Context, azure.Context) (azcore.TokenCredential, error) {
		return azureclient.NewStaticTokenCredential("token"), nil
	}, &arm.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Transport: &armTransport{},
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
		DisableRPRegistration: true,
	})

	s := NewService(cfg, WithClientFactory(clients), WithKuduService(kudu.NewService(time.Second)))
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestInitializeBuildsEveryFamily(t *testing.T) {
	s := newTestService(t, testConfig())

	for _, family := range []string{FamilyConsumption, FamilyStandard, FamilyKudu} {
		d := s.Dispatcher(family)
		require.NotNil(t, d, family)
		info := d.Info()
		assert.Equal(t, "logicapp-mcp-"+family, info.Name)
		assert.Equal(t, "1.2.3", info.Version)
		assert.True(t, info.Capabilities.Tools)
		assert.True(t, info.Capabilities.Resources)
		assert.False(t, info.Capabilities.Prompts)
		assert.NotEmpty(t, d.Registry().ListTools())
	}
	assert.Nil(t, s.Dispatcher("unknown"))
}

func TestFacadeStatusRoutes(t *testing.T) {
	h := newTestService(t, testConfig()).Handler()

	rec := serve(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"message": "Logic App MCP Server is running", "version": "1.2.3"}, decode(t, rec))

	rec = serve(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "healthy", "service": "logicapp-mcp"}, decode(t, rec))

	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/nope", "").Code)
}

func TestFacadeHeaders(t *testing.T) {
	h := newTestService(t, testConfig()).Handler()

	rec := serve(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodOptions, "/mcp/request", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestFacadeListsBothTiers(t *testing.T) {
	h := newTestService(t, testConfig()).Handler()

	rec := serve(t, h, http.MethodGet, "/logic-apps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_count"])
	require.Len(t, body["consumption_logic_apps"], 1)
	require.Len(t, body["standard_logic_apps"], 1)
	assert.Equal(t, "orders", body["consumption_logic_apps"].([]interface{})[0].(map[string]interface{})["name"])
	assert.Equal(t, "billing", body["standard_logic_apps"].([]interface{})[0].(map[string]interface{})["name"])

	rec = serve(t, h, http.MethodGet, "/logic-apps/standard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Contains(t, body, "standard_logic_apps")
	assert.NotContains(t, body, "consumption_logic_apps")
}

func TestFacadeListingIsSoftWithoutDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Azure = config.AzureSettings{}
	h := newTestService(t, cfg).Handler()

	rec := serve(t, h, http.MethodGet, "/logic-apps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["total_count"])
	assert.Empty(t, body["consumption_logic_apps"])
}

func TestFacadeMCPRequests(t *testing.T) {
	h := newTestService(t, testConfig()).Handler()

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		check    func(t *testing.T, body map[string]interface{})
	}{
		{
			name:     "initialize on kudu",
			path:     "/mcp/kudu/request",
			body:     `{"method":"initialize","id":7}`,
			wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				result := body["result"].(map[string]interface{})
				assert.Equal(t, "2024-11-05", result["protocolVersion"])
				assert.Equal(t, "logicapp-mcp-kudu", result["serverInfo"].(map[string]interface{})["name"])
				assert.Equal(t, float64(7), body["id"])
			},
		},
		{
			name:     "default route is consumption",
			path:     "/mcp/request",
			body:     `{"method":"initialize"}`,
			wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				result := body["result"].(map[string]interface{})
				assert.Equal(t, "logicapp-mcp-consumption", result["serverInfo"].(map[string]interface{})["name"])
				assert.NotContains(t, body, "id")
			},
		},
		{
			name:     "unknown method",
			path:     "/mcp/standard/request",
			body:     `{"method":"prompts/list","id":"a"}`,
			wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(mcp.METHOD_NOT_FOUND), body["error"].(map[string]interface{})["code"])
				assert.Equal(t, "a", body["id"])
			},
		},
		{
			name:     "array body",
			path:     "/mcp/request",
			body:     `[1,2]`,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(mcp.PARSE_ERROR), body["error"].(map[string]interface{})["code"])
			},
		},
		{
			name:     "malformed body",
			path:     "/mcp/consumption/request",
			body:     `{"method":`,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(mcp.PARSE_ERROR), body["error"].(map[string]interface{})["code"])
			},
		},
		{
			name:     "tool call",
			path:     "/mcp/consumption/request",
			body:     `{"method":"tools/call","id":1,"params":{"name":"list_consumption_logic_apps","arguments":{}}}`,
			wantCode: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				content := body["result"].(map[string]interface{})["content"].([]interface{})
				require.Len(t, content, 1)
				assert.Contains(t, content[0].(map[string]interface{})["text"], "orders")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			tt.check(t, decode(t, rec))
		})
	}
}

func TestFacadeAuthGuardsMCPRoutesOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.EntraClientID = "client-id"
	cfg.Auth.EntraTenantID = "tenant-id"
	h := newTestService(t, cfg).Handler()

	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/logic-apps", "").Code)

	rec := serve(t, h, http.MethodPost, "/mcp/request", `{"method":"initialize"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFacadeMetrics(t *testing.T) {
	h := newTestService(t, testConfig()).Handler()
	serve(t, h, http.MethodGet, "/health", "")
	serve(t, h, http.MethodPost, "/mcp/request", `{"method":"tools/call","params":{"name":"get_consumption_logic_app","arguments":{}}}`)

	rec := serve(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `logicapp_mcp_http_requests_total{code="200",route="/health"}`)
	assert.Contains(t, body, `logicapp_mcp_tool_calls_total{family="consumption",status="error",tool="get_consumption_logic_app"}`)
}

func TestBridgeMapsToolErrors(t *testing.T) {
	s := newTestService(t, testConfig())
	srv := s.mcpServer()

	call := func(name string, args string) *mcp.CallToolResult {
		msg := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"` + name + `","arguments":` + args + `}}`
		resp := srv.HandleMessage(context.Background(), json.RawMessage(msg))
		out, ok := resp.(mcp.JSONRPCResponse)
		require.True(t, ok, "unexpected response %#v", resp)
		result, ok := out.Result.(mcp.CallToolResult)
		require.True(t, ok, "unexpected result %#v", out.Result)
		return &result
	}

	result := call("get_consumption_logic_app", `{}`)
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].(mcp.TextContent).Text, "workflow_name")

	result = call("list_consumption_logic_apps", `{}`)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].(mcp.TextContent).Text, "orders")
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	cfg := testConfig()
	cfg.Transport = "sse"
	err := newTestService(t, cfg).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transport type: sse")
}

func TestRunStopsWithContext(t *testing.T) {
	cfg := testConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	s := newTestService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestOTLPEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		insecure bool
	}{
		{"", "", false},
		{"collector:4317", "collector:4317", false},
		{"http://localhost:4317/", "localhost:4317", true},
		{"https://otel.example.com:4317", "otel.example.com:4317", false},
	}
	for _, tt := range tests {
		got, insecure := otlpEndpoint(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.insecure, insecure, tt.raw)
	}
}
