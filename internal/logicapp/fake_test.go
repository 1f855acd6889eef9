package logicapp

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/azureclient"
	"github.com/stretchr/testify/require"
)

const (
	testSub = "00000000-0000-0000-0000-000000000000"
	testRG  = "rg"
)

type route struct {
	method string
	suffix string
	status int
	body   string
}

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
}

// fakeARM answers management requests from a route table. Unmatched
// requests get a 404 ARM error.
type fakeARM struct {
	mu       sync.Mutex
	routes   []route
	requests []recordedRequest
}

func (f *fakeARM) on(method, suffix string, status int, body string) *fakeARM {
	f.routes = append(f.routes, route{method: method, suffix: suffix, status: status, body: body})
	return f
}

func (f *fakeARM) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: req.Method, path: req.URL.Path, query: req.URL.RawQuery, body: string(body)})
	f.mu.Unlock()

	status, payload := http.StatusNotFound, `{"error":{"code":"ResourceNotFound","message":"not found"}}`
	path := strings.ToLower(req.URL.Path)
	for _, r := range f.routes {
		if r.method == req.Method && strings.HasSuffix(path, strings.ToLower(r.suffix)) {
			status, payload = r.status, r.body
			break
		}
	}

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    req,
	}, nil
}

func (f *fakeARM) find(method, suffix string) (recordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.method == method && strings.HasSuffix(strings.ToLower(r.path), strings.ToLower(suffix)) {
			return r, true
		}
	}
	return recordedRequest{}, false
}

func (f *fakeARM) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newFakeClients(t *testing.T, f *fakeARM) *azure.SubscriptionClients {
	t.Helper()
	opts := &arm.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Transport: f,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
		DisableRPRegistration: true,
	}
	clients, err := azure.NewSubscriptionClients(testSub, azureclient.NewStaticTokenCredential("token"), opts)
	require.NoError(t, err)
	return clients
}

const (
	consumptionWorkflow = `{
		"id": "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/workflows/orders",
		"name": "orders",
		"type": "Microsoft.Logic/workflows",
		"location": "eastus",
		"properties": {
			"state": "Enabled",
			"createdTime": "2024-01-01T00:00:00Z",
			"changedTime": "2024-01-02T00:00:00Z",
			"definition": {"triggers": {"recurrence": {"type": "Recurrence"}}, "actions": {}},
			"parameters": {"env": {"type": "String", "value": "prod"}}
		}
	}`

	standardWorkflow = `{
		"id": "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/workflows/billing",
		"name": "billing",
		"type": "Microsoft.Logic/workflows",
		"location": "eastus",
		"properties": {
			"state": "Enabled",
			"sku": {"name": "WS1", "plan": {"id": "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Web/serverfarms/plan"}},
			"definition": {}
		}
	}`

	iseWorkflow = `{
		"id": "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/workflows/legacy",
		"name": "legacy",
		"type": "Microsoft.Logic/workflows",
		"location": "eastus",
		"properties": {
			"state": "Enabled",
			"integrationServiceEnvironment": {"id": "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg/providers/Microsoft.Logic/integrationServiceEnvironments/ise"}
		}
	}`
)

const workflowsPath = "/resourceGroups/rg/providers/Microsoft.Logic/workflows"
