package logicapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/tidwall/gjson"
)

// DefaultTriggerTimeout bounds a callback POST when the caller sets none.
const DefaultTriggerTimeout = 30 * time.Second

var errNotInitialized = errors.New("Client not initialized")

// Options carries the process wide settings adapters need.
type Options struct {
	// Location for new workflows and integration accounts
	Location string
	// HTTPClient posts to trigger callback URLs
	HTTPClient *http.Client
}

// TriggerRequest describes a callback invocation.
type TriggerRequest struct {
	TriggerName string
	Payload     any
	Headers     map[string]string
	Timeout     time.Duration
}

// workflows holds what both tiers share. It never returns errors: failures
// are logged and turned into empty values.
type workflows struct {
	clients       *azure.SubscriptionClients
	resourceGroup string
	plan          PlanType
	opts          Options
}

func newWorkflows(clients *azure.SubscriptionClients, resourceGroup string, plan PlanType, opts Options) workflows {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return workflows{clients: clients, resourceGroup: resourceGroup, plan: plan, opts: opts}
}

func (w *workflows) ready() bool {
	return w.clients != nil && w.resourceGroup != ""
}

// ListLogicApps returns summaries of the workflows of this tier in the
// resource group.
func (w *workflows) ListLogicApps(ctx context.Context) []map[string]any {
	out := []map[string]any{}
	if !w.ready() {
		return out
	}

	items, err := listPages(ctx, w.clients.Workflows.NewListByResourceGroupPager(w.resourceGroup, nil), 0)
	if err != nil {
		logger.Errorf("Error listing Logic Apps in %s: %v", w.resourceGroup, err)
		return out
	}
	for _, item := range items {
		if classifyJSON(item) == w.plan {
			out = append(out, workflowSummary(item, w.plan))
		}
	}
	return out
}

// GetLogicApp returns the workflow detail, or nil when it does not exist or
// belongs to another tier.
func (w *workflows) GetLogicApp(ctx context.Context, name string) map[string]any {
	if !w.ready() {
		return nil
	}

	resp, err := w.clients.Workflows.Get(ctx, w.resourceGroup, name, nil)
	if err != nil {
		logger.Errorf("Error getting Logic App %s: %v", name, err)
		return nil
	}
	if Classify(&resp.Workflow) != w.plan {
		return nil
	}
	return workflowDetail(toJSON(resp.Workflow), w.plan)
}

// GetRunHistory returns the most recent runs.
func (w *workflows) GetRunHistory(ctx context.Context, name string, limit int) []map[string]any {
	runs, err := w.listRuns(ctx, name, limit, "")
	if err != nil {
		logger.Errorf("Error getting run history for %s: %v", name, err)
		return []map[string]any{}
	}
	return projectAll(runs, runHistoryFields)
}

func (w *workflows) listRuns(ctx context.Context, name string, top int, filter string) ([]gjson.Result, error) {
	if !w.ready() {
		return nil, errNotInitialized
	}
	opts := &armlogic.WorkflowRunsClientListOptions{}
	if top > 0 {
		opts.Top = to.Ptr(int32(top))
	}
	if filter != "" {
		opts.Filter = to.Ptr(filter)
	}
	return listPages(ctx, w.clients.WorkflowRuns.NewListPager(w.resourceGroup, name, opts), top)
}

// TriggerLogicApp posts the payload to the trigger's callback URL. Only a
// 202 counts as success.
func (w *workflows) TriggerLogicApp(ctx context.Context, name string, req TriggerRequest) map[string]any {
	failed := func(err error) map[string]any {
		return map[string]any{"success": false, "error": err.Error(), "plan_type": w.plan.String()}
	}

	if !w.ready() {
		return failed(errNotInitialized)
	}
	if req.TriggerName == "" {
		req.TriggerName = "manual"
	}

	url, err := w.callbackURL(ctx, name, req.TriggerName)
	if err != nil {
		return failed(err)
	}

	status, body, err := w.post(ctx, url, req.Payload, req.Headers, req.Timeout)
	if err != nil {
		return failed(err)
	}
	return map[string]any{
		"success":     status == http.StatusAccepted,
		"status_code": status,
		"response":    body,
		"plan_type":   w.plan.String(),
	}
}

func (w *workflows) callbackURL(ctx context.Context, name, trigger string) (string, error) {
	resp, err := w.clients.WorkflowTriggers.ListCallbackURL(ctx, w.resourceGroup, name, trigger, nil)
	if err != nil {
		return "", err
	}
	if resp.Value == nil {
		return "", fmt.Errorf("trigger %s of %s has no callback URL", trigger, name)
	}
	return *resp.Value, nil
}

func (w *workflows) post(ctx context.Context, url string, payload any, headers map[string]string, timeout time.Duration) (int, string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if payload == nil {
		payload = map[string]any{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := w.opts.HTTPClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

// put creates or replaces a workflow from a JSON shaped body.
func (w *workflows) put(ctx context.Context, name string, body map[string]any) error {
	wf, err := workflowFromMap(body)
	if err != nil {
		return err
	}
	_, err = w.clients.Workflows.CreateOrUpdate(ctx, w.resourceGroup, name, wf, nil)
	return err
}

func (w *workflows) location(override string) string {
	if override != "" {
		return override
	}
	return w.opts.Location
}
