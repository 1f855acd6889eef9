package logicapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/logger"
)

// metricsRunWindow caps how many runs the execution metrics look at.
const metricsRunWindow = 1000

// Consumption manages serverless (multi-tenant) workflows.
type Consumption struct {
	workflows
}

// NewConsumption binds a Consumption adapter to one subscription's clients
// and a resource group. clients may be nil, in which case every operation
// degrades to its empty result.
func NewConsumption(clients *azure.SubscriptionClients, resourceGroup string, opts Options) *Consumption {
	return &Consumption{workflows: newWorkflows(clients, resourceGroup, PlanConsumption, opts)}
}

// CreateRequest carries the optional parts of a new workflow.
type CreateRequest struct {
	Definition    any
	Parameters    any
	AccessControl any
	Location      string
}

// CreateLogicApp creates or replaces a workflow.
func (c *Consumption) CreateLogicApp(ctx context.Context, name string, req CreateRequest) bool {
	if !c.ready() {
		return false
	}

	props := map[string]any{"definition": req.Definition}
	if req.Parameters != nil {
		props["parameters"] = req.Parameters
	}
	if req.AccessControl != nil {
		props["accessControl"] = req.AccessControl
	}
	body := map[string]any{
		"location":   c.location(req.Location),
		"properties": props,
	}

	if err := c.put(ctx, name, body); err != nil {
		logger.Errorf("Error creating Consumption Logic App %s: %v", name, err)
		return false
	}
	return true
}

// UpdateRequest lists the fields to replace. Nil fields keep their
// current value.
type UpdateRequest struct {
	Definition any
	Parameters any
	State      string
}

// UpdateLogicApp merges the request into the current workflow.
func (c *Consumption) UpdateLogicApp(ctx context.Context, name string, req UpdateRequest) bool {
	if !c.ready() {
		return false
	}

	existing, err := c.clients.Workflows.Get(ctx, c.resourceGroup, name, nil)
	if err != nil {
		logger.Errorf("Error updating Logic App %s: %v", name, err)
		return false
	}
	current := toJSON(existing.Workflow)

	props := map[string]any{
		"definition": current.Get("properties.definition").Value(),
		"parameters": current.Get("properties.parameters").Value(),
		"state":      current.Get("properties.state").Value(),
	}
	if req.Definition != nil {
		props["definition"] = req.Definition
	}
	if req.Parameters != nil {
		props["parameters"] = req.Parameters
	}
	if req.State != "" {
		props["state"] = req.State
	}
	body := map[string]any{
		"location":   current.Get("location").Value(),
		"properties": props,
	}

	if err := c.put(ctx, name, body); err != nil {
		logger.Errorf("Error updating Logic App %s: %v", name, err)
		return false
	}
	return true
}

func (c *Consumption) DeleteLogicApp(ctx context.Context, name string) bool {
	return c.act("deleting Logic App", name, func() error {
		_, err := c.clients.Workflows.Delete(ctx, c.resourceGroup, name, nil)
		return err
	})
}

func (c *Consumption) EnableLogicApp(ctx context.Context, name string) bool {
	return c.act("enabling Logic App", name, func() error {
		_, err := c.clients.Workflows.Enable(ctx, c.resourceGroup, name, nil)
		return err
	})
}

func (c *Consumption) DisableLogicApp(ctx context.Context, name string) bool {
	return c.act("disabling Logic App", name, func() error {
		_, err := c.clients.Workflows.Disable(ctx, c.resourceGroup, name, nil)
		return err
	})
}

// act runs a call whose only outcome is success or failure.
func (c *Consumption) act(what, target string, call func() error) bool {
	if !c.ready() {
		return false
	}
	if err := call(); err != nil {
		logger.Errorf("Error %s %s: %v", what, target, err)
		return false
	}
	return true
}

// GetMetrics summarizes executions started within the last days.
func (c *Consumption) GetMetrics(ctx context.Context, name string, days int) map[string]any {
	runs, err := c.listRuns(ctx, name, metricsRunWindow, "")
	if err != nil {
		logger.Errorf("Error getting consumption metrics for %s: %v", name, err)
		return map[string]any{}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	var total, succeeded, failed int
	for _, run := range runs {
		if started, err := time.Parse(time.RFC3339Nano, run.Get("properties.startTime").String()); err == nil && started.Before(since) {
			continue
		}
		total++
		switch run.Get("properties.status").String() {
		case "Succeeded":
			succeeded++
		case "Failed":
			failed++
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(succeeded) / float64(total) * 100
	}
	return map[string]any{
		"total_executions":      total,
		"successful_executions": succeeded,
		"failed_executions":     failed,
		"success_rate":          rate,
		"estimated_cost_units":  total,
		"plan_type":             c.plan.String(),
	}
}

// HTTPTrigger configures the manual Request trigger.
type HTTPTrigger struct {
	Methods      []string
	Schema       any
	RelativePath string
}

// ConfigureHTTPTrigger installs or replaces the manual Request trigger in the
// workflow definition.
func (c *Consumption) ConfigureHTTPTrigger(ctx context.Context, name string, trigger HTTPTrigger) bool {
	if !c.ready() {
		return false
	}

	existing, err := c.clients.Workflows.Get(ctx, c.resourceGroup, name, nil)
	if err != nil {
		logger.Errorf("Error configuring HTTP trigger for %s: %v", name, err)
		return false
	}
	current := toJSON(existing.Workflow)

	definition, _ := current.Get("properties.definition").Value().(map[string]any)
	if definition == nil {
		definition = map[string]any{}
	}
	triggers, _ := definition["triggers"].(map[string]any)
	if triggers == nil {
		triggers = map[string]any{}
	}

	schema := trigger.Schema
	if schema == nil {
		schema = map[string]any{}
	}
	methods := trigger.Methods
	if len(methods) == 0 {
		methods = []string{"GET", "POST"}
	}
	var relativePath any
	if trigger.RelativePath != "" {
		relativePath = trigger.RelativePath
	}

	triggers["manual"] = map[string]any{
		"type": "Request",
		"kind": "Http",
		"inputs": map[string]any{
			"schema":       schema,
			"method":       methods,
			"relativePath": relativePath,
		},
	}
	definition["triggers"] = triggers

	body := map[string]any{
		"location": current.Get("location").Value(),
		"properties": map[string]any{
			"definition": definition,
			"parameters": current.Get("properties.parameters").Value(),
		},
	}
	if err := c.put(ctx, name, body); err != nil {
		logger.Errorf("Error configuring HTTP trigger for %s: %v", name, err)
		return false
	}
	return true
}

// ValidateRequest is a definition to check, optionally against an
// existing workflow.
type ValidateRequest struct {
	WorkflowName string
	Definition   any
	Parameters   any
}

// validationWorkflowName stands in when a definition is validated without
// an existing workflow.
const validationWorkflowName = "workflow-validation"

// ValidateLogicApp asks the service to validate a definition.
func (c *Consumption) ValidateLogicApp(ctx context.Context, req ValidateRequest) map[string]any {
	if !c.ready() {
		return map[string]any{"error": errNotInitialized.Error()}
	}

	parameters := req.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}
	wf, err := workflowFromMap(map[string]any{
		"location": c.opts.Location,
		"properties": map[string]any{
			"definition": req.Definition,
			"parameters": parameters,
		},
	})
	if err == nil {
		if req.WorkflowName != "" {
			_, err = c.clients.Workflows.ValidateByResourceGroup(ctx, c.resourceGroup, req.WorkflowName, wf, nil)
		} else {
			_, err = c.clients.Workflows.ValidateByLocation(ctx, c.resourceGroup, regionName(c.opts.Location), validationWorkflowName, wf, nil)
		}
	}
	if err != nil {
		return map[string]any{"valid": false, "error": err.Error()}
	}
	return map[string]any{"valid": true, "result": nil}
}

// regionName turns a display location such as "East US" into "eastus".
func regionName(location string) string {
	return strings.ToLower(strings.ReplaceAll(location, " ", ""))
}

// GetCallbackURL returns the trigger's signed invoke URL.
func (c *Consumption) GetCallbackURL(ctx context.Context, name, trigger string) map[string]any {
	if !c.ready() {
		return map[string]any{"error": errNotInitialized.Error()}
	}
	if trigger == "" {
		trigger = "manual"
	}
	url, err := c.callbackURL(ctx, name, trigger)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"callback_url": url}
}

// GetSwagger returns the OpenAPI document generated for the workflow.
func (c *Consumption) GetSwagger(ctx context.Context, name string) any {
	if !c.ready() {
		return map[string]any{"error": errNotInitialized.Error()}
	}
	resp, err := c.clients.Workflows.ListSwagger(ctx, c.resourceGroup, name, nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return resp.Interface
}

// Runs

func (c *Consumption) ListRuns(ctx context.Context, name string, top int, filter string) []map[string]any {
	runs, err := c.listRuns(ctx, name, top, filter)
	if err != nil {
		logger.Errorf("Error listing workflow runs for %s: %v", name, err)
		return []map[string]any{}
	}
	return serializeRuns(runs)
}

func (c *Consumption) GetRun(ctx context.Context, name, run string) map[string]any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.WorkflowRuns.Get(ctx, c.resourceGroup, name, run, nil)
	if err != nil {
		logger.Errorf("Error getting workflow run %s: %v", run, err)
		return map[string]any{}
	}
	return serializeRun(toJSON(resp))
}

func (c *Consumption) CancelRun(ctx context.Context, name, run string) bool {
	return c.act("cancelling workflow run", run, func() error {
		_, err := c.clients.WorkflowRuns.Cancel(ctx, c.resourceGroup, name, run, nil)
		return err
	})
}

// ResubmitRun replays a run's trigger inputs against the manual trigger.
func (c *Consumption) ResubmitRun(ctx context.Context, name, run string) bool {
	return c.act("resubmitting workflow run", run, func() error {
		resp, err := c.clients.WorkflowRuns.Get(ctx, c.resourceGroup, name, run, nil)
		if err != nil {
			return err
		}
		inputs := toJSON(resp).Get("properties.trigger.inputs").Value()

		url, err := c.callbackURL(ctx, name, "manual")
		if err != nil {
			return err
		}
		status, body, err := c.post(ctx, url, inputs, nil, DefaultTriggerTimeout)
		if err != nil {
			return err
		}
		if status != http.StatusAccepted {
			return fmt.Errorf("resubmit returned status %d: %s", status, body)
		}
		return nil
	})
}

// Triggers

func (c *Consumption) ListTriggers(ctx context.Context, name string) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	items, err := listPages(ctx, c.clients.WorkflowTriggers.NewListPager(c.resourceGroup, name, nil), 0)
	if err != nil {
		logger.Errorf("Error listing workflow triggers for %s: %v", name, err)
		return []map[string]any{}
	}
	return projectAll(items, triggerFields)
}

func (c *Consumption) GetTrigger(ctx context.Context, name, trigger string) map[string]any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.WorkflowTriggers.Get(ctx, c.resourceGroup, name, trigger, nil)
	if err != nil {
		logger.Errorf("Error getting workflow trigger %s: %v", trigger, err)
		return map[string]any{}
	}
	return project(toJSON(resp), triggerFields)
}

func (c *Consumption) RunTrigger(ctx context.Context, name, trigger string) bool {
	return c.act("running workflow trigger", trigger, func() error {
		_, err := c.clients.WorkflowTriggers.Run(ctx, c.resourceGroup, name, trigger, nil)
		return err
	})
}

func (c *Consumption) ResetTrigger(ctx context.Context, name, trigger string) bool {
	return c.act("resetting workflow trigger", trigger, func() error {
		_, err := c.clients.WorkflowTriggers.Reset(ctx, c.resourceGroup, name, trigger, nil)
		return err
	})
}

// GetTriggerSchema returns the trigger's JSON schema document.
func (c *Consumption) GetTriggerSchema(ctx context.Context, name, trigger string) any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.WorkflowTriggers.GetSchemaJSON(ctx, c.resourceGroup, name, trigger, nil)
	if err != nil {
		logger.Errorf("Error getting trigger schema for %s: %v", trigger, err)
		return map[string]any{}
	}
	return toJSON(resp).Value()
}

// Trigger histories

func (c *Consumption) ListTriggerHistories(ctx context.Context, name, trigger string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.WorkflowTriggerHistoriesClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.WorkflowTriggerHistories.NewListPager(c.resourceGroup, name, trigger, opts), top)
	if err != nil {
		logger.Errorf("Error listing trigger histories for %s: %v", trigger, err)
		return []map[string]any{}
	}
	return projectAll(items, triggerHistoryFields)
}

func (c *Consumption) GetTriggerHistory(ctx context.Context, name, trigger, history string) map[string]any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.WorkflowTriggerHistories.Get(ctx, c.resourceGroup, name, trigger, history, nil)
	if err != nil {
		logger.Errorf("Error getting trigger history %s: %v", history, err)
		return map[string]any{}
	}
	return project(toJSON(resp), triggerHistoryFields)
}

// Run actions

func (c *Consumption) ListRunActions(ctx context.Context, name, run string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.WorkflowRunActionsClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.WorkflowRunActions.NewListPager(c.resourceGroup, name, run, opts), top)
	if err != nil {
		logger.Errorf("Error listing workflow run actions for %s: %v", run, err)
		return []map[string]any{}
	}
	return projectAll(items, runActionFields)
}

func (c *Consumption) GetRunAction(ctx context.Context, name, run, action string) map[string]any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.WorkflowRunActions.Get(ctx, c.resourceGroup, name, run, action, nil)
	if err != nil {
		logger.Errorf("Error getting workflow run action %s: %v", action, err)
		return map[string]any{}
	}
	return project(toJSON(resp), runActionFields)
}

// Versions

func (c *Consumption) ListVersions(ctx context.Context, name string, top int) []map[string]any {
	if !c.ready() {
		return []map[string]any{}
	}
	opts := &armlogic.WorkflowVersionsClientListOptions{Top: top32(top)}
	items, err := listPages(ctx, c.clients.WorkflowVersions.NewListPager(c.resourceGroup, name, opts), top)
	if err != nil {
		logger.Errorf("Error listing workflow versions for %s: %v", name, err)
		return []map[string]any{}
	}
	return projectAll(items, versionFields)
}

func (c *Consumption) GetVersion(ctx context.Context, name, version string) map[string]any {
	if !c.ready() {
		return map[string]any{}
	}
	resp, err := c.clients.WorkflowVersions.Get(ctx, c.resourceGroup, name, version, nil)
	if err != nil {
		logger.Errorf("Error getting workflow version %s: %v", version, err)
		return map[string]any{}
	}
	return project(toJSON(resp), versionFields)
}

func top32(top int) *int32 {
	if top <= 0 {
		return nil
	}
	return to.Ptr(int32(top))
}
