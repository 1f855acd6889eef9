package logicapp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/tidwall/gjson"
)

// field maps an output key to a gjson path in the ARM payload.
type field struct {
	key  string
	path string
}

var (
	workflowSummaryFields = []field{
		{"name", "name"},
		{"id", "id"},
		{"location", "location"},
		{"state", "properties.state"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
	}

	workflowDetailFields = []field{
		{"definition", "properties.definition"},
		{"parameters", "properties.parameters"},
	}

	runHistoryFields = []field{
		{"name", "name"},
		{"status", "properties.status"},
		{"start_time", "properties.startTime"},
		{"end_time", "properties.endTime"},
		{"trigger", "properties.trigger"},
		{"outputs", "properties.outputs"},
	}

	runFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"status", "properties.status"},
		{"start_time", "properties.startTime"},
		{"end_time", "properties.endTime"},
		{"correlation_id", "properties.correlationId"},
	}

	runTriggerFields = []field{
		{"name", "properties.trigger.name"},
		{"status", "properties.trigger.status"},
		{"start_time", "properties.trigger.startTime"},
	}

	triggerFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"provisioning_state", "properties.provisioningState"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
		{"state", "properties.state"},
	}

	triggerHistoryFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"status", "properties.status"},
		{"code", "properties.code"},
		{"start_time", "properties.startTime"},
		{"end_time", "properties.endTime"},
		{"fired", "properties.fired"},
	}

	runActionFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"status", "properties.status"},
		{"code", "properties.code"},
		{"start_time", "properties.startTime"},
		{"end_time", "properties.endTime"},
	}

	versionFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"version", "properties.version"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
		{"state", "properties.state"},
	}

	integrationAccountFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"location", "location"},
	}

	mapFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"map_type", "properties.mapType"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
		{"content_type", "properties.contentType"},
	}

	schemaFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"schema_type", "properties.schemaType"},
		{"target_namespace", "properties.targetNamespace"},
		{"document_name", "properties.documentName"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
		{"content_type", "properties.contentType"},
	}

	partnerFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"partner_type", "properties.partnerType"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
		{"metadata", "properties.metadata"},
	}

	agreementFields = []field{
		{"id", "id"},
		{"name", "name"},
		{"type", "type"},
		{"agreement_type", "properties.agreementType"},
		{"host_partner", "properties.hostPartner"},
		{"guest_partner", "properties.guestPartner"},
		{"created_time", "properties.createdTime"},
		{"changed_time", "properties.changedTime"},
		{"metadata", "properties.metadata"},
	}
)

// toJSON renders an SDK model with its own serializer so fields can be
// picked by wire name. Models that fail to marshal become an empty result.
func toJSON(v any) gjson.Result {
	data, err := json.Marshal(v)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

func project(obj gjson.Result, fields []field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.key] = obj.Get(f.path).Value()
	}
	return out
}

func projectAll(items []gjson.Result, fields []field) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, project(item, fields))
	}
	return out
}

func workflowSummary(w gjson.Result, plan PlanType) map[string]any {
	out := project(w, workflowSummaryFields)
	out["plan_type"] = plan.String()
	return out
}

func workflowDetail(w gjson.Result, plan PlanType) map[string]any {
	out := workflowSummary(w, plan)
	for k, v := range project(w, workflowDetailFields) {
		out[k] = v
	}
	return out
}

func serializeRun(run gjson.Result) map[string]any {
	out := project(run, runFields)
	out["trigger"] = project(run, runTriggerFields)
	return out
}

func serializeRuns(runs []gjson.Result) []map[string]any {
	out := make([]map[string]any, 0, len(runs))
	for _, r := range runs {
		out = append(out, serializeRun(r))
	}
	return out
}

func serializeIntegrationAccount(a gjson.Result) map[string]any {
	out := project(a, integrationAccountFields)
	out["sku"] = map[string]any{"name": a.Get("sku.name").Value()}
	props := a.Get("properties").Value()
	if props == nil {
		props = map[string]any{}
	}
	out["properties"] = props
	return out
}

// listPages drains a pager, stopping once limit items were collected.
// A limit of zero or less collects everything.
func listPages[T any](ctx context.Context, pager *runtime.Pager[T], limit int) ([]gjson.Result, error) {
	var out []gjson.Result
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range toJSON(page).Get("value").Array() {
			out = append(out, item)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// workflowFromMap builds a request model from a JSON shaped map so caller
// supplied definitions, parameters and access control pass through as is.
func workflowFromMap(m map[string]any) (armlogic.Workflow, error) {
	var w armlogic.Workflow
	data, err := json.Marshal(m)
	if err != nil {
		return w, fmt.Errorf("failed to encode workflow: %w", err)
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("failed to build workflow: %w", err)
	}
	return w, nil
}
