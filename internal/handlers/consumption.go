package handlers

import (
	"context"
	"fmt"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/logicapp"
	"github.com/Azure/logicapp-mcp/internal/registry"
	"github.com/Azure/logicapp-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// ConsumptionWorkflowsURI lists the Consumption workflows of the resource group.
const ConsumptionWorkflowsURI = "logicapp://consumption/workflows"

const defaultListTop = 30

type consumptionFunc func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error)

func onConsumption(a *Adapters, fn consumptionFunc) registry.ToolHandler {
	return func(ctx context.Context, c azure.Context, args tools.Args) (interface{}, error) {
		return fn(ctx, a.Consumption(ctx, c), args)
	}
}

func workflowNameParam() mcp.ToolOption {
	return mcp.WithString("workflow_name", mcp.Required(), mcp.Description("Name of the Logic App"))
}

func topParam(what string) mcp.ToolOption {
	return mcp.WithNumber("top", mcp.Description(fmt.Sprintf("Maximum number of %s to return", what)), mcp.DefaultNumber(defaultListTop))
}

// RegisterConsumptionTools registers the Consumption family.
func RegisterConsumptionTools(reg *registry.ToolRegistry, a *Adapters) {
	registerConsumptionWorkflowTools(reg, a)
	registerConsumptionRunTools(reg, a)
	registerConsumptionTriggerTools(reg, a)
	registerIntegrationAccountTools(reg, a)

	reg.RegisterResource(mcp.NewResource(ConsumptionWorkflowsURI, "Consumption Logic Apps List",
		mcp.WithResourceDescription("All Consumption Logic Apps in the current subscription"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, c azure.Context) (string, error) {
		return tools.Render(a.Consumption(ctx, c).ListLogicApps(ctx))
	})
}

func registerConsumptionWorkflowTools(reg *registry.ToolRegistry, a *Adapters) {
	reg.RegisterTool(mcp.NewTool("list_consumption_logic_apps",
		mcp.WithDescription("List all Logic App Consumption instances"),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, _ tools.Args) (interface{}, error) {
		return la.ListLogicApps(ctx), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("get_consumption_logic_app",
		mcp.WithDescription("Get detailed information for a specific Consumption Logic App"),
		workflowNameParam(),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetLogicApp(ctx, args.String("workflow_name", "")), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("create_consumption_logic_app",
		mcp.WithDescription("Create a new Consumption Logic App"),
		workflowNameParam(),
		mcp.WithObject("definition", mcp.Required(), mcp.Description("Logic App definition (JSON format)")),
		mcp.WithObject("parameters", mcp.Description("Logic App parameters")),
		mcp.WithObject("access_control", mcp.Description("Access control configuration for triggers and content")),
		mcp.WithString("location", mcp.Description("Azure region, defaults to the server location")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		name := args.String("workflow_name", "")
		ok := la.CreateLogicApp(ctx, name, logicapp.CreateRequest{
			Definition:    args.Value("definition"),
			Parameters:    args.Value("parameters"),
			AccessControl: args.Value("access_control"),
			Location:      args.String("location", ""),
		})
		return tools.Action(fmt.Sprintf("Consumption Logic App '%s' created", name), ok), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("update_consumption_logic_app",
		mcp.WithDescription("Update the definition, parameters or state of a Consumption Logic App"),
		workflowNameParam(),
		mcp.WithObject("definition", mcp.Description("New Logic App definition")),
		mcp.WithObject("parameters", mcp.Description("New Logic App parameters")),
		mcp.WithString("state", mcp.Description("Workflow state"), mcp.Enum("Enabled", "Disabled")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		name := args.String("workflow_name", "")
		ok := la.UpdateLogicApp(ctx, name, logicapp.UpdateRequest{
			Definition: args.Value("definition"),
			Parameters: args.Value("parameters"),
			State:      args.String("state", ""),
		})
		return tools.Action(fmt.Sprintf("Consumption Logic App '%s' updated", name), ok), nil
	}), registry.CategoryWorkflows)

	lifecycle := []struct {
		tool, desc, verb string
		call         func(*logicapp.Consumption, context.Context, string) bool
	}{
		{"delete_consumption_logic_app", "Delete a Consumption Logic App", "deleted", (*logicapp.Consumption).DeleteLogicApp},
		{"enable_consumption_logic_app", "Enable a Consumption Logic App", "enabled", (*logicapp.Consumption).EnableLogicApp},
		{"disable_consumption_logic_app", "Disable a Consumption Logic App", "disabled", (*logicapp.Consumption).DisableLogicApp},
	}
	for _, op := range lifecycle {
		op := op
		reg.RegisterTool(mcp.NewTool(op.tool,
			mcp.WithDescription(op.desc),
			workflowNameParam(),
		), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
			name := args.String("workflow_name", "")
			return tools.Action(fmt.Sprintf("Consumption Logic App '%s' %s", name, op.verb), op.call(la, ctx, name)), nil
		}), registry.CategoryWorkflows)
	}

	reg.RegisterTool(mcp.NewTool("get_consumption_metrics",
		mcp.WithDescription("Get execution metrics and estimated cost units for a Consumption Logic App"),
		workflowNameParam(),
		mcp.WithNumber("days", mcp.Description("Number of days to include"), mcp.DefaultNumber(7)),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetMetrics(ctx, args.String("workflow_name", ""), args.Int("days", 7)), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("validate_consumption_logic_app",
		mcp.WithDescription("Validate a Logic App definition"),
		mcp.WithObject("definition", mcp.Required(), mcp.Description("Logic App definition to validate")),
		mcp.WithString("workflow_name", mcp.Description("Validate against this existing Logic App")),
		mcp.WithObject("parameters", mcp.Description("Logic App parameters")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ValidateLogicApp(ctx, logicapp.ValidateRequest{
			WorkflowName: args.String("workflow_name", ""),
			Definition:   args.Value("definition"),
			Parameters:   args.Value("parameters"),
		}), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("get_consumption_swagger",
		mcp.WithDescription("Get the OpenAPI definition generated for a Consumption Logic App"),
		workflowNameParam(),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetSwagger(ctx, args.String("workflow_name", "")), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("list_consumption_versions",
		mcp.WithDescription("List the versions of a Consumption Logic App"),
		workflowNameParam(),
		topParam("versions"),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ListVersions(ctx, args.String("workflow_name", ""), args.Int("top", defaultListTop)), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("get_consumption_version",
		mcp.WithDescription("Get one version of a Consumption Logic App"),
		workflowNameParam(),
		mcp.WithString("version_id", mcp.Required(), mcp.Description("Version ID")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetVersion(ctx, args.String("workflow_name", ""), args.String("version_id", "")), nil
	}), registry.CategoryWorkflows)
}

func registerConsumptionRunTools(reg *registry.ToolRegistry, a *Adapters) {
	reg.RegisterTool(mcp.NewTool("get_consumption_run_history",
		mcp.WithDescription("Get run history for a Consumption Logic App"),
		workflowNameParam(),
		mcp.WithNumber("limit", mcp.Description("Number of runs to retrieve"), mcp.DefaultNumber(10)),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetRunHistory(ctx, args.String("workflow_name", ""), args.Int("limit", 10)), nil
	}), registry.CategoryRuns)

	reg.RegisterTool(mcp.NewTool("list_consumption_runs",
		mcp.WithDescription("List runs of a Consumption Logic App"),
		workflowNameParam(),
		topParam("runs"),
		mcp.WithString("filter", mcp.Description("OData filter, e.g. status eq 'Failed'")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ListRuns(ctx, args.String("workflow_name", ""), args.Int("top", defaultListTop), args.String("filter", "")), nil
	}), registry.CategoryRuns)

	runParams := []mcp.ToolOption{
		workflowNameParam(),
		mcp.WithString("run_name", mcp.Required(), mcp.Description("Name of the workflow run")),
	}

	reg.RegisterTool(mcp.NewTool("get_consumption_run",
		append([]mcp.ToolOption{mcp.WithDescription("Get a workflow run")}, runParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetRun(ctx, args.String("workflow_name", ""), args.String("run_name", "")), nil
	}), registry.CategoryRuns)

	reg.RegisterTool(mcp.NewTool("cancel_consumption_run",
		append([]mcp.ToolOption{mcp.WithDescription("Cancel a running workflow run")}, runParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		run := args.String("run_name", "")
		return tools.Action(fmt.Sprintf("Workflow run '%s' cancelled", run), la.CancelRun(ctx, args.String("workflow_name", ""), run)), nil
	}), registry.CategoryRuns)

	reg.RegisterTool(mcp.NewTool("resubmit_consumption_run",
		append([]mcp.ToolOption{mcp.WithDescription("Resubmit a workflow run with its original trigger inputs")}, runParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		run := args.String("run_name", "")
		return tools.Action(fmt.Sprintf("Workflow run '%s' resubmitted", run), la.ResubmitRun(ctx, args.String("workflow_name", ""), run)), nil
	}), registry.CategoryRuns)

	reg.RegisterTool(mcp.NewTool("list_consumption_run_actions",
		append([]mcp.ToolOption{mcp.WithDescription("List the actions of a workflow run"), topParam("actions")}, runParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ListRunActions(ctx, args.String("workflow_name", ""), args.String("run_name", ""), args.Int("top", defaultListTop)), nil
	}), registry.CategoryRuns)

	reg.RegisterTool(mcp.NewTool("get_consumption_run_action",
		append([]mcp.ToolOption{
			mcp.WithDescription("Get one action of a workflow run"),
			mcp.WithString("action_name", mcp.Required(), mcp.Description("Name of the action")),
		}, runParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetRunAction(ctx, args.String("workflow_name", ""), args.String("run_name", ""), args.String("action_name", "")), nil
	}), registry.CategoryRuns)
}

func registerConsumptionTriggerTools(reg *registry.ToolRegistry, a *Adapters) {
	reg.RegisterTool(mcp.NewTool("trigger_consumption_logic_app",
		mcp.WithDescription("Trigger Consumption Logic App execution"),
		workflowNameParam(),
		mcp.WithString("trigger_name", mcp.Description("Trigger name (default is manual)"), mcp.DefaultString("manual")),
		mcp.WithObject("payload", mcp.Description("Payload to send with trigger")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.TriggerLogicApp(ctx, args.String("workflow_name", ""), logicapp.TriggerRequest{
			TriggerName: args.String("trigger_name", "manual"),
			Payload:     args.Value("payload"),
		}), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("configure_http_trigger",
		mcp.WithDescription("Configure the HTTP request trigger of a Consumption Logic App"),
		workflowNameParam(),
		mcp.WithObject("trigger_config", mcp.Required(),
			mcp.Description("HTTP trigger configuration"),
			mcp.Properties(map[string]any{
				"method":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Allowed HTTP methods"},
				"schema":        map[string]any{"type": "object", "description": "JSON schema of the request body"},
				"relative_path": map[string]any{"type": "string", "description": "Relative path of the trigger URL"},
			}),
		),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		name := args.String("workflow_name", "")
		cfg := tools.Args(args.Object("trigger_config"))
		ok := la.ConfigureHTTPTrigger(ctx, name, logicapp.HTTPTrigger{
			Methods:      cfg.Strings("method"),
			Schema:       cfg.Value("schema"),
			RelativePath: cfg.String("relative_path", ""),
		})
		return tools.Action(fmt.Sprintf("HTTP trigger configured for '%s'", name), ok), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("get_consumption_callback_url",
		mcp.WithDescription("Get the callback URL of a trigger"),
		workflowNameParam(),
		mcp.WithString("trigger_name", mcp.Description("Trigger name"), mcp.DefaultString("manual")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetCallbackURL(ctx, args.String("workflow_name", ""), args.String("trigger_name", "manual")), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("list_consumption_triggers",
		mcp.WithDescription("List the triggers of a Consumption Logic App"),
		workflowNameParam(),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ListTriggers(ctx, args.String("workflow_name", "")), nil
	}), registry.CategoryTriggers)

	triggerParams := []mcp.ToolOption{
		workflowNameParam(),
		mcp.WithString("trigger_name", mcp.Required(), mcp.Description("Name of the trigger")),
	}

	reg.RegisterTool(mcp.NewTool("get_consumption_trigger",
		append([]mcp.ToolOption{mcp.WithDescription("Get a workflow trigger")}, triggerParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetTrigger(ctx, args.String("workflow_name", ""), args.String("trigger_name", "")), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("run_consumption_trigger",
		append([]mcp.ToolOption{mcp.WithDescription("Fire a workflow trigger")}, triggerParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		trigger := args.String("trigger_name", "")
		return tools.Action(fmt.Sprintf("Trigger '%s' run", trigger), la.RunTrigger(ctx, args.String("workflow_name", ""), trigger)), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("reset_consumption_trigger",
		append([]mcp.ToolOption{mcp.WithDescription("Reset the state of a workflow trigger")}, triggerParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		trigger := args.String("trigger_name", "")
		return tools.Action(fmt.Sprintf("Trigger '%s' reset", trigger), la.ResetTrigger(ctx, args.String("workflow_name", ""), trigger)), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("get_consumption_trigger_schema",
		append([]mcp.ToolOption{mcp.WithDescription("Get the JSON schema of a trigger")}, triggerParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetTriggerSchema(ctx, args.String("workflow_name", ""), args.String("trigger_name", "")), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("list_consumption_trigger_histories",
		append([]mcp.ToolOption{mcp.WithDescription("List the firing history of a trigger"), topParam("histories")}, triggerParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ListTriggerHistories(ctx, args.String("workflow_name", ""), args.String("trigger_name", ""), args.Int("top", defaultListTop)), nil
	}), registry.CategoryRuns)

	reg.RegisterTool(mcp.NewTool("get_consumption_trigger_history",
		append([]mcp.ToolOption{
			mcp.WithDescription("Get one trigger history entry"),
			mcp.WithString("history_name", mcp.Required(), mcp.Description("Name of the history entry")),
		}, triggerParams...)...,
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetTriggerHistory(ctx, args.String("workflow_name", ""), args.String("trigger_name", ""), args.String("history_name", "")), nil
	}), registry.CategoryRuns)
}

func registerIntegrationAccountTools(reg *registry.ToolRegistry, a *Adapters) {
	accountParam := func() mcp.ToolOption {
		return mcp.WithString("integration_account_name", mcp.Required(), mcp.Description("Name of the integration account"))
	}

	reg.RegisterTool(mcp.NewTool("list_integration_accounts",
		mcp.WithDescription("List integration accounts in the resource group"),
		topParam("integration accounts"),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.ListIntegrationAccounts(ctx, args.Int("top", defaultListTop)), nil
	}), registry.CategoryIntegration)

	reg.RegisterTool(mcp.NewTool("get_integration_account",
		mcp.WithDescription("Get an integration account"),
		accountParam(),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetIntegrationAccount(ctx, args.String("integration_account_name", "")), nil
	}), registry.CategoryIntegration)

	reg.RegisterTool(mcp.NewTool("create_integration_account",
		mcp.WithDescription("Create an integration account"),
		accountParam(),
		mcp.WithString("sku", mcp.Description("Integration account SKU"), mcp.DefaultString("Free"), mcp.Enum("Free", "Basic", "Standard")),
		mcp.WithString("location", mcp.Description("Azure region, defaults to the server location")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		name := args.String("integration_account_name", "")
		ok := la.CreateIntegrationAccount(ctx, name, args.String("sku", "Free"), args.String("location", ""))
		return tools.Action(fmt.Sprintf("Integration account '%s' created", name), ok), nil
	}), registry.CategoryIntegration)

	reg.RegisterTool(mcp.NewTool("delete_integration_account",
		mcp.WithDescription("Delete an integration account"),
		accountParam(),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		name := args.String("integration_account_name", "")
		return tools.Action(fmt.Sprintf("Integration account '%s' deleted", name), la.DeleteIntegrationAccount(ctx, name)), nil
	}), registry.CategoryIntegration)

	artifacts := []struct {
		tool, what string
		list       func(*logicapp.Consumption, context.Context, string, int) []map[string]any
	}{
		{"list_integration_account_maps", "maps", (*logicapp.Consumption).ListIntegrationAccountMaps},
		{"list_integration_account_schemas", "schemas", (*logicapp.Consumption).ListIntegrationAccountSchemas},
		{"list_integration_account_partners", "partners", (*logicapp.Consumption).ListIntegrationAccountPartners},
		{"list_integration_account_agreements", "agreements", (*logicapp.Consumption).ListIntegrationAccountAgreements},
	}
	for _, art := range artifacts {
		art := art
		reg.RegisterTool(mcp.NewTool(art.tool,
			mcp.WithDescription(fmt.Sprintf("List the %s of an integration account", art.what)),
			accountParam(),
			topParam(art.what),
		), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
			return art.list(la, ctx, args.String("integration_account_name", ""), args.Int("top", defaultListTop)), nil
		}), registry.CategoryIntegration)
	}

	reg.RegisterTool(mcp.NewTool("get_integration_account_callback_url",
		mcp.WithDescription("Get a callback URL for an integration account, valid for one hour"),
		accountParam(),
		mcp.WithString("key_type", mcp.Description("Access key used to sign the URL"), mcp.DefaultString("Primary"),
			mcp.Enum("Primary", "Secondary", "NotSpecified")),
	), onConsumption(a, func(ctx context.Context, la *logicapp.Consumption, args tools.Args) (interface{}, error) {
		return la.GetIntegrationAccountCallbackURL(ctx, args.String("integration_account_name", ""), args.String("key_type", "Primary")), nil
	}), registry.CategoryIntegration)
}
