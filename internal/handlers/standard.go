package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/logicapp"
	"github.com/Azure/logicapp-mcp/internal/registry"
	"github.com/Azure/logicapp-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// StandardWorkflowsURI lists the Standard workflows of the resource group.
const StandardWorkflowsURI = "logicapp://standard/workflows"

const defaultTriggerTimeout = 30

type standardFunc func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error)

func onStandard(a *Adapters, fn standardFunc) registry.ToolHandler {
	return func(ctx context.Context, c azure.Context, args tools.Args) (interface{}, error) {
		return fn(ctx, a.Standard(ctx, c), args)
	}
}

type cliFunc func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error)

func onCLI(a *Adapters, fn cliFunc) registry.ToolHandler {
	return func(ctx context.Context, c azure.Context, args tools.Args) (interface{}, error) {
		return fn(ctx, a.CLI(c), args)
	}
}

// RegisterStandardTools registers the Standard family, including the tools
// that drive az logicapp.
func RegisterStandardTools(reg *registry.ToolRegistry, a *Adapters) {
	registerStandardWorkflowTools(reg, a)
	registerHostingTools(reg, a)
	registerCLITools(reg, a)

	reg.RegisterResource(mcp.NewResource(StandardWorkflowsURI, "Standard Logic Apps List",
		mcp.WithResourceDescription("All Standard Logic Apps in the current subscription"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, c azure.Context) (string, error) {
		return tools.Render(a.Standard(ctx, c).ListLogicApps(ctx))
	})
}

func registerStandardWorkflowTools(reg *registry.ToolRegistry, a *Adapters) {
	reg.RegisterTool(mcp.NewTool("list_standard_logic_apps",
		mcp.WithDescription("List all Logic App Standard instances"),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, _ tools.Args) (interface{}, error) {
		return la.ListLogicApps(ctx), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("get_standard_logic_app",
		mcp.WithDescription("Get detailed information for a specific Standard Logic App"),
		workflowNameParam(),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		return la.GetLogicApp(ctx, args.String("workflow_name", "")), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("create_standard_logic_app",
		mcp.WithDescription("Create a new Standard Logic App"),
		workflowNameParam(),
		mcp.WithObject("definition", mcp.Required(), mcp.Description("Logic App definition (JSON format)")),
		mcp.WithString("app_service_plan_id", mcp.Description("Resource ID of the App Service plan")),
		mcp.WithString("sku_name", mcp.Description("SKU name"), mcp.DefaultString("WS1")),
		mcp.WithObject("managed_identity", mcp.Description("Managed identity configuration")),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		name := args.String("workflow_name", "")
		ok := la.CreateLogicApp(ctx, name, logicapp.StandardCreateRequest{
			Definition:       args.Value("definition"),
			AppServicePlanID: args.String("app_service_plan_id", ""),
			SKUName:          args.String("sku_name", "WS1"),
			ManagedIdentity:  args.Value("managed_identity"),
		})
		return tools.Action(fmt.Sprintf("Standard Logic App '%s' created", name), ok), nil
	}), registry.CategoryWorkflows)

	reg.RegisterTool(mcp.NewTool("trigger_standard_logic_app",
		mcp.WithDescription("Trigger Standard Logic App execution"),
		workflowNameParam(),
		mcp.WithString("trigger_name", mcp.Description("Trigger name (default is manual)"), mcp.DefaultString("manual")),
		mcp.WithObject("payload", mcp.Description("Payload to send with trigger")),
		mcp.WithObject("auth_header", mcp.Description("Headers merged into the request, e.g. {\"Authorization\": \"Bearer ...\"}. A plain string is sent as the Authorization header")),
		mcp.WithNumber("timeout", mcp.Description("Request timeout in seconds"), mcp.DefaultNumber(defaultTriggerTimeout)),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		req := logicapp.TriggerRequest{
			TriggerName: args.String("trigger_name", "manual"),
			Payload:     args.Value("payload"),
			Timeout:     time.Duration(args.Int("timeout", defaultTriggerTimeout)) * time.Second,
		}
		req.Headers = triggerHeaders(args)
		return la.TriggerLogicApp(ctx, args.String("workflow_name", ""), req), nil
	}), registry.CategoryTriggers)

	reg.RegisterTool(mcp.NewTool("get_standard_run_history",
		mcp.WithDescription("Get run history for a Standard Logic App"),
		workflowNameParam(),
		mcp.WithNumber("limit", mcp.Description("Number of runs to retrieve"), mcp.DefaultNumber(10)),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		return la.GetRunHistory(ctx, args.String("workflow_name", ""), args.Int("limit", 10)), nil
	}), registry.CategoryRuns)
}

func registerHostingTools(reg *registry.ToolRegistry, a *Adapters) {
	appNameParam := func() mcp.ToolOption {
		return mcp.WithString("app_name", mcp.Required(), mcp.Description("Name of the Logic App site"))
	}

	reg.RegisterTool(mcp.NewTool("get_app_service_info",
		mcp.WithDescription("Get App Service information for a Standard Logic App"),
		appNameParam(),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		return la.GetAppServiceInfo(ctx, args.String("app_name", "")), nil
	}), registry.CategoryHosting)

	reg.RegisterTool(mcp.NewTool("scale_app_service_plan",
		mcp.WithDescription("Scale the App Service plan hosting Standard Logic Apps"),
		mcp.WithString("plan_name", mcp.Required(), mcp.Description("Name of the App Service plan")),
		mcp.WithNumber("instance_count", mcp.Required(), mcp.Description("Number of instances")),
		mcp.WithString("sku_name", mcp.Description("New SKU name, e.g. WS2")),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		plan := args.String("plan_name", "")
		ok := la.ScaleAppServicePlan(ctx, plan, args.Int("instance_count", 1), args.String("sku_name", ""))
		return tools.Action(fmt.Sprintf("App Service Plan '%s' scaled", plan), ok), nil
	}), registry.CategoryHosting)

	reg.RegisterTool(mcp.NewTool("configure_vnet_integration",
		mcp.WithDescription("Configure VNET integration for a Standard Logic App"),
		appNameParam(),
		mcp.WithObject("vnet_config", mcp.Required(),
			mcp.Description("VNET configuration"),
			mcp.Properties(map[string]any{
				"vnet_name":          map[string]any{"type": "string"},
				"vnet_resource_id":   map[string]any{"type": "string"},
				"subnet_resource_id": map[string]any{"type": "string"},
				"cert_thumbprint":    map[string]any{"type": "string"},
				"cert_blob":          map[string]any{"type": "string"},
				"routes":             map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			}),
		),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		app := args.String("app_name", "")
		cfg := tools.Args(args.Object("vnet_config"))
		ok := la.ConfigureVNetIntegration(ctx, app, logicapp.VNetConfig{
			VNetName:         cfg.String("vnet_name", ""),
			VNetResourceID:   cfg.String("vnet_resource_id", ""),
			SubnetResourceID: cfg.String("subnet_resource_id", ""),
		})
		return tools.Action(fmt.Sprintf("VNET integration configured for '%s'", app), ok), nil
	}), registry.CategoryHosting)

	reg.RegisterTool(mcp.NewTool("get_standard_metrics",
		mcp.WithDescription("Get performance metrics for a Standard Logic App"),
		appNameParam(),
		mcp.WithString("workflow_name", mcp.Description("Include run metrics for this workflow")),
	), onStandard(a, func(ctx context.Context, la *logicapp.Standard, args tools.Args) (interface{}, error) {
		return la.GetMetrics(ctx, args.String("app_name", ""), args.String("workflow_name", "")), nil
	}), registry.CategoryHosting)
}

func registerCLITools(reg *registry.ToolRegistry, a *Adapters) {
	nameParam := func() mcp.ToolOption {
		return mcp.WithString("name", mcp.Required(), mcp.Description("Name of the Standard Logic App"))
	}
	slotParam := func() mcp.ToolOption {
		return mcp.WithString("slot", mcp.Description("Deployment slot"))
	}

	reg.RegisterTool(mcp.NewTool("cli_create_standard_logic_app",
		mcp.WithDescription("Create a Standard Logic App with az logicapp create"),
		nameParam(),
		mcp.WithString("storage_account", mcp.Description("Storage account name or resource ID")),
		mcp.WithString("plan", mcp.Description("App Service plan name or resource ID")),
		mcp.WithString("app_insights", mcp.Description("Application Insights component to link")),
		mcp.WithString("deployment_container_image_name", mcp.Description("Container image, e.g. publisher/image-name:tag")),
		mcp.WithBoolean("https_only", mcp.Description("Redirect all traffic to HTTPS")),
		mcp.WithString("runtime_version", mcp.Description("Functions runtime stack version")),
		mcp.WithNumber("functions_version", mcp.Description("Functions runtime version")),
		mcp.WithObject("tags", mcp.Description("Resource tags")),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.Create(ctx, logicapp.CLICreateRequest{
			Name:                         args.String("name", ""),
			StorageAccount:               args.String("storage_account", ""),
			Plan:                         args.String("plan", ""),
			AppInsights:                  args.String("app_insights", ""),
			DeploymentContainerImageName: args.String("deployment_container_image_name", ""),
			HTTPSOnly:                    args.OptionalBool("https_only"),
			RuntimeVersion:               args.String("runtime_version", ""),
			FunctionsVersion:             args.Int("functions_version", 0),
			Tags:                         args.StringMap("tags"),
		}), nil
	}), registry.CategoryCLI)

	reg.RegisterTool(mcp.NewTool("cli_show_standard_logic_app",
		mcp.WithDescription("Show a Standard Logic App with az logicapp show"),
		nameParam(),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.Show(ctx, args.String("name", "")), nil
	}), registry.CategoryCLI)

	reg.RegisterTool(mcp.NewTool("cli_list_standard_logic_apps",
		mcp.WithDescription("List Standard Logic Apps with az logicapp list"),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, _ tools.Args) (interface{}, error) {
		return cli.List(ctx), nil
	}), registry.CategoryCLI)

	for _, action := range []string{"start", "stop", "restart"} {
		action := action
		reg.RegisterTool(mcp.NewTool(fmt.Sprintf("cli_%s_standard_logic_app", action),
			mcp.WithDescription(fmt.Sprintf("Run az logicapp %s", action)),
			nameParam(),
			slotParam(),
		), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
			return cli.Lifecycle(ctx, action, args.String("name", ""), args.String("slot", "")), nil
		}), registry.CategoryCLI)
	}

	reg.RegisterTool(mcp.NewTool("cli_scale_standard_logic_app",
		mcp.WithDescription("Scale a Standard Logic App with az logicapp scale"),
		nameParam(),
		mcp.WithNumber("instance_count", mcp.Required(), mcp.Description("Number of instances")),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.Scale(ctx, args.String("name", ""), args.Int("instance_count", 1)), nil
	}), registry.CategoryCLI)

	stringList := func(name, desc string) mcp.ToolOption {
		return mcp.WithArray(name, mcp.Description(desc), mcp.Items(map[string]any{"type": "string"}))
	}
	reg.RegisterTool(mcp.NewTool("cli_update_standard_logic_app",
		mcp.WithDescription("Update a Standard Logic App with az logicapp update"),
		nameParam(),
		mcp.WithString("plan", mcp.Description("App Service plan to move the app to")),
		slotParam(),
		stringList("set", "Properties to set, as path=value"),
		stringList("add", "Values to add to list properties, as path=value"),
		stringList("remove", "Properties or list entries to remove"),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.Update(ctx, logicapp.CLIUpdateRequest{
			Name:   args.String("name", ""),
			Plan:   args.String("plan", ""),
			Slot:   args.String("slot", ""),
			Set:    args.Strings("set"),
			Add:    args.Strings("add"),
			Remove: args.Strings("remove"),
		}), nil
	}), registry.CategoryCLI)

	reg.RegisterTool(mcp.NewTool("cli_delete_standard_logic_app",
		mcp.WithDescription("Delete a Standard Logic App with az logicapp delete"),
		nameParam(),
		slotParam(),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.Delete(ctx, args.String("name", ""), args.String("slot", "")), nil
	}), registry.CategoryCLI)

	reg.RegisterTool(mcp.NewTool("cli_config_appsettings_list",
		mcp.WithDescription("List the app settings of a Standard Logic App"),
		nameParam(),
		slotParam(),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.AppSettingsList(ctx, args.String("name", ""), args.String("slot", "")), nil
	}), registry.CategoryCLI)

	reg.RegisterTool(mcp.NewTool("cli_config_appsettings_set",
		mcp.WithDescription("Set app settings on a Standard Logic App"),
		nameParam(),
		mcp.WithObject("settings", mcp.Required(), mcp.Description("Settings to set, as name to value")),
		slotParam(),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.AppSettingsSet(ctx, args.String("name", ""), args.StringMap("settings"), args.String("slot", "")), nil
	}), registry.CategoryCLI)

	reg.RegisterTool(mcp.NewTool("cli_config_appsettings_delete",
		mcp.WithDescription("Delete app settings from a Standard Logic App"),
		nameParam(),
		mcp.WithArray("setting_names", mcp.Required(), mcp.Description("Names of the settings to delete"), mcp.Items(map[string]any{"type": "string"})),
		slotParam(),
	), onCLI(a, func(ctx context.Context, cli *logicapp.CLI, args tools.Args) (interface{}, error) {
		return cli.AppSettingsDelete(ctx, args.String("name", ""), args.Strings("setting_names"), args.String("slot", "")), nil
	}), registry.CategoryCLI)
}

// triggerHeaders reads auth_header, either a header object or the bare
// value of an Authorization header.
func triggerHeaders(args tools.Args) map[string]string {
	if auth, ok := args.Value("auth_header").(string); ok {
		if auth == "" {
			return nil
		}
		return map[string]string{"Authorization": auth}
	}
	return args.StringMap("auth_header")
}
