package logicapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/command"
	"github.com/Azure/logicapp-mcp/internal/logger"
)

// Runner executes a CLI with a shell style argument string.
type Runner interface {
	Run(ctx context.Context, args string) (string, error)
}

// CLI drives 'az logicapp' for Standard apps. Results are never errors:
// failures come back as {"success": false, ...}.
type CLI struct {
	runner        Runner
	resourceGroup string
	subscription  string
}

// NewCLI returns a CLI bound to the call's context. The az process inherits
// the context's subscription and, for a service principal, its credentials.
func NewCLI(c azure.Context, timeoutSeconds int) *CLI {
	proc := command.NewShellProcess("az", timeoutSeconds)
	if c.SubscriptionID != "" {
		proc.Env = append(proc.Env, "AZURE_SUBSCRIPTION_ID="+c.SubscriptionID)
	}
	if c.HasServicePrincipal() {
		proc.Env = append(proc.Env,
			"AZURE_CLIENT_ID="+c.ClientID,
			"AZURE_TENANT_ID="+c.TenantID,
			"AZURE_CLIENT_SECRET="+c.ClientSecret,
		)
	}
	return NewCLIWithRunner(proc, c)
}

// NewCLIWithRunner is NewCLI with a custom runner.
func NewCLIWithRunner(runner Runner, c azure.Context) *CLI {
	return &CLI{runner: runner, resourceGroup: c.ResourceGroup, subscription: c.SubscriptionID}
}

// args accumulates a command line, quoting every value.
type args []string

func (a *args) add(flag string, values ...string) {
	*a = append(*a, flag)
	for _, v := range values {
		*a = append(*a, command.Quote(v))
	}
}

func (a *args) opt(flag, value string) {
	if value != "" {
		a.add(flag, value)
	}
}

func (c *CLI) base(sub ...string) *args {
	a := args(append([]string{"logicapp"}, sub...))
	return &a
}

func (c *CLI) run(ctx context.Context, a *args) map[string]any {
	a.opt("--subscription", c.subscription)
	a.add("--output", "json")
	cmdline := strings.Join(*a, " ")
	logger.Debugf("Executing az %s", cmdline)

	out, err := c.runner.Run(ctx, cmdline)
	if err != nil {
		var exitErr *command.ExitError
		if errors.As(err, &exitErr) {
			logger.Errorf("az %s failed with exit code %d", (*a)[1], exitErr.ExitCode)
			return map[string]any{"success": false, "error": strings.TrimSpace(exitErr.Stderr), "exit_code": exitErr.ExitCode}
		}
		logger.Errorf("az %s failed: %v", (*a)[1], err)
		return map[string]any{"success": false, "error": err.Error()}
	}

	var data any = strings.TrimSpace(out)
	var parsed any
	if err := json.Unmarshal([]byte(out), &parsed); err == nil {
		data = parsed
	}
	return map[string]any{"success": true, "data": data}
}

func (c *CLI) group(a *args) {
	a.opt("--resource-group", c.resourceGroup)
}

// CLICreateRequest holds the 'az logicapp create' options.
type CLICreateRequest struct {
	Name                         string
	StorageAccount               string
	Plan                         string
	AppInsights                  string
	DeploymentContainerImageName string
	HTTPSOnly                    *bool
	RuntimeVersion               string
	FunctionsVersion             int
	Tags                         map[string]string
}

func (c *CLI) Create(ctx context.Context, req CLICreateRequest) map[string]any {
	a := c.base("create")
	a.add("--name", req.Name)
	c.group(a)
	a.opt("--storage-account", req.StorageAccount)
	a.opt("--plan", req.Plan)
	a.opt("--app-insights", req.AppInsights)
	a.opt("--deployment-container-image-name", req.DeploymentContainerImageName)
	if req.HTTPSOnly != nil {
		a.add("--https-only", strconv.FormatBool(*req.HTTPSOnly))
	}
	a.opt("--runtime-version", req.RuntimeVersion)
	if req.FunctionsVersion > 0 {
		a.add("--functions-version", strconv.Itoa(req.FunctionsVersion))
	}
	if len(req.Tags) > 0 {
		a.add("--tags", keyValues(req.Tags)...)
	}
	return c.run(ctx, a)
}

func (c *CLI) Show(ctx context.Context, name string) map[string]any {
	a := c.base("show")
	a.add("--name", name)
	c.group(a)
	return c.run(ctx, a)
}

func (c *CLI) List(ctx context.Context) map[string]any {
	a := c.base("list")
	c.group(a)
	return c.run(ctx, a)
}

// Lifecycle runs start, stop or restart.
func (c *CLI) Lifecycle(ctx context.Context, action, name, slot string) map[string]any {
	switch action {
	case "start", "stop", "restart":
	default:
		return map[string]any{"success": false, "error": fmt.Sprintf("unsupported action %q", action)}
	}
	a := c.base(action)
	a.add("--name", name)
	c.group(a)
	a.opt("--slot", slot)
	return c.run(ctx, a)
}

func (c *CLI) Scale(ctx context.Context, name string, instances int) map[string]any {
	a := c.base("scale")
	a.add("--name", name)
	c.group(a)
	a.add("--instance-count", strconv.Itoa(instances))
	return c.run(ctx, a)
}

// CLIUpdateRequest holds the 'az logicapp update' options. Set, Add and
// Remove take generic update expressions.
type CLIUpdateRequest struct {
	Name   string
	Plan   string
	Slot   string
	Set    []string
	Add    []string
	Remove []string
}

func (c *CLI) Update(ctx context.Context, req CLIUpdateRequest) map[string]any {
	a := c.base("update")
	a.add("--name", req.Name)
	c.group(a)
	a.opt("--plan", req.Plan)
	a.opt("--slot", req.Slot)
	for _, v := range req.Set {
		a.add("--set", v)
	}
	for _, v := range req.Add {
		a.add("--add", v)
	}
	for _, v := range req.Remove {
		a.add("--remove", v)
	}
	return c.run(ctx, a)
}

func (c *CLI) Delete(ctx context.Context, name, slot string) map[string]any {
	a := c.base("delete")
	a.add("--name", name)
	c.group(a)
	a.opt("--slot", slot)
	a.add("--yes")
	return c.run(ctx, a)
}

func (c *CLI) AppSettingsList(ctx context.Context, name, slot string) map[string]any {
	a := c.base("config", "appsettings", "list")
	a.add("--name", name)
	c.group(a)
	a.opt("--slot", slot)
	return c.run(ctx, a)
}

func (c *CLI) AppSettingsSet(ctx context.Context, name string, settings map[string]string, slot string) map[string]any {
	a := c.base("config", "appsettings", "set")
	a.add("--name", name)
	c.group(a)
	a.opt("--slot", slot)
	a.add("--settings", keyValues(settings)...)
	return c.run(ctx, a)
}

func (c *CLI) AppSettingsDelete(ctx context.Context, name string, settingNames []string, slot string) map[string]any {
	a := c.base("config", "appsettings", "delete")
	a.add("--name", name)
	c.group(a)
	a.opt("--slot", slot)
	a.add("--setting-names", settingNames...)
	return c.run(ctx, a)
}

// keyValues renders a map as sorted key=value words.
func keyValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
