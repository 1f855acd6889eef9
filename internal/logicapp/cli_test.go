package logicapp

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/command"
	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  []string
	output string
	err    error
}

func (r *fakeRunner) Run(_ context.Context, args string) (string, error) {
	r.calls = append(r.calls, args)
	return r.output, r.err
}

func (r *fakeRunner) argv(t *testing.T) []string {
	t.Helper()
	require.NotEmpty(t, r.calls)
	argv, err := shlex.Split(r.calls[len(r.calls)-1])
	require.NoError(t, err)
	return argv
}

var cliContext = azure.Context{SubscriptionID: "sub-1", ResourceGroup: "rg"}

func TestCLICommands(t *testing.T) {
	https := true
	tests := []struct {
		name string
		call func(c *CLI) map[string]any
		want []string
	}{
		{
			name: "create",
			call: func(c *CLI) map[string]any {
				return c.Create(context.Background(), CLICreateRequest{
					Name:             "app",
					StorageAccount:   "store",
					HTTPSOnly:        &https,
					FunctionsVersion: 4,
					Tags:             map[string]string{"team": "data", "env": "dev"},
				})
			},
			want: []string{"logicapp", "create", "--name", "app", "--resource-group", "rg", "--storage-account", "store",
				"--https-only", "true", "--functions-version", "4", "--tags", "env=dev", "team=data",
				"--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "show",
			call: func(c *CLI) map[string]any { return c.Show(context.Background(), "app") },
			want: []string{"logicapp", "show", "--name", "app", "--resource-group", "rg", "--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "list",
			call: func(c *CLI) map[string]any { return c.List(context.Background()) },
			want: []string{"logicapp", "list", "--resource-group", "rg", "--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "restart slot",
			call: func(c *CLI) map[string]any { return c.Lifecycle(context.Background(), "restart", "app", "staging") },
			want: []string{"logicapp", "restart", "--name", "app", "--resource-group", "rg", "--slot", "staging", "--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "scale",
			call: func(c *CLI) map[string]any { return c.Scale(context.Background(), "app", 3) },
			want: []string{"logicapp", "scale", "--name", "app", "--resource-group", "rg", "--instance-count", "3", "--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "update",
			call: func(c *CLI) map[string]any {
				return c.Update(context.Background(), CLIUpdateRequest{Name: "app", Set: []string{"tags.owner=ops team"}, Remove: []string{"tags.old"}})
			},
			want: []string{"logicapp", "update", "--name", "app", "--resource-group", "rg", "--set", "tags.owner=ops team", "--remove", "tags.old",
				"--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "delete",
			call: func(c *CLI) map[string]any { return c.Delete(context.Background(), "app", "") },
			want: []string{"logicapp", "delete", "--name", "app", "--resource-group", "rg", "--yes", "--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "appsettings set",
			call: func(c *CLI) map[string]any {
				return c.AppSettingsSet(context.Background(), "app", map[string]string{"B": "two words", "A": "1"}, "")
			},
			want: []string{"logicapp", "config", "appsettings", "set", "--name", "app", "--resource-group", "rg", "--settings", "A=1", "B=two words",
				"--subscription", "sub-1", "--output", "json"},
		},
		{
			name: "appsettings delete",
			call: func(c *CLI) map[string]any {
				return c.AppSettingsDelete(context.Background(), "app", []string{"A", "B"}, "")
			},
			want: []string{"logicapp", "config", "appsettings", "delete", "--name", "app", "--resource-group", "rg", "--setting-names", "A", "B",
				"--subscription", "sub-1", "--output", "json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{output: `{"name":"app"}`}
			res := tt.call(NewCLIWithRunner(r, cliContext))
			assert.Equal(t, true, res["success"])
			assert.Equal(t, map[string]any{"name": "app"}, res["data"])
			assert.Equal(t, tt.want, r.argv(t))
		})
	}
}

func TestCLIPlainOutput(t *testing.T) {
	r := &fakeRunner{output: "done\n"}
	res := NewCLIWithRunner(r, azure.Context{}).AppSettingsList(context.Background(), "app", "")
	assert.Equal(t, map[string]any{"success": true, "data": "done"}, res)
	assert.Equal(t, []string{"logicapp", "config", "appsettings", "list", "--name", "app", "--output", "json"}, r.argv(t))
}

func TestCLIFailures(t *testing.T) {
	r := &fakeRunner{err: &command.ExitError{Command: "az", ExitCode: 3, Stderr: "ERROR: not found\n"}}
	res := NewCLIWithRunner(r, cliContext).Show(context.Background(), "app")
	assert.Equal(t, map[string]any{"success": false, "error": "ERROR: not found", "exit_code": 3}, res)

	r = &fakeRunner{err: errors.New("az timed out after 1s")}
	res = NewCLIWithRunner(r, cliContext).List(context.Background())
	assert.Equal(t, map[string]any{"success": false, "error": "az timed out after 1s"}, res)

	r = &fakeRunner{}
	res = NewCLIWithRunner(r, cliContext).Lifecycle(context.Background(), "reboot", "app", "")
	assert.Equal(t, false, res["success"])
	assert.Empty(t, r.calls)
}

func TestNewCLIEnvironment(t *testing.T) {
	c := NewCLI(azure.Context{SubscriptionID: "sub-1", TenantID: "t", ClientID: "c", ClientSecret: "s"}, 30)
	proc, ok := c.runner.(*command.ShellProcess)
	require.True(t, ok)
	assert.Equal(t, "az", proc.Command)
	assert.Equal(t, []string{
		"AZURE_SUBSCRIPTION_ID=sub-1",
		"AZURE_CLIENT_ID=c",
		"AZURE_TENANT_ID=t",
		"AZURE_CLIENT_SECRET=s",
	}, proc.Env)

	plain := NewCLI(azure.Context{}, 30)
	assert.Empty(t, plain.runner.(*command.ShellProcess).Env)
}
