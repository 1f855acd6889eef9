package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	mcpclient "github.com/Azure/logicapp-mcp/test/e2e/pkg/client"
	"github.com/Azure/logicapp-mcp/test/e2e/pkg/runner"
	"github.com/Azure/logicapp-mcp/test/e2e/pkg/tests"
)

const (
	// Start the server with --transport streamable-http or the default http
	// facade, both serve /mcp.
	defaultServerURL = "http://localhost:8000"
	defaultTimeout   = 5 * time.Minute
)

func main() {
	serverURL := flag.String("server-url", getEnv("MCP_SERVER_URL", defaultServerURL), "MCP server URL")
	subscriptionID := flag.String("subscription-id", os.Getenv("AZURE_SUBSCRIPTION_ID"), "Azure subscription ID")
	resourceGroup := flag.String("resource-group", os.Getenv("AZURE_RESOURCE_GROUP"), "Resource group name")
	consumptionWorkflow := flag.String("consumption-workflow", os.Getenv("CONSUMPTION_WORKFLOW_NAME"), "Optional: Consumption workflow to read")
	standardWorkflow := flag.String("standard-workflow", os.Getenv("STANDARD_WORKFLOW_NAME"), "Optional: Standard workflow to read")
	appName := flag.String("app-name", os.Getenv("STANDARD_APP_NAME"), "Optional: Standard app to run Kudu checks against")
	verbose := flag.Bool("verbose", false, "Enable verbose output (show tool parameters and results)")
	verboseShort := flag.Bool("v", false, "Enable verbose output (short form)")
	timeout := flag.Duration("timeout", defaultTimeout, "Test timeout duration")
	perTest := flag.Duration("per-test-timeout", time.Minute, "Timeout of a single tool call (0 disables)")
	bearerToken := flag.String("bearer-token", os.Getenv("MCP_BEARER_TOKEN"), "Optional: Entra ID token for servers with authentication enabled")
	azureToken := flag.String("azure-token", os.Getenv("AZURE_ACCESS_TOKEN"), "Optional: ARM token forwarded as X-Azure-Token")

	flag.Parse()

	if *verboseShort {
		*verbose = true
	}

	if *subscriptionID == "" {
		fmt.Fprintf(os.Stderr, "Error: AZURE_SUBSCRIPTION_ID environment variable or --subscription-id flag is required\n")
		os.Exit(1)
	}
	if *resourceGroup == "" {
		fmt.Fprintf(os.Stderr, "Error: AZURE_RESOURCE_GROUP environment variable or --resource-group flag is required\n")
		os.Exit(1)
	}

	fmt.Println("Logic App MCP E2E Test Runner")
	fmt.Println("=============================")
	fmt.Printf("MCP Server URL: %s\n", *serverURL)
	fmt.Printf("Subscription ID: %s\n", *subscriptionID)
	fmt.Printf("Resource Group: %s\n", *resourceGroup)
	fmt.Printf("Verbose Mode: %v\n", *verbose)
	fmt.Printf("Timeout: %s\n", *timeout)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Connecting to MCP server at %s...\n", *serverURL)
	client, err := mcpclient.NewMCPClient(*serverURL, mcpclient.Options{BearerToken: *bearerToken, AzureToken: *azureToken})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create MCP client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("Initializing MCP session...")
	initResult, err := client.Initialize(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize MCP session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected to MCP server: %s v%s\n", initResult.ServerInfo.Name, initResult.ServerInfo.Version)

	fmt.Println("Listing available tools...")
	toolsResult, err := client.ListTools(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list tools: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d tools\n", len(toolsResult.Tools))
	if *verbose {
		fmt.Println("Available tools:")
		for _, tool := range toolsResult.Tools {
			fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
		}
		fmt.Println()
	}

	resources, err := client.ListResources(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list resources: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d resources\n", len(resources.Resources))

	target := tests.Target{SubscriptionID: *subscriptionID, ResourceGroup: *resourceGroup}
	testRunner := runner.NewTestRunner(client, *verbose, *perTest)

	fmt.Println("Registering tests...")
	testRunner.AddTest(&tests.ListLogicAppsTest{Target: target, Tier: "consumption"})
	testRunner.AddTest(&tests.ListLogicAppsTest{Target: target, Tier: "standard"})
	if *consumptionWorkflow != "" {
		testRunner.AddTest(&tests.GetLogicAppTest{Target: target, Tier: "consumption", WorkflowName: *consumptionWorkflow})
	}
	if *standardWorkflow != "" {
		testRunner.AddTest(&tests.GetLogicAppTest{Target: target, Tier: "standard", WorkflowName: *standardWorkflow})
	}
	if *appName != "" {
		for _, tool := range []string{"get_scm_info", "list_deployments", "get_settings"} {
			testRunner.AddTest(&tests.KuduReadTest{Target: target, Tool: tool, AppName: *appName})
		}
	}

	fmt.Println("Starting test execution...")
	results, err := testRunner.RunAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Test execution failed: %v\n", err)
		os.Exit(1)
	}

	runner.PrintResults(results, *verbose)

	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}

	fmt.Println("\n✅ All tests passed!")
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
