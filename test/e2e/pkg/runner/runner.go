package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	mcpclient "github.com/Azure/logicapp-mcp/test/e2e/pkg/client"
	"github.com/Azure/logicapp-mcp/test/e2e/pkg/tests"
)

// maxShown caps how much of a tool result verbose output prints.
const maxShown = 2000

// TestRunner executes E2E tests in registration order.
type TestRunner struct {
	client      *mcpclient.MCPClient
	tests       []tests.ToolTest
	verbose     bool
	perTestTime time.Duration
}

// TestResult holds the result of a single test
type TestResult struct {
	TestName   string
	Passed     bool
	Error      error
	Duration   time.Duration
	ToolError  bool // the call itself failed, as opposed to validation
	ToolParams map[string]interface{}
	ToolResult string
}

// NewTestRunner creates a runner. perTestTime bounds each tool call; zero
// leaves only the overall deadline.
func NewTestRunner(client *mcpclient.MCPClient, verbose bool, perTestTime time.Duration) *TestRunner {
	return &TestRunner{client: client, verbose: verbose, perTestTime: perTestTime}
}

// AddTest adds a test to the runner
func (r *TestRunner) AddTest(test tests.ToolTest) {
	r.tests = append(r.tests, test)
}

// RunAll runs every test and stops early only when ctx ends.
func (r *TestRunner) RunAll(ctx context.Context) ([]TestResult, error) {
	results := make([]TestResult, 0, len(r.tests))
	for _, test := range r.tests {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("stopped before %s: %w", test.Name(), err)
		}
		results = append(results, r.run(ctx, test))
	}
	return results, nil
}

func (r *TestRunner) run(ctx context.Context, test tests.ToolTest) TestResult {
	result := TestResult{TestName: test.Name(), ToolParams: test.GetParams()}

	if r.perTestTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.perTestTime)
		defer cancel()
	}

	start := time.Now()
	toolResult, err := test.Run(ctx, r.client.GetInternalClient())
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		result.ToolError = true
		return result
	}

	if toolResult != nil {
		for _, content := range toolResult.Content {
			if tc, ok := content.(mcp.TextContent); ok {
				result.ToolResult = tc.Text
				break
			}
		}
	}

	if err := test.Validate(toolResult); err != nil {
		result.Error = fmt.Errorf("validation failed: %w", err)
		return result
	}
	result.Passed = true
	return result
}

// PrintResults prints per-test details followed by a summary table.
func PrintResults(results []TestResult, verbose bool) {
	rule := strings.Repeat("=", 80)
	fmt.Println("\n" + rule)
	fmt.Println("Test Results")
	fmt.Println(rule)

	passed := 0
	var total time.Duration
	for i, result := range results {
		total += result.Duration
		if result.Passed {
			passed++
		}

		fmt.Printf("\n[%d/%d] %s (%s)\n", i+1, len(results), result.TestName, result.Duration.Round(time.Millisecond))
		if verbose && result.ToolParams != nil {
			params, _ := json.MarshalIndent(result.ToolParams, "      ", "  ")
			fmt.Printf("    Parameters:\n      %s\n", params)
		}

		if result.Passed {
			fmt.Println("    Status: ✅ PASS")
		} else {
			kind := "Validation error"
			if result.ToolError {
				kind = "Tool call error"
			}
			fmt.Printf("    Status: ❌ FAIL (%s)\n", kind)
			fmt.Printf("    Error: %v\n", result.Error)
		}
		if (verbose || !result.Passed) && result.ToolResult != "" {
			fmt.Printf("    Result:\n      %s\n", shown(result.ToolResult))
		}
	}

	fmt.Println("\n" + rule)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEST\tSTATUS\tDURATION")
	for _, result := range results {
		status := "pass"
		if !result.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", result.TestName, status, result.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
	fmt.Printf("\nSummary: %d total, %d passed, %d failed in %s\n", len(results), passed, len(results)-passed, total.Round(time.Millisecond))
	fmt.Println(rule)
}

// shown pretty-prints JSON results and truncates everything else.
func shown(text string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		pretty, _ := json.MarshalIndent(v, "      ", "  ")
		text = string(pretty)
	}
	if len(text) > maxShown {
		return text[:maxShown] + "...(truncated)"
	}
	return text
}
