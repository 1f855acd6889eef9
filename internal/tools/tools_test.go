package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	args := Args{
		"name":     "orders",
		"empty":    "",
		"limit":    float64(25),
		"count":    "7",
		"clean":    true,
		"async":    "false",
		"settings": map[string]interface{}{"A": "1", "B": float64(2)},
		"methods":  []interface{}{"GET", nil, float64(1)},
		"single":   "POST",
	}

	assert.Equal(t, "orders", args.String("name", "x"))
	assert.Equal(t, "x", args.String("empty", "x"))
	assert.Equal(t, "x", args.String("missing", "x"))
	assert.Equal(t, "25", args.String("limit", ""))

	assert.Equal(t, 25, args.Int("limit", 10))
	assert.Equal(t, 7, args.Int("count", 10))
	assert.Equal(t, 10, args.Int("name", 10))
	assert.Equal(t, 10, args.Int("missing", 10))

	assert.True(t, args.Bool("clean", false))
	assert.False(t, args.Bool("async", true))
	assert.True(t, args.Bool("missing", true))
	assert.Nil(t, args.OptionalBool("missing"))
	require.NotNil(t, args.OptionalBool("clean"))
	assert.True(t, *args.OptionalBool("clean"))

	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, args.StringMap("settings"))
	assert.Nil(t, args.StringMap("name"))
	assert.Equal(t, []string{"GET", "1"}, args.Strings("methods"))
	assert.Equal(t, []string{"POST"}, args.Strings("single"))
	assert.Nil(t, args.Strings("missing"))
	assert.Nil(t, args.Object("name"))
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		result interface{}
		want   string
	}{
		{"nil", nil, "null"},
		{"string", "SCM repository cleaned", "SCM repository cleaned"},
		{"utf8 bytes", []byte("hello"), "hello"},
		{"binary bytes", []byte{0xff, 0xfe}, "Binary file (base64): //4="},
		{"labelled", Binary{Label: "Zip file", Data: []byte("PK")}, "Zip file (base64): UEs="},
		{"html is not escaped", map[string]interface{}{"url": "https://x/?a=1&b=<2>"}, "{\n  \"url\": \"https://x/?a=1&b=<2>\"\n}"},
		{"action", Action("Consumption Logic App 'orders' created", true), "Consumption Logic App 'orders' created: true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.result)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderRoundTrips(t *testing.T) {
	in := []map[string]interface{}{{"name": "orders", "plan_type": "consumption"}}
	text, err := Render(in)
	require.NoError(t, err)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, in, out)

	_, err = Render(map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	args := map[string]interface{}{
		"workflow_name": "orders",
		"client_secret": "s3cret",
		"azure_context": map[string]interface{}{"client_secret": "nested", "tenant_id": "t"},
	}
	out := Redact(args)
	assert.Equal(t, "***", out["client_secret"])
	assert.Equal(t, map[string]interface{}{"client_secret": "***", "tenant_id": "t"}, out["azure_context"])
	assert.Equal(t, "s3cret", args["client_secret"], "input is not modified")
}

func TestLogToolCallRedactsAndTruncates(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	t.Cleanup(func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	})

	LogToolCall("create_consumption_logic_app", map[string]interface{}{
		"client_secret": "s3cret",
		"definition":    strings.Repeat("x", 2000),
	})
	LogToolResult("create_consumption_logic_app", strings.Repeat("y", 1000), nil)
	LogToolResult("create_consumption_logic_app", "", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, strings.Repeat("x", 600))
	assert.Contains(t, out, "1000 bytes (truncated)")
	assert.Contains(t, out, "ERROR: boom")
}
