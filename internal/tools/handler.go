package tools

import (
	"encoding/json"

	"github.com/Azure/logicapp-mcp/internal/logger"
)

// maxLogLength caps how much of an argument dump or result is logged.
const maxLogLength = 500

const redacted = "***"

// secretKeys are argument names whose values never reach the log.
var secretKeys = map[string]bool{
	"client_secret": true,
	"private_key":   true,
	"auth_header":   true,
}

// Redact returns a copy of args with secret values masked, including inside
// a nested azure context object.
func Redact(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		switch {
		case secretKeys[k]:
			out[k] = redacted
		default:
			if nested, ok := v.(map[string]interface{}); ok {
				out[k] = Redact(nested)
				continue
			}
			out[k] = v
		}
	}
	return out
}

// LogToolCall logs the start of a tool call
func LogToolCall(toolName string, arguments map[string]interface{}) {
	if !logger.IsDebug() {
		return
	}
	if jsonBytes, err := json.Marshal(Redact(arguments)); err == nil {
		logger.Debugf(">>> [%s] %s", toolName, truncate(string(jsonBytes)))
	} else {
		logger.Debugf(">>> [%s] %v", toolName, Redact(arguments))
	}
}

// LogToolResult logs the result or error of a tool call
func LogToolResult(toolName string, result string, err error) {
	if err != nil {
		logger.Debugf("<<< [%s] ERROR: %v", toolName, err)
	} else if len(result) > maxLogLength {
		logger.Debugf("<<< [%s] Result: %d bytes (truncated): %s", toolName, len(result), truncate(result))
	} else {
		logger.Debugf("<<< [%s] Result: %s", toolName, result)
	}
}

func truncate(s string) string {
	if len(s) <= maxLogLength {
		return s
	}
	return s[:maxLogLength] + "..."
}
