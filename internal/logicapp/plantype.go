// Package logicapp adapts the Logic Apps and App Service management APIs for
// the Consumption and Standard tool families. Adapters are built per call and
// bound to one resolved azure.Context. Failures are logged and degrade to
// empty results instead of being returned as errors.
package logicapp

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/tidwall/gjson"
)

// PlanType is the hosting tier of a workflow.
type PlanType int

const (
	PlanUnknown PlanType = iota
	PlanConsumption
	PlanStandard
)

func (p PlanType) String() string {
	switch p {
	case PlanConsumption:
		return "consumption"
	case PlanStandard:
		return "standard"
	default:
		return "unknown"
	}
}

var standardSKUs = map[string]bool{"ws1": true, "ws2": true, "ws3": true}

// Classify decides the tier of a workflow. Workflows on a WS1-WS3 SKU are
// Standard; workflows bound to an integration service environment are not
// managed by either tier; anything else well formed is Consumption.
func Classify(w *armlogic.Workflow) PlanType {
	if w == nil {
		return PlanUnknown
	}
	return classifyJSON(toJSON(w))
}

func classifyJSON(w gjson.Result) PlanType {
	if !w.IsObject() {
		return PlanUnknown
	}
	if sku := w.Get("properties.sku.name"); sku.Type == gjson.String && standardSKUs[strings.ToLower(sku.Str)] {
		return PlanStandard
	}
	if ise := w.Get("properties.integrationServiceEnvironment"); ise.Exists() && ise.Type != gjson.Null {
		return PlanUnknown
	}
	return PlanConsumption
}
