package logicapp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/logic/armlogic"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v2"
	"github.com/Azure/logicapp-mcp/internal/azure"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/tidwall/gjson"
)

// DefaultStandardSKU is used when a Standard workflow names a plan but no SKU.
const DefaultStandardSKU = "WS1"

// workflowMetricsWindow caps the runs used for workflow level metrics.
const workflowMetricsWindow = 100

// Standard manages single-tenant workflows hosted on App Service plans.
type Standard struct {
	workflows
}

// NewStandard binds a Standard adapter to one subscription's clients and a
// resource group. clients may be nil.
func NewStandard(clients *azure.SubscriptionClients, resourceGroup string, opts Options) *Standard {
	return &Standard{workflows: newWorkflows(clients, resourceGroup, PlanStandard, opts)}
}

// StandardCreateRequest carries the hosting options of a new Standard workflow.
type StandardCreateRequest struct {
	Definition       any
	AppServicePlanID string
	SKUName          string
	// ManagedIdentity is either an identity object or a bare identity type
	// such as "SystemAssigned".
	ManagedIdentity any
}

func (s *Standard) CreateLogicApp(ctx context.Context, name string, req StandardCreateRequest) bool {
	if !s.ready() {
		return false
	}

	props := map[string]any{"definition": req.Definition}
	if req.AppServicePlanID != "" {
		sku := req.SKUName
		if sku == "" {
			sku = DefaultStandardSKU
		}
		props["sku"] = map[string]any{
			"name": sku,
			"plan": map[string]any{"id": req.AppServicePlanID},
		}
	}
	body := map[string]any{
		"location":   s.opts.Location,
		"properties": props,
	}
	switch identity := req.ManagedIdentity.(type) {
	case nil:
	case string:
		body["identity"] = map[string]any{"type": identity}
	case bool:
		if identity {
			body["identity"] = map[string]any{"type": string(armlogic.ManagedServiceIdentityTypeSystemAssigned)}
		}
	default:
		body["identity"] = identity
	}

	if err := s.put(ctx, name, body); err != nil {
		logger.Errorf("Error creating Standard Logic App %s: %v", name, err)
		return false
	}
	return true
}

// GetAppServiceInfo describes the site hosting a Standard app.
func (s *Standard) GetAppServiceInfo(ctx context.Context, appName string) map[string]any {
	if !s.ready() {
		return map[string]any{}
	}
	resp, err := s.clients.WebApps.Get(ctx, s.resourceGroup, appName, nil)
	if err != nil {
		logger.Errorf("Error getting App Service info for %s: %v", appName, err)
		return map[string]any{}
	}

	out := project(toJSON(resp.Site), siteFields)
	out["plan_type"] = s.plan.String()
	return out
}

var siteFields = []field{
	{"name", "name"},
	{"state", "properties.state"},
	{"host_names", "properties.hostNames"},
	{"repository_site_name", "properties.repositorySiteName"},
	{"usage_state", "properties.usageState"},
	{"enabled", "properties.enabled"},
	{"availability_state", "properties.availabilityState"},
	{"server_farm_id", "properties.serverFarmId"},
	{"last_modified_time", "properties.lastModifiedTimeUtc"},
}

// ScaleAppServicePlan sets the worker count and, optionally, the SKU.
func (s *Standard) ScaleAppServicePlan(ctx context.Context, planName string, instances int, skuName string) bool {
	if !s.ready() {
		return false
	}

	resp, err := s.clients.Plans.Get(ctx, s.resourceGroup, planName, nil)
	if err != nil {
		logger.Errorf("Error scaling App Service plan %s: %v", planName, err)
		return false
	}

	plan := resp.Plan
	if plan.SKU == nil {
		plan.SKU = &armappservice.SKUDescription{}
	}
	plan.SKU.Capacity = to.Ptr(int32(instances))
	if skuName != "" {
		plan.SKU.Name = to.Ptr(skuName)
	}

	poller, err := s.clients.Plans.BeginCreateOrUpdate(ctx, s.resourceGroup, planName, plan, nil)
	if err == nil {
		_, err = poller.PollUntilDone(ctx, nil)
	}
	if err != nil {
		logger.Errorf("Error scaling App Service plan %s: %v", planName, err)
		return false
	}
	return true
}

// VNetConfig names the subnet a Standard app joins. Certificates and routes
// belong to gateway based integration and are not used.
type VNetConfig struct {
	VNetName         string
	VNetResourceID   string
	SubnetResourceID string
}

// ConfigureVNetIntegration connects the app to a subnet with regional
// (swift) VNet integration after checking the subnet exists.
func (s *Standard) ConfigureVNetIntegration(ctx context.Context, appName string, cfg VNetConfig) bool {
	if !s.ready() {
		return false
	}
	if err := s.configureVNet(ctx, appName, cfg); err != nil {
		logger.Errorf("Error configuring VNET integration for %s: %v", appName, err)
		return false
	}
	return true
}

func (s *Standard) configureVNet(ctx context.Context, appName string, cfg VNetConfig) error {
	subnetID, err := azure.ParseResourceIDOfType(cfg.SubnetResourceID, azure.ResourceTypeSubnet)
	if err != nil {
		return err
	}
	if cfg.VNetName != "" && !strings.EqualFold(cfg.VNetName, subnetID.ParentName) {
		return fmt.Errorf("subnet %s does not belong to virtual network %s", cfg.SubnetResourceID, cfg.VNetName)
	}
	if cfg.VNetResourceID != "" {
		vnetID, err := azure.ParseResourceIDOfType(cfg.VNetResourceID, azure.ResourceTypeVirtualNetwork)
		if err != nil {
			return err
		}
		if !strings.EqualFold(vnetID.ResourceName, subnetID.ParentName) || !strings.EqualFold(vnetID.ResourceGroup, subnetID.ResourceGroup) {
			return fmt.Errorf("subnet %s is not part of %s", cfg.SubnetResourceID, cfg.VNetResourceID)
		}
	}

	subnets := s.clients.Subnets
	if !strings.EqualFold(subnetID.SubscriptionID, s.clients.SubscriptionID) {
		if subnets, err = armnetwork.NewSubnetsClient(subnetID.SubscriptionID, s.clients.Credential, s.clients.Options); err != nil {
			return err
		}
	}
	subnet, err := subnets.Get(ctx, subnetID.ResourceGroup, subnetID.ParentName, subnetID.ResourceName, nil)
	if err != nil {
		return fmt.Errorf("failed to get subnet: %w", err)
	}
	id := cfg.SubnetResourceID
	if subnet.ID != nil {
		id = *subnet.ID
	}

	envelope := armappservice.SwiftVirtualNetwork{
		Properties: &armappservice.SwiftVirtualNetworkProperties{SubnetResourceID: to.Ptr(id)},
	}
	_, err = s.clients.WebApps.CreateOrUpdateSwiftVirtualNetworkConnectionWithCheck(ctx, s.resourceGroup, appName, envelope, nil)
	return err
}

// siteMetrics are read from the site, planMetrics from its App Service plan.
var (
	siteMetrics = map[string]metricSeries{
		"Requests":            {key: "http_requests", aggregation: "total"},
		"AverageResponseTime": {key: "response_time", aggregation: "average"},
	}
	planMetrics = map[string]metricSeries{
		"CpuPercentage":    {key: "cpu_percentage", aggregation: "average"},
		"MemoryPercentage": {key: "memory_percentage", aggregation: "average"},
	}
)

type metricSeries struct {
	key         string
	aggregation string
}

// GetMetrics returns performance series for the app and, when workflowName is
// set, the execution count and success rate of that workflow.
func (s *Standard) GetMetrics(ctx context.Context, appName, workflowName string) map[string]any {
	if !s.ready() {
		return map[string]any{}
	}

	site, err := s.clients.WebApps.Get(ctx, s.resourceGroup, appName, nil)
	if err != nil {
		logger.Errorf("Error getting Standard metrics for %s: %v", appName, err)
		return map[string]any{}
	}
	siteJSON := toJSON(site.Site)

	out := map[string]any{
		"cpu_percentage":    []float64{},
		"memory_percentage": []float64{},
		"http_requests":     []float64{},
		"response_time":     []float64{},
		"plan_type":         s.plan.String(),
	}
	s.collectMetrics(ctx, siteJSON.Get("id").String(), siteMetrics, out)
	s.collectMetrics(ctx, siteJSON.Get("properties.serverFarmId").String(), planMetrics, out)

	if workflowName != "" {
		runs, err := s.listRuns(ctx, workflowName, workflowMetricsWindow, "")
		if err != nil {
			logger.Errorf("Error getting run history for %s: %v", workflowName, err)
		}
		succeeded := 0
		for _, run := range runs {
			if run.Get("properties.status").String() == "Succeeded" {
				succeeded++
			}
		}
		rate := 0.0
		if len(runs) > 0 {
			rate = float64(succeeded) / float64(len(runs)) * 100
		}
		out["workflow_executions"] = len(runs)
		out["workflow_success_rate"] = rate
	}
	return out
}

func (s *Standard) collectMetrics(ctx context.Context, resourceURI string, series map[string]metricSeries, out map[string]any) {
	if resourceURI == "" {
		return
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	resp, err := s.clients.Metrics.List(ctx, resourceURI, &armmonitor.MetricsClientListOptions{
		Metricnames: to.Ptr(strings.Join(names, ",")),
		Aggregation: to.Ptr("Average,Total"),
	})
	if err != nil {
		logger.Errorf("Error reading metrics for %s: %v", resourceURI, err)
		return
	}

	for _, metric := range toJSON(resp).Get("value").Array() {
		spec, ok := series[metric.Get("name.value").String()]
		if !ok {
			continue
		}
		out[spec.key] = metricPoints(metric, spec.aggregation)
	}
}

func metricPoints(metric gjson.Result, aggregation string) []float64 {
	points := []float64{}
	for _, ts := range metric.Get("timeseries").Array() {
		for _, p := range ts.Get("data").Array() {
			if v := p.Get(aggregation); v.Exists() && v.Type == gjson.Number {
				points = append(points, v.Float())
			}
		}
	}
	return points
}
