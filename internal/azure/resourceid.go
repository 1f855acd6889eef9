package azure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
)

// ResourceType is the fully qualified ARM type of a resource.
type ResourceType string

const (
	ResourceTypeSubnet         ResourceType = "Microsoft.Network/virtualNetworks/subnets"
	ResourceTypeVirtualNetwork ResourceType = "Microsoft.Network/virtualNetworks"
	ResourceTypeServerFarm     ResourceType = "Microsoft.Web/serverfarms"
	ResourceTypeSite           ResourceType = "Microsoft.Web/sites"
	ResourceTypeWorkflow       ResourceType = "Microsoft.Logic/workflows"
)

// AzureResourceID represents an Azure resource ID.
type AzureResourceID struct {
	SubscriptionID string
	ResourceGroup  string
	ResourceType   ResourceType
	ResourceName   string
	// ParentName is set for child resources, e.g. the VNet of a subnet.
	ParentName string
	FullID     string
}

// ParseResourceID parses an Azure resource ID into its components.
func ParseResourceID(resourceID string) (*AzureResourceID, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, errors.New("resource ID cannot be empty")
	}

	parsed, err := arm.ParseResourceID(resourceID)
	if err != nil {
		return nil, fmt.Errorf("invalid resource ID format: %s: %w", resourceID, err)
	}
	if parsed.SubscriptionID == "" || parsed.ResourceGroupName == "" {
		return nil, fmt.Errorf("resource ID is not scoped to a resource group: %s", resourceID)
	}

	id := &AzureResourceID{
		SubscriptionID: parsed.SubscriptionID,
		ResourceGroup:  parsed.ResourceGroupName,
		ResourceType:   ResourceType(parsed.ResourceType.String()),
		ResourceName:   parsed.Name,
		FullID:         resourceID,
	}
	if parsed.Parent != nil && parsed.Parent.ResourceType.String() != arm.ResourceGroupResourceType.String() {
		id.ParentName = parsed.Parent.Name
	}
	return id, nil
}

// ParseResourceIDOfType parses resourceID and checks that it names a
// resource of the wanted type. Type comparison ignores case like ARM does.
func ParseResourceIDOfType(resourceID string, want ResourceType) (*AzureResourceID, error) {
	id, err := ParseResourceID(resourceID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(string(id.ResourceType), string(want)) {
		return nil, fmt.Errorf("resource ID is not a %s: %s", want, resourceID)
	}
	return id, nil
}

// IsSubnet reports whether the ID names a VNet subnet.
func (r *AzureResourceID) IsSubnet() bool {
	return strings.EqualFold(string(r.ResourceType), string(ResourceTypeSubnet))
}
