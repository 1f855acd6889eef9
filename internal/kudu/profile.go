package kudu

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/beevik/etree"
)

// ProfileFunc returns the publishing profile XML of an app.
type ProfileFunc func(ctx context.Context, appName string) ([]byte, error)

// ErrNoDeployProfile is returned when the publishing profile has no
// MSDeploy entry carrying credentials.
var ErrNoDeployProfile = errors.New("could not find Kudu credentials in publishing profile")

// WebAppsProfiles reads publishing profiles through the App Service API.
func WebAppsProfiles(client *armappservice.WebAppsClient, resourceGroup string) ProfileFunc {
	return func(ctx context.Context, appName string) ([]byte, error) {
		if resourceGroup == "" {
			return nil, errors.New("resource group is required to read the publishing profile")
		}
		resp, err := client.ListPublishingProfileXMLWithSecrets(ctx, resourceGroup, appName, armappservice.CsmPublishingProfileOptions{
			Format: to.Ptr(armappservice.PublishingProfileFormatWebDeploy),
		}, nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}
}

// ParsePublishingProfile extracts the MSDeploy user name and password.
func ParsePublishingProfile(data []byte) (user, password string, err error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", "", fmt.Errorf("invalid publishing profile: %w", err)
	}

	for _, el := range doc.FindElements("//publishProfile[@publishMethod='MSDeploy']") {
		user = el.SelectAttrValue("userName", "")
		password = el.SelectAttrValue("userPWD", "")
		if user != "" {
			return user, password, nil
		}
	}
	return "", "", ErrNoDeployProfile
}

// BasicAuth formats an Authorization header value.
func BasicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}
