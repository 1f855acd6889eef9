// Package azureclient holds credential helpers shared by the SDK adapters.
package azureclient

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/golang-jwt/jwt/v5"
)

// defaultLifetime is assumed for opaque tokens that carry no exp claim.
const defaultLifetime = time.Hour

var errEmptyToken = errors.New("empty Azure access token")

// StaticTokenCredential serves a bearer token obtained elsewhere, such as
// the X-Azure-Token header of an MCP request. The token is never refreshed.
type StaticTokenCredential struct {
	token     string
	expiresOn time.Time
}

// NewStaticTokenCredential wraps token. When token is a JWT its exp claim
// becomes the reported expiry. The signature is not checked here.
func NewStaticTokenCredential(token string) *StaticTokenCredential {
	return &StaticTokenCredential{
		token:     token,
		expiresOn: expiry(token, time.Now()),
	}
}

func expiry(token string, now time.Time) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return now.Add(defaultLifetime)
	}
	return claims.ExpiresAt.Time
}

// GetToken ignores the requested scopes; the caller is trusted to have
// minted the token for ARM.
func (c *StaticTokenCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if c.token == "" {
		return azcore.AccessToken{}, errEmptyToken
	}
	return azcore.AccessToken{
		Token:     c.token,
		ExpiresOn: c.expiresOn,
	}, nil
}
