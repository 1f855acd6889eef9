package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Azure/logicapp-mcp/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// minJWKSRefresh bounds how often signing keys are fetched.
const minJWKSRefresh = 15 * time.Minute

// EntraValidator validates Microsoft Entra ID bearer tokens issued for the
// server's app registration.
type EntraValidator struct {
	tenantID  string
	audiences []string
	issuers   []string
	jwksURL   string
	jwksCache *jwk.Cache
}

// Claims are the Entra ID token claims the server reads.
type Claims struct {
	jwt.RegisteredClaims
	TenantID          string   `json:"tid"`
	Scope             string   `json:"scp"`
	Roles             []string `json:"roles"`
	AppID             string   `json:"appid"`
	PreferredUsername string   `json:"preferred_username"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	ObjectID          string   `json:"oid"`
	UPN               string   `json:"upn"`
}

// NewEntraValidator creates a validator whose signing keys are cached and
// refreshed in the background.
func NewEntraValidator(cfg *config.AuthConfig) (*EntraValidator, error) {
	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}

	jwksURL := cfg.JWKSURL()
	refresh := time.Duration(cfg.JWKSCacheTimeout/2) * time.Second
	if refresh < minJWKSRefresh {
		refresh = minJWKSRefresh
	}

	cache := jwk.NewCache(context.Background())
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(refresh)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS cache: %w", err)
	}

	return &EntraValidator{
		tenantID:  cfg.EntraTenantID,
		audiences: cfg.Audiences(),
		issuers:   cfg.Issuers(),
		jwksURL:   jwksURL,
		jwksCache: cache,
	}, nil
}

// ValidateToken verifies the signature and claims of tokenString.
func (v *EntraValidator) ValidateToken(ctx context.Context, tokenString string) (*UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing kid in token header")
		}

		keySet, err := v.jwksCache.Get(ctx, v.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("failed to get JWKS: %w", err)
		}
		key, found := keySet.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("key %s not found in JWKS", kid)
		}

		var raw interface{}
		if err := key.Raw(&raw); err != nil {
			return nil, fmt.Errorf("failed to get raw key: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}

	return &UserContext{
		UserID:   userID(claims),
		Email:    email(claims),
		Name:     claims.Name,
		TenantID: claims.TenantID,
		Scopes:   strings.Fields(claims.Scope),
		Roles:    claims.Roles,
	}, nil
}

// validateClaims checks tenant, audience and issuer. Both the bare client ID
// and the api:// identifier URI are accepted as audience, and both the v1.0
// and v2.0 issuers.
func (v *EntraValidator) validateClaims(claims *Claims) error {
	if claims.TenantID != v.tenantID {
		return fmt.Errorf("invalid tenant ID: expected %s, got %s", v.tenantID, claims.TenantID)
	}
	if len(claims.Audience) == 0 {
		return fmt.Errorf("missing audience claim")
	}

	if !slices.ContainsFunc(claims.Audience, func(aud string) bool { return slices.Contains(v.audiences, aud) }) {
		return fmt.Errorf("invalid audience: expected %v, got %v", v.audiences, []string(claims.Audience))
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		return fmt.Errorf("invalid issuer: expected one of %v, got %s", v.issuers, claims.Issuer)
	}
	return nil
}

func userID(claims *Claims) string {
	if claims.ObjectID != "" {
		return claims.ObjectID
	}
	return claims.Subject
}

func email(claims *Claims) string {
	switch {
	case claims.Email != "":
		return claims.Email
	case claims.UPN != "":
		return claims.UPN
	default:
		return claims.PreferredUsername
	}
}
