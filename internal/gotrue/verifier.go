package gotrue

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// JWTVerifier checks access tokens against the backend's published signing
// keys, so a valid token does not need a round trip to /user.
type JWTVerifier struct {
	verifier *oidc.IDTokenVerifier
}

type accessTokenClaims struct {
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// NewJWTVerifier creates a verifier fetching keys from jwksURL. ctx bounds
// the lifetime of the key fetches.
func NewJWTVerifier(ctx context.Context, issuer, jwksURL string) *JWTVerifier {
	return newJWTVerifier(issuer, oidc.NewRemoteKeySet(ctx, jwksURL))
}

func newJWTVerifier(issuer string, keySet oidc.KeySet) *JWTVerifier {
	return &JWTVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			// access tokens carry aud "authenticated", not a client id
			SkipClientIDCheck:    true,
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		}),
	}
}

// User verifies raw and returns the user described by its claims.
func (v *JWTVerifier) User(ctx context.Context, raw string) (*User, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}

		return nil, fmt.Errorf("verify access token: %w", err)
	}

	var claims accessTokenClaims
	if err = token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode access token claims: %w", err)
	}

	user := &User{
		ID:           token.Subject,
		Email:        claims.Email,
		Phone:        claims.Phone,
		Role:         claims.Role,
		AppMetadata:  claims.AppMetadata,
		UserMetadata: claims.UserMetadata,
	}

	if len(token.Audience) > 0 {
		user.Aud = token.Audience[0]
	}

	return user, nil
}
