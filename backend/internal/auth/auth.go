package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apperrors "circles/backend/pkg/errors"
)

// firebaseJWKSURL serves the public keys Firebase signs ID tokens with.
const firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// Verifier resolves a bearer token to the requester's email.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// FirebaseVerifier validates Firebase ID tokens against Google's JWKS
// and the project's issuer/audience.
type FirebaseVerifier struct {
	projectID string
	keys      keyfunc.Keyfunc
}

// NewFirebaseVerifier starts a JWKS-backed verifier. The key set
// refreshes itself in the background for the lifetime of ctx.
func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{firebaseJWKSURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load Firebase JWKS: %w", err)
	}
	return &FirebaseVerifier{projectID: projectID, keys: k}, nil
}

// Verify checks the token's signature and claims and returns the
// account email.
func (v *FirebaseVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.NewAuth("missing authorization token", nil)
	}

	parsed, err := jwt.Parse(token, v.keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
	)
	if err != nil || !parsed.Valid {
		return "", apperrors.NewAuth("invalid authorization attempt", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.NewAuth("invalid authorization attempt", nil)
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", apperrors.NewAuth("token has no email claim", nil)
	}

	return email, nil
}
