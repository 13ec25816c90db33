package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpiry reads exp claim of the stored access token.
// Signature is not verified.
// Returns false if token is opaque or has no exp claim.
func (m *Manager) AccessTokenExpiry(ctx context.Context) (time.Time, bool, error) {
	access, err := m.AccessToken(ctx)
	if err != nil {
		return time.Time{}, false, err
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}, false, nil
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}

	return claims.ExpiresAt.Time, true, nil
}
