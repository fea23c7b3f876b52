package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims are the fields healthdesk reads from the access token.
// They are decoded without verifying the signature and must only be used
// for display and routing, never for trust decisions.
type Claims struct {
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeClaims base64url-decodes the payload segment of token.
func DecodeClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token has no expiry or it has passed at now.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}
