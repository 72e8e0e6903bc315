package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes understood by the invite API.
const (
	ScopeInvitesRead  = "invites:read"
	ScopeInvitesWrite = "invites:write"
)

// DefaultIssuerTokenTTL is the default lifetime for tokens minted for
// invite issuers.
const DefaultIssuerTokenTTL = time.Hour

// Claims are the claims carried by issuer bearer tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Permission Scopes "invites:read, invites:write"
	Scopes []string `json:"scopes,omitempty"`
}

// NewIssuerClaims builds minimally-correct claims for an operator or service
// that manages invites.
func NewIssuerClaims(subject, issuer string, scopes []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Scopes: scopes,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiryWithLeeway checks exp and nbf at now, with a small grace
// period for clock skew. Tokens without exp are refused.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
