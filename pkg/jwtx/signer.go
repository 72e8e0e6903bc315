package jwtx

import "github.com/golang-jwt/jwt/v5"

// HS256Signer mints tokens accepted by an HS256Verifier sharing its secret.
type HS256Signer struct {
	secret []byte
}

func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256Signer{secret: secret}, nil
}

// Sign serializes claims into a compact JWS.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
