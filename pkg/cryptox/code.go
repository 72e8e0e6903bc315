package cryptox

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const (
	// codeEntropyBytes gives 80 bits of entropy, 16 base32 symbols.
	codeEntropyBytes = 10
	codeGroupSize    = 4
)

// crockford is Crockford's base32 alphabet (no I, L, O or U).
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// GenerateCode returns a fresh invite code such as "7KQ3-M0ZD-9XWA-F2HC".
func GenerateCode() (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}

	raw := crockford.EncodeToString(buf)
	groups := make([]string, 0, len(raw)/codeGroupSize)
	for i := 0; i < len(raw); i += codeGroupSize {
		groups = append(groups, raw[i:i+codeGroupSize])
	}
	return strings.Join(groups, "-"), nil
}

// MustGenerateCode is like GenerateCode but panics on error.
// Only use it in tests and seed tooling.
func MustGenerateCode() string {
	code, err := GenerateCode()
	if err != nil {
		panic(fmt.Sprintf("cryptox: %v", err))
	}
	return code
}
