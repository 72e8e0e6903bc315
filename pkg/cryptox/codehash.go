package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// MaxCodeLength bounds a normalized invite code, in bytes.
const MaxCodeLength = 128

// ErrMalformedCode reports an invite code that cannot possibly have been issued.
var ErrMalformedCode = errors.New("cryptox: malformed invite code")

// CodeHasher derives the lookup digest for invite codes. The digest is an
// HMAC-SHA256 keyed by the pepper, so a leaked invites table cannot be
// brute-forced back into usable codes without the pepper as well.
type CodeHasher struct {
	key []byte
}

// NewCodeHasher builds a hasher bound to pepper. A zero pepper is refused.
func NewCodeHasher(pepper Pepper) (*CodeHasher, error) {
	if pepper.IsZero() {
		return nil, &ConfigurationError{Setting: "invite pepper", Reason: "not set"}
	}
	key := make([]byte, len(pepper.key))
	copy(key, pepper.key)
	return &CodeHasher{key: key}, nil
}

// Hash returns the 64-character lowercase hex digest of the normalized code.
// Codes are case and surrounding-whitespace insensitive.
func (h *CodeHasher) Hash(rawCode string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(canonicalCode(rawCode)))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizeCode canonicalizes a raw code and rejects anything that could
// never match an issued one.
func NormalizeCode(rawCode string) (string, error) {
	code := canonicalCode(rawCode)
	if code == "" || len(code) > MaxCodeLength {
		return "", ErrMalformedCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return "", ErrMalformedCode
		}
	}
	return code, nil
}

func canonicalCode(rawCode string) string {
	return strings.ToUpper(strings.TrimSpace(rawCode))
}
