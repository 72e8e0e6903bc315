package domain

import (
	"strings"
	"time"
)

// MetaEmail is the meta key that binds an invite to one email address.
const MetaEmail = "email"

type Invite struct {
	ID        string
	CodeHash  string         // HMAC-SHA256 hex of the normalized code
	Meta      map[string]any // issuer supplied, e.g. email, note, issued_by
	ExpiresAt *time.Time     // nil never expires
	UsedAt    *time.Time     // set together with UsedBy, exactly once
	UsedBy    *string        // account id
	CreatedAt time.Time
}

// IsUsed reports whether the invite has been claimed.
func (i Invite) IsUsed() bool { return i.UsedAt != nil }

// IsExpired reports whether the invite is expired at now. The expiry
// instant itself counts as expired.
func (i Invite) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// BoundEmail returns the email the invite is restricted to, if any.
func (i Invite) BoundEmail() (string, bool) {
	v, ok := i.Meta[MetaEmail].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// InviteStatus is a coarse lifecycle view used for listing.
type InviteStatus string

const (
	InviteUnused  InviteStatus = "unused"
	InviteUsed    InviteStatus = "used"
	InviteExpired InviteStatus = "expired"
)

// Status returns the invite's status at now. A used invite stays used even
// after its expiry passes.
func (i Invite) Status(now time.Time) InviteStatus {
	switch {
	case i.IsUsed():
		return InviteUsed
	case i.IsExpired(now):
		return InviteExpired
	default:
		return InviteUnused
	}
}

// Valid reports whether s is a known status.
func (s InviteStatus) Valid() bool {
	switch s {
	case InviteUnused, InviteUsed, InviteExpired:
		return true
	}
	return false
}
