package domain

import (
	"strings"
	"time"
)

type Account struct {
	ID        string
	Email     string // lower-cased
	InviteID  string // invite that provisioned the account
	CreatedAt time.Time
}

// AccountRef is what callers get back after a successful redemption or
// authentication.
type AccountRef struct {
	ID    string
	Email string
}

func (a Account) Ref() AccountRef { return AccountRef{ID: a.ID, Email: a.Email} }

// NormalizeEmail trims and lower-cases an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
