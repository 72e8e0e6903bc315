package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrAlreadyExists  = errors.New("store: already exists")
	ErrAlreadyClaimed = errors.New("store: invite already claimed")
)

// Listing bounds for ListInvites.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories reached through Store run on the pool; those
// reached through a Tx run inside that transaction. Tx deliberately has no
// way to start another transaction.
type Store interface {
	Repos

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Repos groups the repositories shared by Store and Tx.
type Repos interface {
	Invites() Invites
	Accounts() Accounts
	Credentials() Credentials
}

// Tx is a transaction-scoped set of repositories. Commit and rollback are
// owned by Store.WithTx.
type Tx interface {
	Repos
}

type Invites interface {
	// CreateInvite writes a new invite. A code_hash collision returns
	// ErrAlreadyExists.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByCodeHash returns the invite with the given digest, used or not.
	GetInviteByCodeHash(ctx context.Context, codeHash string) (domain.Invite, error)

	// GetInviteByID returns an invite by id.
	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	// ClaimInvite sets used_at and used_by in one conditional statement that
	// only matches an unclaimed row. It returns ErrAlreadyClaimed when the
	// invite exists but was claimed first, ErrNotFound when it does not exist.
	ClaimInvite(ctx context.Context, inviteID, accountID string, now time.Time) error

	// ListInvites returns invites newest first.
	ListInvites(ctx context.Context, filter ListInvitesFilter) ([]domain.Invite, error)
}

// ListInvitesFilter narrows ListInvites. Status is evaluated at Now.
type ListInvitesFilter struct {
	Status domain.InviteStatus // empty for all
	Now    time.Time
	Limit  int
}

// EffectiveLimit clamps Limit into [1, MaxListLimit], defaulting to
// DefaultListLimit.
func (f ListInvitesFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

type Accounts interface {
	// CreateAccount inserts an account. A taken email returns ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) error

	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks up by normalized email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
}

type Credentials interface {
	// PutCredential inserts or wholesale replaces the account's credential.
	PutCredential(ctx context.Context, c domain.Credential) error

	GetCredential(ctx context.Context, accountID string) (domain.Credential, error)
}
