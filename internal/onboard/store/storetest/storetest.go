// Package storetest holds behaviour tests every store driver must pass.
package storetest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a freshly migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run executes the driver behaviour suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGetInvite", func(t *testing.T) { testCreateAndGetInvite(t, newStore(t)) })
	t.Run("DuplicateCodeHash", func(t *testing.T) { testDuplicateCodeHash(t, newStore(t)) })
	t.Run("ClaimInvite", func(t *testing.T) { testClaimInvite(t, newStore(t)) })
	t.Run("ConcurrentClaims", func(t *testing.T) { testConcurrentClaims(t, newStore(t)) })
	t.Run("ClaimRolledBack", func(t *testing.T) { testClaimRolledBack(t, newStore(t)) })
	t.Run("ListInvites", func(t *testing.T) { testListInvites(t, newStore(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("Credentials", func(t *testing.T) { testCredentials(t, newStore(t)) })
}

// now is truncated to the coarsest precision any driver stores.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// NewInvite builds an unclaimed invite with a unique digest.
func NewInvite(createdAt time.Time, expiresAt *time.Time) domain.Invite {
	id := idx.NewAt(createdAt).String()
	digest := sha256.Sum256([]byte(id))
	return domain.Invite{
		ID:        id,
		CodeHash:  hex.EncodeToString(digest[:]),
		Meta:      map[string]any{"note": "storetest"},
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

// claimAndProvision claims inviteID for a new account inside one
// transaction, the way redemption does.
func claimAndProvision(ctx context.Context, s store.Store, inviteID, email string, at time.Time) (string, error) {
	accountID := idx.New().String()
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().ClaimInvite(ctx, inviteID, accountID, at); err != nil {
			return err
		}
		return tx.Accounts().CreateAccount(ctx, domain.Account{
			ID:        accountID,
			Email:     email,
			InviteID:  inviteID,
			CreatedAt: at,
		})
	})
	return accountID, err
}

// ClaimForNewAccount claims inviteID for a fresh account and returns the
// account id. It fails the test on any error.
func ClaimForNewAccount(t *testing.T, s store.Store, inviteID, email string) string {
	t.Helper()
	accountID, err := claimAndProvision(t.Context(), s, inviteID, email, now())
	require.NoError(t, err)
	return accountID
}

func testCreateAndGetInvite(t *testing.T, s store.Store) {
	ctx := t.Context()
	created := now()
	expires := created.Add(time.Hour)
	inv := NewInvite(created, &expires)
	inv.Meta = map[string]any{"email": "a@x.com", "note": "vip"}

	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	got, err := s.Invites().GetInviteByCodeHash(ctx, inv.CodeHash)
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)
	require.Equal(t, inv.CodeHash, got.CodeHash)
	require.Equal(t, inv.Meta, got.Meta)
	require.NotNil(t, got.ExpiresAt)
	require.True(t, expires.Equal(*got.ExpiresAt))
	require.True(t, created.Equal(got.CreatedAt))
	require.Nil(t, got.UsedAt)
	require.Nil(t, got.UsedBy)

	byID, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, got, byID)

	_, err = s.Invites().GetInviteByCodeHash(ctx, "0000")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Invites().GetInviteByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	noExpiry := NewInvite(created, nil)
	noExpiry.Meta = nil
	require.NoError(t, s.Invites().CreateInvite(ctx, noExpiry))
	got, err = s.Invites().GetInviteByID(ctx, noExpiry.ID)
	require.NoError(t, err)
	require.Nil(t, got.ExpiresAt)
	require.Empty(t, got.Meta)
}

func testDuplicateCodeHash(t *testing.T, s store.Store) {
	ctx := t.Context()
	first := NewInvite(now(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, first))

	second := NewInvite(now(), nil)
	second.CodeHash = first.CodeHash
	require.ErrorIs(t, s.Invites().CreateInvite(ctx, second), store.ErrAlreadyExists)
}

func testClaimInvite(t *testing.T, s store.Store) {
	ctx := t.Context()
	inv := NewInvite(now(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	claimedAt := now()
	accountID, err := claimAndProvision(ctx, s, inv.ID, "first@x.com", claimedAt)
	require.NoError(t, err)

	got, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)
	require.NotNil(t, got.UsedBy)
	require.Equal(t, accountID, *got.UsedBy)
	require.True(t, claimedAt.Equal(*got.UsedAt))

	_, err = claimAndProvision(ctx, s, inv.ID, "second@x.com", now())
	require.ErrorIs(t, err, store.ErrAlreadyClaimed)

	// The original claim is untouched.
	again, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, got, again)

	_, err = claimAndProvision(ctx, s, "missing", "third@x.com", now())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentClaims(t *testing.T, s store.Store) {
	ctx := t.Context()
	inv := NewInvite(now(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	const workers = 50
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		errs    = make([]error, workers)
		winners = make([]string, workers)
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			winners[i], errs[i] = claimAndProvision(ctx, s, inv.ID, fmt.Sprintf("user%d@x.com", i), now())
		}()
	}
	close(start)
	wg.Wait()

	var (
		succeeded int
		winner    string
	)
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
			winner = winners[i]
		case errors.Is(err, store.ErrAlreadyClaimed):
		default:
			t.Fatalf("worker %d: unexpected error %v", i, err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one claim must win")

	got, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UsedBy)
	require.Equal(t, winner, *got.UsedBy)
}

func testClaimRolledBack(t *testing.T, s store.Store) {
	ctx := t.Context()
	inv := NewInvite(now(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	boom := errors.New("provisioning failed")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().ClaimInvite(ctx, inv.ID, idx.New().String(), now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Nil(t, got.UsedAt, "a rolled back claim leaves the invite unused")
	require.Nil(t, got.UsedBy)

	_, err = claimAndProvision(ctx, s, inv.ID, "later@x.com", now())
	require.NoError(t, err)
}

func testListInvites(t *testing.T, s store.Store) {
	ctx := t.Context()
	base := now().Add(-time.Hour)
	past := base.Add(30 * time.Minute)
	future := base.Add(48 * time.Hour)

	unused := NewInvite(base, &future)
	expired := NewInvite(base.Add(time.Second), &past)
	used := NewInvite(base.Add(2*time.Second), &past)
	forever := NewInvite(base.Add(3*time.Second), nil)
	for _, inv := range []domain.Invite{unused, expired, used, forever} {
		require.NoError(t, s.Invites().CreateInvite(ctx, inv))
	}
	_, err := claimAndProvision(ctx, s, used.ID, "used@x.com", base.Add(10*time.Minute))
	require.NoError(t, err)

	ids := func(status domain.InviteStatus, limit int) []string {
		list, err := s.Invites().ListInvites(ctx, store.ListInvitesFilter{Status: status, Now: now(), Limit: limit})
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, inv := range list {
			out = append(out, inv.ID)
		}
		return out
	}

	require.Equal(t, []string{forever.ID, used.ID, expired.ID, unused.ID}, ids("", 0), "newest first")
	require.Equal(t, []string{forever.ID, unused.ID}, ids(domain.InviteUnused, 0))
	require.Equal(t, []string{used.ID}, ids(domain.InviteUsed, 0))
	require.Equal(t, []string{expired.ID}, ids(domain.InviteExpired, 0))
	require.Equal(t, []string{forever.ID, used.ID}, ids("", 2))

	_, err = s.Invites().ListInvites(ctx, store.ListInvitesFilter{Status: "revoked", Now: now()})
	require.Error(t, err)
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := t.Context()
	first := NewInvite(now(), nil)
	second := NewInvite(now(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, first))
	require.NoError(t, s.Invites().CreateInvite(ctx, second))

	accountID, err := claimAndProvision(ctx, s, first.ID, "  Grace@Example.COM ", now())
	require.NoError(t, err)

	acct, err := s.Accounts().GetAccountByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	require.Equal(t, accountID, acct.ID)
	require.Equal(t, "grace@example.com", acct.Email)
	require.Equal(t, first.ID, acct.InviteID)

	byID, err := s.Accounts().GetAccountByID(ctx, accountID)
	require.NoError(t, err)
	require.Equal(t, acct, byID)

	_, err = claimAndProvision(ctx, s, second.ID, "GRACE@example.com", now())
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	inv, err := s.Invites().GetInviteByID(ctx, second.ID)
	require.NoError(t, err)
	require.Nil(t, inv.UsedAt, "a failed account insert rolls the claim back")

	_, err = s.Accounts().GetAccountByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testCredentials(t *testing.T, s store.Store) {
	ctx := t.Context()
	inv := NewInvite(now(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))
	accountID, err := claimAndProvision(ctx, s, inv.ID, "cred@x.com", now())
	require.NoError(t, err)

	_, err = s.Credentials().GetCredential(ctx, accountID)
	require.ErrorIs(t, err, store.ErrNotFound)

	first := domain.Credential{AccountID: accountID, PasswordHash: "$argon2id$first", UpdatedAt: now()}
	require.NoError(t, s.Credentials().PutCredential(ctx, first))

	replaced := domain.Credential{AccountID: accountID, PasswordHash: "$argon2id$second", UpdatedAt: now().Add(time.Minute)}
	require.NoError(t, s.Credentials().PutCredential(ctx, replaced))

	got, err := s.Credentials().GetCredential(ctx, accountID)
	require.NoError(t, err)
	require.Equal(t, replaced.PasswordHash, got.PasswordHash)
	require.True(t, replaced.UpdatedAt.Equal(got.UpdatedAt))
}
