package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/stretchr/testify/require"
)

func TestRedeem_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	now := fixedNow()

	inv := env.seedInvite(t, "ABC-123", now, ptr(now.Add(time.Hour)), map[string]any{"email": "a@x.com"})

	ref, err := env.redemption.Redeem(ctx, service.RedeemRequest{
		Code:     "abc-123",
		Email:    "a@x.com",
		Password: testPassword,
	}, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, ref.ID)
	require.Equal(t, "a@x.com", ref.Email)

	claimed := env.invite(t, inv.ID)
	require.NotNil(t, claimed.UsedAt)
	require.NotNil(t, claimed.UsedBy)
	require.Equal(t, ref.ID, *claimed.UsedBy)
	require.True(t, now.Add(10*time.Minute).Equal(*claimed.UsedAt))

	// The stored credential verifies.
	cred, err := env.store.Credentials().GetCredential(ctx, ref.ID)
	require.NoError(t, err)
	ok, err := env.passwords.Verify(cred.PasswordHash, testPassword)
	require.NoError(t, err)
	require.True(t, ok)

	// Second use of the same code.
	_, err = env.redemption.Redeem(ctx, service.RedeemRequest{
		Code:     "ABC-123",
		Email:    "a@x.com",
		Password: testPassword,
	}, now.Add(11*time.Minute))
	require.ErrorIs(t, err, service.ErrInvalidCode)
}

func TestRedeem_InvalidCodes(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	env.seedInvite(t, "REAL-CODE", now, nil, nil)

	for _, code := range []string{"", "   ", "NOT-A-CODE", "bad code!", "REAL_CODE"} {
		_, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
			Code:     code,
			Email:    "a@x.com",
			Password: testPassword,
		}, now)
		require.ErrorIs(t, err, service.ErrInvalidCode, "code %q", code)
	}
}

func TestRedeem_InvalidRequest(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	inv := env.seedInvite(t, "SHAPE-1", now, nil, nil)

	for name, req := range map[string]service.RedeemRequest{
		"missing email":  {Code: "SHAPE-1", Email: "  ", Password: testPassword},
		"no at sign":     {Code: "SHAPE-1", Email: "a.x.com", Password: testPassword},
		"short password": {Code: "SHAPE-1", Email: "a@x.com", Password: "short"},
		"long password":  {Code: "SHAPE-1", Email: "a@x.com", Password: string(make([]byte, service.MaxPasswordLength+1))},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.redemption.Redeem(t.Context(), req, now)
			require.ErrorIs(t, err, service.ErrInvalidRequest)
		})
	}

	require.Nil(t, env.invite(t, inv.ID).UsedAt)
}

func TestRedeem_ExpiryPrecedence(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()

	expired := env.seedInvite(t, "OLD-1", now.Add(-2*time.Hour), ptr(now.Add(-time.Hour)), map[string]any{"email": "a@x.com"})

	// Expiry wins over an email mismatch too.
	for _, email := range []string{"a@x.com", "b@x.com"} {
		_, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
			Code:     "OLD-1",
			Email:    email,
			Password: testPassword,
		}, now)
		require.ErrorIs(t, err, service.ErrExpired)
		require.NotErrorIs(t, err, service.ErrInvalidCode)
	}
	require.Nil(t, env.invite(t, expired.ID).UsedAt, "an expired invite is never claimed")
}

func TestRedeem_ExpiryBoundary(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	env.seedInvite(t, "EDGE-1", now.Add(-time.Hour), ptr(now), nil)

	_, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code:     "EDGE-1",
		Email:    "a@x.com",
		Password: testPassword,
	}, now)
	require.ErrorIs(t, err, service.ErrExpired, "the expiry instant is expired")
}

func TestRedeem_EmailBinding(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	inv := env.seedInvite(t, "BOUND-1", now, nil, map[string]any{"email": "a@x.com"})

	_, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code:     "BOUND-1",
		Email:    "someone@else.com",
		Password: testPassword,
	}, now)
	require.ErrorIs(t, err, service.ErrEmailMismatch)
	require.Nil(t, env.invite(t, inv.ID).UsedAt, "a mismatch leaves the invite unclaimed")

	ref, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code:     "BOUND-1",
		Email:    "  A@X.COM ",
		Password: testPassword,
	}, now)
	require.NoError(t, err, "email comparison ignores case and surrounding space")
	require.Equal(t, "a@x.com", ref.Email)
}

func TestRedeem_ConcurrentRedemptions(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	inv := env.seedInvite(t, "RACE-1", now, nil, nil)

	const workers = 50
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, workers)
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = env.redemption.Redeem(context.Background(), service.RedeemRequest{
				Code:     "race-1",
				Email:    fmt.Sprintf("user%d@x.com", i),
				Password: testPassword,
			}, now)
		}()
	}
	close(start)
	wg.Wait()

	var succeeded, invalid int
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, service.ErrInvalidCode):
			invalid++
		default:
			t.Fatalf("worker %d: unexpected error %v", i, err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, workers-1, invalid)
	require.NotNil(t, env.invite(t, inv.ID).UsedBy)
}

// staleStore serves invite lookups as they were before any claim, so a
// redemption reaches the claim even though another caller already won it.
type staleStore struct {
	store.Store
}

func (s staleStore) Invites() store.Invites { return staleInvites{s.Store.Invites()} }

type staleInvites struct {
	store.Invites
}

func (s staleInvites) GetInviteByCodeHash(ctx context.Context, codeHash string) (domain.Invite, error) {
	inv, err := s.Invites.GetInviteByCodeHash(ctx, codeHash)
	inv.UsedAt, inv.UsedBy = nil, nil
	return inv, err
}

func TestRedeem_LostClaimIsInvalidCode(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	inv := env.seedInvite(t, "STALE-1", now, nil, nil)

	winner, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code: "STALE-1", Email: "first@x.com", Password: testPassword,
	}, now)
	require.NoError(t, err)

	late := &service.RedemptionService{
		Store:     staleStore{Store: env.store},
		Codes:     env.codes,
		Passwords: env.passwords,
	}
	_, err = late.Redeem(t.Context(), service.RedeemRequest{
		Code: "STALE-1", Email: "second@x.com", Password: testPassword,
	}, now.Add(time.Second))
	require.ErrorIs(t, err, service.ErrInvalidCode)

	got := env.invite(t, inv.ID)
	require.NotNil(t, got.UsedBy)
	require.Equal(t, winner.ID, *got.UsedBy)
	require.True(t, got.UsedAt.Equal(now))

	_, err = env.store.Accounts().GetAccountByEmail(t.Context(), "second@x.com")
	require.ErrorIs(t, err, store.ErrNotFound, "the losing claim provisions nothing")
}

type failingProvisioner struct {
	err error
}

func (p failingProvisioner) Provision(context.Context, store.Tx, service.ProvisionRequest) (domain.AccountRef, error) {
	return domain.AccountRef{}, p.err
}

func TestRedeem_ProvisioningFailureRollsBackClaim(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	inv := env.seedInvite(t, "ROLLBACK-1", now, nil, nil)

	boom := errors.New("downstream provisioning failed")
	failing := &service.RedemptionService{
		Store:       env.store,
		Codes:       env.codes,
		Passwords:   env.passwords,
		Provisioner: failingProvisioner{err: boom},
	}

	_, err := failing.Redeem(t.Context(), service.RedeemRequest{
		Code:     "ROLLBACK-1",
		Email:    "a@x.com",
		Password: testPassword,
	}, now)
	require.ErrorIs(t, err, boom)

	got := env.invite(t, inv.ID)
	require.Nil(t, got.UsedAt)
	require.Nil(t, got.UsedBy)

	_, err = env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code:     "ROLLBACK-1",
		Email:    "a@x.com",
		Password: testPassword,
	}, now)
	require.NoError(t, err, "the invite is still redeemable")
}

func TestRedeem_AccountExists(t *testing.T) {
	env := newTestEnv(t)
	now := fixedNow()
	env.seedInvite(t, "FIRST-1", now, nil, nil)
	second := env.seedInvite(t, "SECOND-1", now, nil, nil)

	_, err := env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code: "FIRST-1", Email: "dup@x.com", Password: testPassword,
	}, now)
	require.NoError(t, err)

	_, err = env.redemption.Redeem(t.Context(), service.RedeemRequest{
		Code: "SECOND-1", Email: "DUP@x.com", Password: testPassword,
	}, now)
	require.ErrorIs(t, err, service.ErrAccountExists)
	require.Nil(t, env.invite(t, second.ID).UsedAt, "the claim is rolled back with the account insert")
}
