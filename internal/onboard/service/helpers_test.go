package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

// Cheap parameters keep the tests fast; the encoding is identical.
var testParams = cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1}

type testEnv struct {
	store       *sqlite.Store
	codes       *cryptox.CodeHasher
	passwords   *cryptox.CredentialHasher
	issuance    *service.IssuanceService
	redemption  *service.RedemptionService
	credentials *service.CredentialService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	pepper, err := cryptox.NewPepper("service-test-pepper-0123456789")
	require.NoError(t, err)
	codes, err := cryptox.NewCodeHasher(pepper)
	require.NoError(t, err)
	passwords := cryptox.NewCredentialHasher(testParams)

	return &testEnv{
		store:       s,
		codes:       codes,
		passwords:   passwords,
		issuance:    &service.IssuanceService{Store: s, Codes: codes},
		redemption:  &service.RedemptionService{Store: s, Codes: codes, Passwords: passwords},
		credentials: &service.CredentialService{Store: s, Passwords: passwords},
	}
}

// seedInvite stores an invite for rawCode directly, bypassing issuance.
func (e *testEnv) seedInvite(t *testing.T, rawCode string, createdAt time.Time, expiresAt *time.Time, meta map[string]any) domain.Invite {
	t.Helper()
	inv := domain.Invite{
		ID:        idx.NewAt(createdAt).String(),
		CodeHash:  e.codes.Hash(rawCode),
		Meta:      meta,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
	require.NoError(t, e.store.Invites().CreateInvite(t.Context(), inv))
	return inv
}

func (e *testEnv) invite(t *testing.T, id string) domain.Invite {
	t.Helper()
	inv, err := e.store.Invites().GetInviteByID(t.Context(), id)
	require.NoError(t, err)
	return inv
}

func ptr[T any](v T) *T { return &v }

func fixedNow() time.Time {
	return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}
