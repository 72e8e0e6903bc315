package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container tests in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "gatekeeper",
			"POSTGRES_PASSWORD": "gatekeeper",
			"POSTGRES_DB":       "gatekeeper",
		},
		// The server restarts once after initdb, so wait for the second line.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://gatekeeper:gatekeeper@%s:%s/gatekeeper?sslmode=disable", host, port.Port())
}

// resetSchema drops everything so each subtest starts from an empty
// database in the shared container.
func resetSchema(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.SQL().ExecContext(t.Context(), `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
}

func TestStoreBehaviour(t *testing.T) {
	dsn := startPostgres(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := NewStore(t.Context(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		resetSchema(t, s)
		return s
	})
}

func TestUsedPairCheckConstraint(t *testing.T) {
	dsn := startPostgres(t)
	ctx := t.Context()

	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	resetSchema(t, s)

	inv := storetest.NewInvite(time.Now().UTC(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	_, err = s.SQL().ExecContext(ctx, `UPDATE invites SET used_by = $1 WHERE id = $2`, "someone", inv.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invites_used_pair")
}

func TestClaimIsFinal(t *testing.T) {
	dsn := startPostgres(t)
	ctx := t.Context()

	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	resetSchema(t, s)

	inv := storetest.NewInvite(time.Now().UTC(), nil)
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))
	accountID := storetest.ClaimForNewAccount(t, s, inv.ID, "a@x.com")

	_, err = s.SQL().ExecContext(ctx, `UPDATE invites SET used_at = NULL, used_by = NULL WHERE id = $1`, inv.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invite claim is final")

	got, err := s.Invites().GetInviteByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UsedBy)
	require.Equal(t, accountID, *got.UsedBy)
}
