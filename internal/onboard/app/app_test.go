package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	setRequired(t)
	t.Setenv("GATEKEEPER_DATABASE_FILE", filepath.Join(t.TempDir(), "gatekeeper.db"))
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.db.Close() })
	return application
}

func TestNew_ServesHealth(t *testing.T) {
	application := newTestApplication(t)

	for _, path := range []string{"/livez", "/readyz"} {
		rec := httptest.NewRecorder()
		application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/invites", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_WiresCredentials(t *testing.T) {
	application := newTestApplication(t)
	ctx := t.Context()
	now := time.Now().UTC()

	issued, err := application.issuanceService.Issue(ctx, service.IssueRequest{}, now)
	require.NoError(t, err)

	account, err := application.redemptionService.Redeem(ctx, service.RedeemRequest{
		Code:     issued.Code,
		Email:    "new@x.com",
		Password: "first password value",
	}, now)
	require.NoError(t, err)

	credentials := application.Credentials()
	require.NotNil(t, credentials)

	ref, err := credentials.Authenticate(ctx, "new@x.com", "first password value", now)
	require.NoError(t, err)
	require.Equal(t, account.ID, ref.ID)

	require.NoError(t, credentials.SetPassword(ctx, account.ID, "second password value", now))
	_, err = credentials.Authenticate(ctx, "new@x.com", "first password value", now)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}
