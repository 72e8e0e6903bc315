package onboardsdk_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	onboardhttp "github.com/aussiebroadwan/gatekeeper/internal/onboard/http"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/onboardsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "gatekeeper-sdk-test"

var testSecret = []byte("sdk-secret-sdk-secret-sdk-secret")

func newTestClient(t *testing.T) (*onboardsdk.SDKClient, *jwtx.HS256Signer) {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pepper, err := cryptox.NewPepper("sdk-test-pepper-0123456789")
	require.NoError(t, err)
	codes, err := cryptox.NewCodeHasher(pepper)
	require.NoError(t, err)

	verifier, err := jwtx.NewHS256Verifier(testSecret, testIssuer)
	require.NoError(t, err)
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)

	router := onboardhttp.NewRouter(verifier, "sdk-test", st, slogx.Discard())
	router.IssuanceService = &service.IssuanceService{Store: st, Codes: codes}
	router.RedemptionService = &service.RedemptionService{
		Store:     st,
		Codes:     codes,
		Passwords: cryptox.NewCredentialHasher(cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1}),
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client := onboardsdk.NewSDKClient(srv.URL + "/")
	client.HTTPClient = srv.Client()
	return client, signer
}

func issuerToken(t *testing.T, signer *jwtx.HS256Signer, scopes ...string) string {
	t.Helper()
	tok, err := signer.Sign(jwtx.NewIssuerClaims("sdk-bot", testIssuer, scopes, time.Hour, time.Now()))
	require.NoError(t, err)
	return tok
}

func TestSDK_IssueListRedeem(t *testing.T) {
	client, signer := newTestClient(t)
	ctx := t.Context()
	session := client.WithToken(issuerToken(t, signer, jwtx.ScopeInvitesWrite, jwtx.ScopeInvitesRead))

	issued, err := session.IssueInvite(ctx, onboardsdk.IssueInviteRequest{
		Meta: map[string]any{"email": "sdk@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Code)
	require.NotEmpty(t, issued.ID)

	invites, err := session.ListInvites(ctx, onboardsdk.ListInvitesOptions{Status: "unused", Limit: 10})
	require.NoError(t, err)
	require.Len(t, invites, 1)
	require.Equal(t, issued.ID, invites[0].ID)
	require.Equal(t, "sdk@example.com", invites[0].Meta["email"])

	account, err := client.RedeemInvite(ctx, onboardsdk.RedeemInviteRequest{
		Code:     issued.Code,
		Email:    "SDK@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.Equal(t, "sdk@example.com", account.Email)

	_, err = client.RedeemInvite(ctx, onboardsdk.RedeemInviteRequest{
		Code:     issued.Code,
		Email:    "sdk@example.com",
		Password: "correct horse battery",
	})
	require.ErrorIs(t, err, onboardsdk.ErrInvalidCode)

	var apiErr *onboardsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	invites, err = session.ListInvites(ctx, onboardsdk.ListInvitesOptions{Status: "used"})
	require.NoError(t, err)
	require.Len(t, invites, 1)
	require.Equal(t, account.AccountID, *invites[0].UsedBy)
}

func TestSDK_Errors(t *testing.T) {
	client, signer := newTestClient(t)
	ctx := t.Context()

	_, err := client.WithToken("").IssueInvite(ctx, onboardsdk.IssueInviteRequest{})
	require.ErrorIs(t, err, onboardsdk.ErrInvalidToken)

	readOnly := client.WithToken(issuerToken(t, signer, jwtx.ScopeInvitesRead))
	_, err = readOnly.IssueInvite(ctx, onboardsdk.IssueInviteRequest{})
	require.ErrorIs(t, err, onboardsdk.ErrForbidden)

	writer := client.WithToken(issuerToken(t, signer, jwtx.ScopeInvitesWrite))
	_, err = writer.IssueInvite(ctx, onboardsdk.IssueInviteRequest{Code: "TAKEN-1"})
	require.NoError(t, err)
	_, err = writer.IssueInvite(ctx, onboardsdk.IssueInviteRequest{Code: "TAKEN-1"})
	require.ErrorIs(t, err, onboardsdk.ErrDuplicateCode)
	require.NotErrorIs(t, err, onboardsdk.ErrInvalidCode)
}

func TestSDK_Health(t *testing.T) {
	client, _ := newTestClient(t)

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "sdk-test", live.Version)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
}

func TestAPIError_FallbackForNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := onboardsdk.NewSDKClient(srv.URL)
	_, err := client.GetLiveness(t.Context())

	var apiErr *onboardsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, onboardsdk.ErrorCodeServerError, apiErr.Code)
}
