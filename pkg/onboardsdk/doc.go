// Package onboardsdk is a Go client for the gatekeeper onboarding API.
//
// Applicants redeem invites without credentials:
//
//	client := onboardsdk.NewSDKClient("https://gatekeeper.example.com")
//	account, err := client.RedeemInvite(ctx, onboardsdk.RedeemInviteRequest{
//		Code:     "7KQ3-M0ZD-9XWA-F2HC",
//		Email:    "new.user@example.com",
//		Password: "correct horse battery",
//	})
//	if errors.Is(err, onboardsdk.ErrExpiredCode) {
//		// ask for a new invite
//	}
//
// Issuers hold a bearer token carrying the invites:write or invites:read
// scope and work through a Session:
//
//	session := client.WithToken(issuerToken)
//	invite, err := session.IssueInvite(ctx, onboardsdk.IssueInviteRequest{
//		Meta: map[string]any{"email": "new.user@example.com"},
//	})
//
// Every non-2xx response is returned as an *APIError, which matches the
// exported sentinels with errors.Is.
package onboardsdk
