package onboardsdk

import "time"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a stable machine readable code (e.g. "invalid_code")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Invite Types
// ============================================================================

// IssueInviteRequest asks the service for a new invite.
type IssueInviteRequest struct {
	// Code is an issuer chosen code. Leave empty to have one generated.
	Code string `json:"code,omitempty" validate:"omitempty,max=128"`

	// Meta is stored with the invite. An "email" entry binds the invite to
	// that address.
	Meta map[string]any `json:"meta,omitempty"`

	// ExpiresAt defaults to the service's default lifetime when omitted.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IssueInviteResponse carries the raw code. It is never returned again.
type IssueInviteResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Invite is an issuer's view of a stored invite. It never includes the code
// or its digest.
type Invite struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"` // unused, used or expired
	Meta      map[string]any `json:"meta,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	UsedAt    *time.Time     `json:"used_at,omitempty"`
	UsedBy    *string        `json:"used_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type ListInvitesResponse struct {
	Invites []Invite `json:"invites"`
}

// RedeemInviteRequest exchanges a code for an account. Code is checked by
// the server after trimming, so it carries no validation tags.
type RedeemInviteRequest struct {
	Code     string `json:"code"`
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=256"`
}

type RedeemInviteResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded"
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}
