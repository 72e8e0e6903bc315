package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Errors returned to callers. None of them carry digests, row ids or any
// hint of whether a code exists beyond what each name says.
var (
	// ErrInvalidCode covers unknown, malformed and already used codes alike.
	ErrInvalidCode = errors.New("invalid invite code")

	// ErrExpired means the code existed but its expiry has passed.
	ErrExpired = errors.New("invite code has expired")

	// ErrEmailMismatch means the invite is bound to a different email.
	ErrEmailMismatch = errors.New("invite is bound to a different email")

	// ErrDuplicateCode is returned to issuers when the code is already taken.
	ErrDuplicateCode = errors.New("invite code already issued")

	ErrInvalidRequest     = errors.New("invalid request")
	ErrAccountExists      = errors.New("an account with this email already exists")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrCredentialReset means the stored credential cannot be verified and
	// the account must go through a password reset.
	ErrCredentialReset = errors.New("credential must be reset")
)

// redeemOutcome is an internal reason a redemption did not succeed.
type redeemOutcome string

const (
	outcomeInvalidEmail    redeemOutcome = "invalid_email"
	outcomeInvalidPassword redeemOutcome = "invalid_password"
	outcomeMalformedCode   redeemOutcome = "malformed_code"
	outcomeUnknownCode     redeemOutcome = "unknown_code"
	outcomeAlreadyUsed     redeemOutcome = "already_used"
	outcomeLostRace        redeemOutcome = "lost_claim_race"
	outcomeExpired         redeemOutcome = "expired"
	outcomeEmailMismatch   redeemOutcome = "email_mismatch"
	outcomeAccountExists   redeemOutcome = "account_exists"
)

// redeemOutcomes is the single place internal redemption outcomes collapse
// into caller visible errors. Anything that would tell an applicant whether
// a digest exists maps to ErrInvalidCode.
var redeemOutcomes = map[redeemOutcome]error{
	outcomeInvalidEmail:    ErrInvalidRequest,
	outcomeInvalidPassword: ErrInvalidRequest,
	outcomeMalformedCode:   ErrInvalidCode,
	outcomeUnknownCode:     ErrInvalidCode,
	outcomeAlreadyUsed:     ErrInvalidCode,
	outcomeLostRace:        ErrInvalidCode,
	outcomeExpired:         ErrExpired,
	outcomeEmailMismatch:   ErrEmailMismatch,
	outcomeAccountExists:   ErrAccountExists,
}

// reject logs the internal outcome and returns its public error.
func reject(ctx context.Context, outcome redeemOutcome, attrs ...any) error {
	err, ok := redeemOutcomes[outcome]
	if !ok {
		err = ErrInvalidCode
	}

	args := append([]any{slog.String("reason", string(outcome))}, attrs...)
	slogx.FromContext(ctx).Warn("invite redemption rejected", args...)
	return err
}
