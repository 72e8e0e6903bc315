package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Password length bounds, in bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 256
)

type RedeemRequest struct {
	Code     string
	Email    string
	Password string
}

type RedemptionService struct {
	Store       store.Store
	Codes       *cryptox.CodeHasher
	Passwords   *cryptox.CredentialHasher
	Provisioner Provisioner
}

// Redeem exchanges an invite code for a new account. The checks run in a
// fixed order:
//  1. The code is normalized and its digest looked up. Malformed and
//     unknown codes both fail with ErrInvalidCode.
//  2. An already used invite fails with ErrInvalidCode.
//  3. An invite whose expiry is at or before now fails with ErrExpired.
//  4. An invite bound to another email fails with ErrEmailMismatch.
//  5. The invite is claimed and the account provisioned in one
//     transaction. Losing the claim to a concurrent caller fails with
//     ErrInvalidCode; any provisioning failure undoes the claim.
func (s *RedemptionService) Redeem(ctx context.Context, req RedeemRequest, now time.Time) (domain.AccountRef, error) {
	log := slogx.FromContext(ctx)

	// 0. Request shape.
	email := domain.NormalizeEmail(req.Email)
	if !validEmail(email) {
		return domain.AccountRef{}, reject(ctx, outcomeInvalidEmail)
	}
	if !validPassword(req.Password) {
		return domain.AccountRef{}, reject(ctx, outcomeInvalidPassword)
	}

	// 1. Look the invite up by digest.
	code, err := cryptox.NormalizeCode(req.Code)
	if err != nil {
		return domain.AccountRef{}, reject(ctx, outcomeMalformedCode)
	}

	invite, err := s.Store.Invites().GetInviteByCodeHash(ctx, s.Codes.Hash(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccountRef{}, reject(ctx, outcomeUnknownCode)
		}
		log.Error("failed to fetch invite", slog.Any("error", err))
		return domain.AccountRef{}, fmt.Errorf("lookup invite: %w", err)
	}

	ctx = slogx.With(ctx, slog.String("invite_id", invite.ID))
	log = slogx.FromContext(ctx)

	// 2. Used.
	if invite.IsUsed() {
		return domain.AccountRef{}, reject(ctx, outcomeAlreadyUsed)
	}

	// 3. Expired.
	if invite.IsExpired(now) {
		return domain.AccountRef{}, reject(ctx, outcomeExpired, slog.Time("expires_at", *invite.ExpiresAt))
	}

	// 4. Bound email.
	if bound, ok := invite.BoundEmail(); ok && !strings.EqualFold(bound, email) {
		return domain.AccountRef{}, reject(ctx, outcomeEmailMismatch)
	}

	// 5. Hash outside the transaction, then claim and provision together.
	passwordHash, err := s.Passwords.Hash(req.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.AccountRef{}, fmt.Errorf("hash password: %w", err)
	}

	accountID := idx.New().String()
	var ref domain.AccountRef

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().ClaimInvite(ctx, invite.ID, accountID, now); err != nil {
			return err
		}

		var err error
		ref, err = s.provisioner().Provision(ctx, tx, ProvisionRequest{
			AccountID:    accountID,
			Email:        email,
			InviteID:     invite.ID,
			PasswordHash: passwordHash,
			Now:          now,
		})
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyClaimed), errors.Is(err, store.ErrNotFound):
		return domain.AccountRef{}, reject(ctx, outcomeLostRace)
	case errors.Is(err, ErrAccountExists):
		return domain.AccountRef{}, reject(ctx, outcomeAccountExists)
	default:
		log.Error("failed to redeem invite", slog.Any("error", err))
		return domain.AccountRef{}, fmt.Errorf("redeem invite: %w", err)
	}

	log.Info("invite redeemed", slog.String("account_id", ref.ID))
	return ref, nil
}

func (s *RedemptionService) provisioner() Provisioner {
	if s.Provisioner == nil {
		return AccountProvisioner{}
	}
	return s.Provisioner
}

func validEmail(email string) bool {
	local, domainPart, ok := strings.Cut(email, "@")
	return ok && local != "" && domainPart != "" && !strings.ContainsAny(email, " \t\r\n")
}

func validPassword(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}
