package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
)

// ProvisionRequest describes the account to create for a claimed invite.
type ProvisionRequest struct {
	AccountID    string
	Email        string // normalized
	InviteID     string
	PasswordHash string // argon2id PHC encoded
	Now          time.Time
}

// Provisioner creates the account behind a redemption. It runs inside the
// claim's transaction and must only use tx; returning an error rolls the
// claim back.
type Provisioner interface {
	Provision(ctx context.Context, tx store.Tx, req ProvisionRequest) (domain.AccountRef, error)
}

// AccountProvisioner stores the account row and its credential.
type AccountProvisioner struct{}

func (AccountProvisioner) Provision(ctx context.Context, tx store.Tx, req ProvisionRequest) (domain.AccountRef, error) {
	account := domain.Account{
		ID:        req.AccountID,
		Email:     req.Email,
		InviteID:  req.InviteID,
		CreatedAt: req.Now,
	}

	if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.AccountRef{}, ErrAccountExists
		}
		return domain.AccountRef{}, fmt.Errorf("create account: %w", err)
	}

	err := tx.Credentials().PutCredential(ctx, domain.Credential{
		AccountID:    req.AccountID,
		PasswordHash: req.PasswordHash,
		UpdatedAt:    req.Now,
	})
	if err != nil {
		return domain.AccountRef{}, fmt.Errorf("store credential: %w", err)
	}

	return account.Ref(), nil
}
