package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

type CredentialService struct {
	Store     store.Store
	Passwords *cryptox.CredentialHasher

	dummyOnce sync.Once
	dummyHash string
}

// SetPassword replaces an account's credential wholesale.
func (s *CredentialService) SetPassword(ctx context.Context, accountID, password string, now time.Time) error {
	log := slogx.FromContext(ctx)

	if !validPassword(password) {
		return ErrInvalidRequest
	}

	if _, err := s.Store.Accounts().GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownAccount
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.Credentials().PutCredential(ctx, domain.Credential{
		AccountID:    accountID,
		PasswordHash: hash,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	log.Info("password set", slog.String("account_id", accountID))
	return nil
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords are indistinguishable. A stored hash that cannot be parsed
// yields ErrCredentialReset. Hashes made under older parameters are
// upgraded after a successful check.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string, now time.Time) (domain.AccountRef, error) {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.burnVerify(password)
			return domain.AccountRef{}, ErrInvalidCredentials
		}
		return domain.AccountRef{}, fmt.Errorf("lookup account: %w", err)
	}

	ctx = slogx.With(ctx, slog.String("account_id", account.ID))
	log = slogx.FromContext(ctx)

	cred, err := s.Store.Credentials().GetCredential(ctx, account.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("account has no credential")
			return domain.AccountRef{}, ErrCredentialReset
		}
		return domain.AccountRef{}, fmt.Errorf("load credential: %w", err)
	}

	ok, err := s.Passwords.Verify(cred.PasswordHash, password)
	if err != nil {
		var formatErr *cryptox.FormatError
		if errors.As(err, &formatErr) {
			log.Warn("stored password hash is malformed, reset required", slog.String("reason", formatErr.Reason))
			return domain.AccountRef{}, ErrCredentialReset
		}
		return domain.AccountRef{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.AccountRef{}, ErrInvalidCredentials
	}

	if s.Passwords.NeedsRehash(cred.PasswordHash) {
		s.rehash(ctx, account.ID, password, now)
	}

	return account.Ref(), nil
}

// rehash upgrades a credential to the current parameters. Failures are
// logged and otherwise ignored; the old hash still verifies.
func (s *CredentialService) rehash(ctx context.Context, accountID, password string, now time.Time) {
	log := slogx.FromContext(ctx)

	hash, err := s.Passwords.Hash(password)
	if err == nil {
		err = s.Store.Credentials().PutCredential(ctx, domain.Credential{
			AccountID:    accountID,
			PasswordHash: hash,
			UpdatedAt:    now,
		})
	}
	if err != nil {
		log.Warn("failed to upgrade password hash", slog.Any("error", err))
		return
	}
	log.Info("password hash upgraded")
}

// burnVerify spends the same work as a real verification so unknown emails
// cannot be told apart by timing.
func (s *CredentialService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Passwords.Hash("gatekeeper-dummy-password")
	})
	_, _ = s.Passwords.Verify(s.dummyHash, password)
}
