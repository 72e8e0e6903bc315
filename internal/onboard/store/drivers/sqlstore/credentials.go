package sqlstore

import (
	"context"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
)

type credentialsRepo struct {
	c conn
}

func (r *credentialsRepo) PutCredential(ctx context.Context, cred domain.Credential) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO credentials (account_id, password_hash, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE
		SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		cred.AccountID, cred.PasswordHash, r.c.d.Time(cred.UpdatedAt),
	)
	return err
}

func (r *credentialsRepo) GetCredential(ctx context.Context, accountID string) (domain.Credential, error) {
	var (
		cred      domain.Credential
		updatedAt nullTime
	)
	err := r.c.queryRow(ctx,
		`SELECT account_id, password_hash, updated_at FROM credentials WHERE account_id = ?`,
		accountID,
	).Scan(&cred.AccountID, &cred.PasswordHash, &updatedAt)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	cred.UpdatedAt = updatedAt.Time
	return cred, nil
}
