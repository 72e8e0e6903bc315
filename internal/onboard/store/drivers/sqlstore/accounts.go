package sqlstore

import (
	"context"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
)

const accountColumns = `id, email, invite_id, created_at`

type accountsRepo struct {
	c conn
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.c.exec(ctx,
		`INSERT INTO accounts (id, email, invite_id, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, domain.NormalizeEmail(a.Email), a.InviteID, r.c.d.Time(a.CreatedAt),
	)
	return r.c.mapUnique(err)
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, domain.NormalizeEmail(email))
}

func (r *accountsRepo) get(ctx context.Context, query string, arg any) (domain.Account, error) {
	var (
		a         domain.Account
		createdAt nullTime
	)
	err := r.c.queryRow(ctx, query, arg).Scan(&a.ID, &a.Email, &a.InviteID, &createdAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.CreatedAt = createdAt.Time
	return a, nil
}
