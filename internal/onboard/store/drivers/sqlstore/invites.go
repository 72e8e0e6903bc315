package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
)

const inviteColumns = `id, code_hash, meta, expires_at, used_at, used_by, created_at`

type invitesRepo struct {
	c conn
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	meta, err := encodeMeta(inv.Meta)
	if err != nil {
		return err
	}

	var expiresAt any
	if inv.ExpiresAt != nil {
		expiresAt = r.c.d.Time(*inv.ExpiresAt)
	}

	_, err = r.c.exec(ctx,
		`INSERT INTO invites (id, code_hash, meta, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.CodeHash, meta, expiresAt, r.c.d.Time(inv.CreatedAt),
	)
	return r.c.mapUnique(err)
}

func (r *invitesRepo) GetInviteByCodeHash(ctx context.Context, codeHash string) (domain.Invite, error) {
	row := r.c.queryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE code_hash = ?`, codeHash)
	inv, err := scanInvite(row)
	return inv, mapNotFound(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	row := r.c.queryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id)
	inv, err := scanInvite(row)
	return inv, mapNotFound(err)
}

func (r *invitesRepo) ClaimInvite(ctx context.Context, inviteID, accountID string, now time.Time) error {
	res, err := r.c.exec(ctx,
		`UPDATE invites SET used_at = ?, used_by = ? WHERE id = ? AND used_at IS NULL`,
		r.c.d.Time(now), accountID, inviteID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: tell a lost race apart from an unknown id.
	var one int
	err = r.c.queryRow(ctx, `SELECT 1 FROM invites WHERE id = ?`, inviteID).Scan(&one)
	if err != nil {
		return mapNotFound(err)
	}
	return store.ErrAlreadyClaimed
}

func (r *invitesRepo) ListInvites(ctx context.Context, f store.ListInvitesFilter) ([]domain.Invite, error) {
	var (
		where []string
		args  []any
	)
	now := r.c.d.Time(f.Now)

	switch f.Status {
	case "":
	case domain.InviteUnused:
		where = append(where, `used_at IS NULL`, `(expires_at IS NULL OR expires_at > ?)`)
		args = append(args, now)
	case domain.InviteUsed:
		where = append(where, `used_at IS NOT NULL`)
	case domain.InviteExpired:
		where = append(where, `used_at IS NULL`, `expires_at IS NOT NULL`, `expires_at <= ?`)
		args = append(args, now)
	default:
		return nil, fmt.Errorf("sqlstore: unknown invite status %q", f.Status)
	}

	query := `SELECT ` + inviteColumns + ` FROM invites`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, f.EffectiveLimit())

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (domain.Invite, error) {
	var (
		inv       domain.Invite
		meta      jsonMeta
		expiresAt nullTime
		usedAt    nullTime
		usedBy    sql.NullString
		createdAt nullTime
	)

	if err := row.Scan(&inv.ID, &inv.CodeHash, &meta, &expiresAt, &usedAt, &usedBy, &createdAt); err != nil {
		return domain.Invite{}, err
	}

	inv.Meta = meta.Meta
	inv.ExpiresAt = expiresAt.Ptr()
	inv.UsedAt = usedAt.Ptr()
	if usedBy.Valid {
		inv.UsedBy = &usedBy.String
	}
	inv.CreatedAt = createdAt.Time
	return inv, nil
}
