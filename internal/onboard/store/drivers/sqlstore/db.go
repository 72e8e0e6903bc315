package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a querier to its dialect and rebinds every query.
type conn struct {
	q querier
	d Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.Rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.Rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.Rebind(query), args...)
}

// DB implements every store.Store method except ApplyMigrations, which
// drivers add themselves.
type DB struct {
	db *sql.DB
	c  conn
}

func New(db *sql.DB, d Dialect) *DB {
	return &DB{db: db, c: conn{q: db, d: d}}
}

// SQL exposes the pool for drivers and tests.
func (s *DB) SQL() *sql.DB { return s.db }

func (s *DB) Dialect() Dialect { return s.c.d }

func (s *DB) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *DB) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Ensure rollback is called if we panic or return early with error
	defer func() {
		_ = sqlTx.Rollback() // safe to call even after commit
	}()

	if err := fn(&txStore{c: conn{q: sqlTx, d: s.c.d}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func (s *DB) Invites() store.Invites         { return &invitesRepo{c: s.c} }
func (s *DB) Accounts() store.Accounts       { return &accountsRepo{c: s.c} }
func (s *DB) Credentials() store.Credentials { return &credentialsRepo{c: s.c} }

type txStore struct {
	c conn
}

func (t *txStore) Invites() store.Invites         { return &invitesRepo{c: t.c} }
func (t *txStore) Accounts() store.Accounts       { return &accountsRepo{c: t.c} }
func (t *txStore) Credentials() store.Credentials { return &credentialsRepo{c: t.c} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (c conn) mapUnique(err error) error {
	if err != nil && c.d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}
