package postgres

import (
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store/drivers/postgres/migrations"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending embedded migrations. The migrate
// driver pins a connection for its lifetime, so it gets its own pool which
// is closed when done. golang-migrate takes an advisory lock, so replicas
// starting together apply each migration once.
func (s *Store) ApplyMigrations() (err error) {
	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return err
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		_ = db.Close()
		return err
	}

	migrationsFilesystem, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		_ = driver.Close()
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", migrationsFilesystem, "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer func() {
		// Closes the source, the driver and its pool.
		srcErr, dbErr := instance.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
