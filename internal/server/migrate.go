package server

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies schema migrations to the Postgres store. src is a
// migrate source URL such as file://migrations. The DSN comes from
// configuration; callers must resolve it before calling. A database
// already at the target version is not an error.
func Migrate(src, dsn, direction string, steps int) error {
	if dsn == "" {
		return errors.New("migrate: no postgres DSN configured")
	}
	if src == "" {
		src = "file://migrations"
	}

	var apply func(*migrate.Migrate) error
	switch direction {
	case "up":
		apply = (*migrate.Migrate).Up
		if steps > 0 {
			apply = func(m *migrate.Migrate) error { return m.Steps(steps) }
		}
	case "down":
		apply = (*migrate.Migrate).Down
		if steps > 0 {
			apply = func(m *migrate.Migrate) error { return m.Steps(-steps) }
		}
	default:
		return fmt.Errorf("migrate: unknown direction %q", direction)
	}

	m, err := migrate.New(src, dsn)
	if err != nil {
		return fmt.Errorf("migrate: open %s: %w", src, err)
	}
	defer m.Close()

	if err := apply(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %s: %w", direction, err)
	}
	return nil
}
