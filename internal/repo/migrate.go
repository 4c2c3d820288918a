package repo

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations to databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("repo: open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("repo: init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("repo: migrate up: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres URL to the scheme of the pgx/v5 driver.
func migrateURL(databaseURL string) string {
	trimmed := strings.TrimSpace(databaseURL)
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(trimmed, scheme) {
			return "pgx5://" + strings.TrimPrefix(trimmed, scheme)
		}
	}
	return trimmed
}
