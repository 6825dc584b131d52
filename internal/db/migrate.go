// internal/db/migrate.go
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// RunMigrations brings the schema up to the newest migration under
// migrationsPath. A dirty version from a crashed run is forced clean first.
func RunMigrations(databaseURL, migrationsPath string) error {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer conn.Close()

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("loading migrations from %s: %w", migrationsPath, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}
	if dirty {
		log.Printf("[Migrate] ⚠️ dirty schema at version %d, forcing clean", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("forcing version %d: %w", version, err)
		}
	}

	switch err := m.Up(); {
	case err == nil:
		current, _, _ := m.Version()
		log.Printf("[Migrate] ✅ Schema at version %d", current)
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("[Migrate] Schema already up to date")
	default:
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
