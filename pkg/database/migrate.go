// pkg/database/migrate.go
package database

import (
	"database/sql"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies every pending up migration from sourceURL (e.g. file://migrations).
// It uses its own connection because closing the migrator closes the database handle.
// The returned bool is false when the schema was already current.
func Migrate(connectionString, sourceURL string) (applied bool, err error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return false, fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return false, fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return false, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		driver.Close()
		return false, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(sourceErr, dbErr)
		}
	}()

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return true, nil
}
