package db

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/robonav/server/internal/db/migrations"
)

// gooseUp is swapped in tests.
var gooseUp = func(db *sql.DB, dir string) error {
	return goose.Up(db, dir)
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUp(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
