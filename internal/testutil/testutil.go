package testutil

import (
	"database/sql"
	"testing"

	"github.com/argussec/argus/internal/repository/postgres"
	"github.com/argussec/argus/migrations"
	_ "modernc.org/sqlite"
)

// NewTestDB creates an in-memory SQLite database with the full schema applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A second connection would see an empty in-memory database
	db.SetMaxOpenConns(1)

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
