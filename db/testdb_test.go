package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
)

// SetupTestDB connects to TEST_PG_DSN and drops any previous schema.
// The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres test")
	}
	db, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	for _, stmt := range []string{"DROP TABLE IF EXISTS change_events", "DROP TABLE IF EXISTS schema_migrations"} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("clean database: %v", err)
		}
	}
	t.Cleanup(func() { db.Close() })
	return db
}
