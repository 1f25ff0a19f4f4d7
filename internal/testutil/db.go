package testutil

import (
	"context"
	"database/sql"
	"testing"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/db"
)

// SetupTestDB creates a temporary in-memory SQLite database with migrations applied.
// Returns the database connection, a registry over it and a cleanup function
// that should be deferred.
func SetupTestDB(t *testing.T) (*sql.DB, *assets.Registry, func()) {
	t.Helper()

	database, err := db.InitDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Verify critical tables exist
	var count int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('attachments', 'activity_events')").Scan(&count)
	if err != nil {
		database.Close()
		t.Fatalf("failed to verify tables: %v", err)
	}
	if count != 2 {
		database.Close()
		t.Fatalf("expected 2 critical tables, found %d", count)
	}

	cleanup := func() {
		database.Close()
	}

	return database, assets.New(database), cleanup
}
