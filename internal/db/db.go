package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	wosql "webpoptimizer/sql"
)

// InitDB opens a SQLite database at path and applies embedded migrations.
func InitDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := ApplyMigrations(ctx, db, wosql.MigrationsFS, "schema"); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
