// Package sql embeds the SQLite schema migrations.
package sql

import "embed"

// MigrationsFS holds schema/NNN_name.sql files applied in numeric order.
//
//go:embed schema/*.sql
var MigrationsFS embed.FS
