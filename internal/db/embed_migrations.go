package db

import "embed"

// MigrationFS embeds the schema for users, tenants, refresh tokens and audit logs.
// Applied by internal/db/migrate (cmd/migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
