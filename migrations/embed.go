// Package migrations embeds the PostgreSQL schema migrations applied by
// cmd/migrate and by integration tests.
package migrations

import "embed"

// FS contains the golang-migrate formatted PostgreSQL migrations.
//
//go:embed *.sql
var FS embed.FS
