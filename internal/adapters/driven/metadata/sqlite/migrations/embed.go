// Package migrations embeds the SQL schema migrations for the metadata
// store.
package migrations

import "embed"

// FS contains the migration files, named NNN_description.up.sql.
//
//go:embed *.sql
var FS embed.FS
