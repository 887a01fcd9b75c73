// Package migrations embeds the SQL schema migrations into the binary.
//
// Pass FS to database.DB.Migrate:
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil { ... }
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS holds every *.sql migration at its root.
var FS = files
