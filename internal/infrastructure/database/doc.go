// Package database provides SQLite connectivity for dictd.
//
// Parameter values are never persisted; the database holds operational
// records such as the audit trail.
//
// This package manages:
//   - Connection setup with WAL mode and busy timeout
//   - Versioned schema migrations read from any fs.FS
//   - In-memory databases for tests (Path ":memory:")
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
