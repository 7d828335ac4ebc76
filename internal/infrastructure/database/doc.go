// Package database provides SQLite connectivity for a project's embedded store.
//
// This package manages:
//   - Database connection with WAL mode and synchronous=NORMAL
//   - Foreign key enforcement on every pooled connection
//   - A bounded connection pool (default 5)
//   - WAL checkpointing before the database file is archived
//   - Schema migrations loaded from an embedded filesystem
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        filepath.Join(workDir, "project.db"),
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Migrations are additive-only so archives written by older builds keep
// opening:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Each migration file has both .up.sql and .down.sql
//   - Files are named YYYYMMDD_HHMMSS_description.{up,down}.sql
package database
