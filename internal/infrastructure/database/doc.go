// Package database provides SQLite database connectivity for Gatekeeper Core.
//
// This package manages:
//   - Database connection with WAL mode and foreign keys enforced
//   - Schema migrations loaded from an fs.FS (see the migrations package)
//   - Timestamp encoding that sorts lexically in SQL
//   - Connection lifecycle and transaction helpers
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Device passwords are stored as argon2id hashes, never plaintext
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only to support safe rollbacks:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Each migration file has both .up.sql and .down.sql
package database
