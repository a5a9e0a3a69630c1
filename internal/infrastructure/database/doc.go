// Package database owns the SQLite file that holds the device table.
//
// Open applies WAL mode, the busy timeout and foreign keys through the
// DSN. Migrate applies the embedded NNN_name.up.sql files in order and
// records each in schema_migrations:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx, migrations.FS)
package database
