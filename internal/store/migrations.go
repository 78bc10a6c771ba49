package store

import (
	"database/sql"
	"fmt"

	"shellsense/internal/logging"
)

// migration adds a column that older journals lack.
type migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after the first release.
var pendingMigrations = []migration{
	{"advice", "provider", "TEXT NOT NULL DEFAULT ''"},
	{"advice", "model", "TEXT NOT NULL DEFAULT ''"},
}

// runMigrations adds missing columns to existing tables.
func runMigrations(db *sql.DB) error {
	log := logging.Get(logging.CategoryStore)
	applied := 0
	for _, m := range pendingMigrations {
		ok, err := columnExists(db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		applied++
	}
	if applied > 0 {
		log.Infow("journal migrated", "columns_added", applied)
	}
	return nil
}

// columnExists checks a column using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
