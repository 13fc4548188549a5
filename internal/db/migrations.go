package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
//
// The companies table mirrors the hosted warehouse table so the tool can run
// against a local seed. Column names keep the warehouse spelling.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		REGION             TEXT,
		DEPARTEMENT        TEXT,
		SIZE               TEXT,
		SECTEUR_D_ACTIVITE TEXT,
		INDUSTRIE          TEXT,
		NOM                TEXT NOT NULL,
		CREATION           INTEGER,
		VILLE              TEXT,
		SITE_INTERNET      TEXT,
		LINKEDIN_URL       TEXT,
		COMMENTAIRES       TEXT,
		LON                REAL,
		LAT                REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_cascade
		ON companies (REGION, DEPARTEMENT, SIZE, SECTEUR_D_ACTIVITE)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_nom ON companies (NOM)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Seeds created before the industry and comment columns existed get them
	// added in place.
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"companies", "INDUSTRIE", "TEXT"},
		{"companies", "COMMENTAIRES", "TEXT"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return nil // column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
