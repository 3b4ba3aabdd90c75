package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

// Open opens the database in dir and initializes the schema
func Open(dir string) (*DB, error) {
	dbPath := filepath.Join(dir, "layoutfix.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The dashboard and the recorder share one writer.
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invocation_id TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,

		outcome TEXT NOT NULL,
		mode TEXT NOT NULL,

		captured_chars INTEGER NOT NULL,
		converted_chars INTEGER NOT NULL,
		used_select_all BOOLEAN NOT NULL,
		pasted BOOLEAN NOT NULL,
		language_switched BOOLEAN NOT NULL,
		duration_ms INTEGER NOT NULL,

		-- Only filled when history.store_text is on
		captured_text TEXT,
		converted_text TEXT,

		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_timestamp ON conversions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_conversions_outcome ON conversions(outcome);
	`

	_, err := db.conn.Exec(schema)
	return err
}
