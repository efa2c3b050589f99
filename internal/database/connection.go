package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens a database connection for driver and creates the schema.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		// Create data directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_records (
			user_id BIGINT PRIMARY KEY,
			has_completed_test BOOLEAN NOT NULL DEFAULT FALSE,
			document TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_records table: %w", err)
	}

	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS test_history (
			` + idColumn + `,
			user_id BIGINT NOT NULL,
			test_id TEXT NOT NULL,
			percentage REAL NOT NULL,
			document TEXT NOT NULL,
			completed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create test_history table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_test_history_user ON test_history(user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create test_history index: %w", err)
	}
	return nil
}
