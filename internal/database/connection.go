package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. PostgreSQL is used when
// DATABASE_URL is set, otherwise a local SQLite file.
func Connect() error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return Open("postgres", url)
	}

	// Create data directory if it doesn't exist
	dataDir := "data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}

	return Open("sqlite3", filepath.Join(dataDir, "tutorbot.db"))
}

// Open connects to the given driver/DSN and initializes the schema. Tests
// use it with an in-memory SQLite database.
func Open(driver, dsn string) error {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}

		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	// Initialize schema
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if DB.DriverName() == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		table string
		ddl   string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id %s,
				name TEXT NOT NULL UNIQUE,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`},
		{"languages", `
			CREATE TABLE IF NOT EXISTS languages (
				id %s,
				name TEXT NOT NULL UNIQUE
			)
		`},
		{"mistake_categories", `
			CREATE TABLE IF NOT EXISTS mistake_categories (
				id %s,
				name TEXT NOT NULL UNIQUE
			)
		`},
		{"mistakes", `
			CREATE TABLE IF NOT EXISTS mistakes (
				id %s,
				user_id INTEGER NOT NULL,
				language_id INTEGER NOT NULL,
				mistake TEXT NOT NULL,
				correction TEXT NOT NULL,
				explanation TEXT,
				rule TEXT,
				category_id INTEGER NOT NULL,
				examples TEXT,
				common_pitfalls TEXT,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (user_id) REFERENCES users (id),
				FOREIGN KEY (language_id) REFERENCES languages (id),
				FOREIGN KEY (category_id) REFERENCES mistake_categories (id)
			)
		`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id %s,
				user_id INTEGER NOT NULL,
				language_id INTEGER NOT NULL,
				proficiency_level TEXT,
				scene TEXT,
				start_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				end_time TIMESTAMP,
				total_interactions INTEGER DEFAULT 0,
				mistake_count INTEGER DEFAULT 0,
				vocabulary_learned INTEGER DEFAULT 0,
				learning_streak INTEGER DEFAULT 0,
				accuracy_rate REAL DEFAULT 0.0,
				FOREIGN KEY (user_id) REFERENCES users (id),
				FOREIGN KEY (language_id) REFERENCES languages (id)
			)
		`},
		{"vocabulary_learned", `
			CREATE TABLE IF NOT EXISTS vocabulary_learned (
				id %s,
				user_id INTEGER NOT NULL,
				language_id INTEGER NOT NULL,
				word_or_phrase TEXT NOT NULL,
				translation TEXT,
				context TEXT,
				learned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				last_used TIMESTAMP,
				times_used INTEGER DEFAULT 0,
				mastery_level INTEGER DEFAULT 0,
				FOREIGN KEY (user_id) REFERENCES users (id),
				FOREIGN KEY (language_id) REFERENCES languages (id)
			)
		`},
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(fmt.Sprintf(stmt.ddl, idColumn)); err != nil {
			return fmt.Errorf("failed to create %s table: %v", stmt.table, err)
		}
	}

	return nil
}
