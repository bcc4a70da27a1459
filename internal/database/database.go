package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	"restaurant_backend/pkg/utils"

	_ "github.com/lib/pq" // PostgreSQL driver
)

//go:embed schema.sql
var embeddedSchema string

const schemaLockKey = 727100

// InitDB opens and pings the PostgreSQL connection pool.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	utils.LogInfo("Successfully connected to the database")
	return db, nil
}

// ApplySchema executes the schema file at schemaPath, or the bundled schema when the path is
// empty. Every statement is idempotent.
func ApplySchema(db *sql.DB, schemaPath string) error {
	schema := embeddedSchema
	source := "embedded"
	if schemaPath != "" {
		content, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("could not read schema file %s: %w", schemaPath, err)
		}
		schema = string(content)
		source = schemaPath
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not start schema transaction: %w", err)
	}
	defer tx.Rollback()
	// Concurrent CREATE TABLE IF NOT EXISTS can still collide in the catalog.
	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("could not lock schema: %w", err)
	}
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("could not execute schema script: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit schema: %w", err)
	}
	utils.LogInfo("Database schema applied", map[string]interface{}{"source": source})
	return nil
}
