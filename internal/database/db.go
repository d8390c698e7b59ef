package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

var DB *sql.DB

// InitDB opens the database, applies the schema and keeps the handle in DB
func InitDB(dbPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return err
	}

	DB = db
	log.Info().Str("path", dbPath).Msg("Database initialized")
	return nil
}

// Open opens a sqlite database at dbPath, creating its directory if needed
func Open(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// Migrate applies the embedded schema; every statement is idempotent
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	log.Debug().Msg("Database schema applied")
	return nil
}
