// Package store provides storage backends for CallBook.
//
// This file implements the SQLite-backed token store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists tokens in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

// GetToken returns the token stored under name, or "" when absent.
func (s *SQLiteStore) GetToken(name string) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token FROM tokens WHERE name = ?`, name).Scan(&token)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore.GetToken: no token stored", "name", name)
		return "", nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetToken failed", "error", err, "name", name)
		return "", fmt.Errorf("failed to query token %s: %w", name, err)
	}
	return token, nil
}

// SaveToken stores or replaces the token under name.
func (s *SQLiteStore) SaveToken(name, token string) error {
	_, err := s.db.Exec(
		`INSERT INTO tokens (name, token, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET token = excluded.token, updated_at = CURRENT_TIMESTAMP`,
		name, token)
	if err != nil {
		slog.Error("SQLiteStore.SaveToken failed", "error", err, "name", name)
		return fmt.Errorf("failed to save token %s: %w", name, err)
	}
	slog.Debug("SQLiteStore.SaveToken succeeded", "name", name)
	return nil
}

// DeleteToken removes the token under name if present.
func (s *SQLiteStore) DeleteToken(name string) error {
	_, err := s.db.Exec(`DELETE FROM tokens WHERE name = ?`, name)
	if err != nil {
		slog.Error("SQLiteStore.DeleteToken failed", "error", err, "name", name)
		return fmt.Errorf("failed to delete token %s: %w", name, err)
	}
	slog.Debug("SQLiteStore.DeleteToken succeeded", "name", name)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
