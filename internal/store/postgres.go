// Package store provides storage backends for CallBook.
//
// This file implements the PostgreSQL-backed token store, used when the
// configured DSN is a postgres connection string.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists tokens in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetToken returns the token stored under name, or "" when absent.
func (s *PostgresStore) GetToken(name string) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token FROM tokens WHERE name = $1`, name).Scan(&token)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore.GetToken: no token stored", "name", name)
		return "", nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetToken failed", "error", err, "name", name)
		return "", fmt.Errorf("failed to query token %s: %w", name, err)
	}
	return token, nil
}

// SaveToken stores or replaces the token under name.
func (s *PostgresStore) SaveToken(name, token string) error {
	_, err := s.db.Exec(
		`INSERT INTO tokens (name, token, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (name) DO UPDATE SET token = EXCLUDED.token, updated_at = NOW()`,
		name, token)
	if err != nil {
		slog.Error("PostgresStore.SaveToken failed", "error", err, "name", name)
		return fmt.Errorf("failed to save token %s: %w", name, err)
	}
	slog.Debug("PostgresStore.SaveToken succeeded", "name", name)
	return nil
}

// DeleteToken removes the token under name if present.
func (s *PostgresStore) DeleteToken(name string) error {
	_, err := s.db.Exec(`DELETE FROM tokens WHERE name = $1`, name)
	if err != nil {
		slog.Error("PostgresStore.DeleteToken failed", "error", err, "name", name)
		return fmt.Errorf("failed to delete token %s: %w", name, err)
	}
	slog.Debug("PostgresStore.DeleteToken succeeded", "name", name)
	return nil
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL connection pool")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL connection", "error", err)
	}
	return err
}
