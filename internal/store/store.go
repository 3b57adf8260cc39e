// Package store provides storage backends for CallBook.
//
// The only durable client-side state is the backend bearer token, kept under
// a single fixed key. SQLite is the default backend; PostgreSQL is used when
// a postgres DSN is configured, and an in-memory store backs tests.
package store

import (
	"log/slog"
	"sync"
)

// TokenKey is the fixed name the bearer token is persisted under.
const TokenKey = "access_token"

// Store persists named tokens. GetToken returns an empty string, not an
// error, when no token has been saved.
type Store interface {
	GetToken(name string) (string, error)
	SaveToken(name, token string) error
	DeleteToken(name string) error
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a non-durable Store for tests and token-less development.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]string)}
}

// GetToken returns the stored token, or "" when absent.
func (s *InMemoryStore) GetToken(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[name], nil
}

// SaveToken stores or replaces a token.
func (s *InMemoryStore) SaveToken(name, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[name] = token
	return nil
}

// DeleteToken removes a token if present.
func (s *InMemoryStore) DeleteToken(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, name)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	slog.Debug("InMemoryStore.Close: nothing to close")
	return nil
}
