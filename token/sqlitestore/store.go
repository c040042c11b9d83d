// Package sqlitestore persists tokens in a SQLite database file.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dnovikov/ironio-oauth/token"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS oauth_tokens (
    service_id TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

var _ token.Store = (*Store)(nil)

// Store implements token.Store over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Has(serviceID string) (bool, error) {
	var n int
	err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM oauth_tokens WHERE service_id = ?`, serviceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query token: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Get(serviceID string) (*token.Token, error) {
	var payload string
	err := s.sqlDB.QueryRow(`SELECT payload FROM oauth_tokens WHERE service_id = ?`, serviceID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("query token: %w", err)
	}
	return token.Unmarshal([]byte(payload))
}

func (s *Store) Put(serviceID string, tok *token.Token) error {
	payload, err := encode(tok)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.Exec(
		`INSERT OR REPLACE INTO oauth_tokens (service_id, payload, updated_at) VALUES (?, ?, ?)`,
		serviceID, payload, token.NowTimeFunc().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *Store) PutIfAbsent(serviceID string, tok *token.Token) (bool, error) {
	payload, err := encode(tok)
	if err != nil {
		return false, err
	}
	res, err := s.sqlDB.Exec(
		`INSERT OR IGNORE INTO oauth_tokens (service_id, payload, updated_at) VALUES (?, ?, ?)`,
		serviceID, payload, token.NowTimeFunc().UTC().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("store token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store token: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Delete(serviceID string) error {
	if _, err := s.sqlDB.Exec(`DELETE FROM oauth_tokens WHERE service_id = ?`, serviceID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func encode(tok *token.Token) (string, error) {
	if tok == nil {
		return "", errors.New("token cannot be nil")
	}
	data, err := tok.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return string(data), nil
}
