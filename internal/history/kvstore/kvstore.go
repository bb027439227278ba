// Package kvstore is the SQLite-backed implementation of the history KV
// capability.
//
// Notes:
// - One row per partition key; values are whole JSON snapshots.
// - WAL is enabled to support concurrent reads while writing.
package kvstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("missing db path")
	}
	p = filepath.Clean(p)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;

CREATE TABLE IF NOT EXISTS kv_entries (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("store not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("missing key")
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(key string, value string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("missing key")
	}

	_, err := s.db.Exec(`
INSERT INTO kv_entries(key, value, updated_at_unix_ms) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_unix_ms = excluded.updated_at_unix_ms
`, key, value, time.Now().UnixMilli())
	return err
}

func (s *Store) Delete(key string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("missing key")
	}

	_, err := s.db.Exec(`DELETE FROM kv_entries WHERE key = ?`, key)
	return err
}
