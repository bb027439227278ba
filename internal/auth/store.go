// Package auth manages user accounts and bearer-token authentication.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Store is a local SQLite-backed persistence layer for user accounts.
//
// WAL is enabled to support concurrent reads while writing (multiple browser
// sessions against the same server).
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
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

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		return err
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  user_id            TEXT PRIMARY KEY,
  email              TEXT NOT NULL UNIQUE,
  display_name       TEXT NOT NULL DEFAULT '',
  password_hash      TEXT NOT NULL,
  created_at_unix_ms INTEGER NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
`)
	return err
}

type User struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	DisplayName     string `json:"display_name"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
	UpdatedAtUnixMs int64  `json:"updated_at_unix_ms"`

	passwordHash string
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateUser(ctx context.Context, email string, displayName string, passwordHash string) (*User, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("missing email")
	}
	passwordHash = strings.TrimSpace(passwordHash)
	if passwordHash == "" {
		return nil, errors.New("missing password hash")
	}

	now := time.Now().UnixMilli()
	u := &User{
		UserID:          newUserID(),
		Email:           email,
		DisplayName:     strings.TrimSpace(displayName),
		CreatedAtUnixMs: now,
		UpdatedAtUnixMs: now,
		passwordHash:    passwordHash,
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (user_id, email, display_name, password_hash, created_at_unix_ms, updated_at_unix_ms)
VALUES (?, ?, ?, ?, ?, ?)
`, u.UserID, u.Email, u.DisplayName, u.passwordHash, u.CreatedAtUnixMs, u.UpdatedAtUnixMs)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("missing email")
	}
	return s.scanUser(s.db.QueryRowContext(ctx, `
SELECT user_id, email, display_name, password_hash, created_at_unix_ms, updated_at_unix_ms
FROM users WHERE email = ?
`, email))
}

func (s *Store) UserByID(ctx context.Context, userID string) (*User, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("missing user_id")
	}
	return s.scanUser(s.db.QueryRowContext(ctx, `
SELECT user_id, email, display_name, password_hash, created_at_unix_ms, updated_at_unix_ms
FROM users WHERE user_id = ?
`, userID))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.DisplayName, &u.passwordHash, &u.CreatedAtUnixMs, &u.UpdatedAtUnixMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func newUserID() string {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("user_%d", time.Now().UnixNano())
	}
	return "user_" + base64.RawURLEncoding.EncodeToString(b)
}
