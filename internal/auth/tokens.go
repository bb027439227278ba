package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer mints and verifies HS256 bearer tokens. The signing key lives
// in a chmod-0600 file under the data dir so tokens survive restarts.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

const tokenIssuerName = "vidya-ai"

func NewTokenIssuer(keyPath string, ttl time.Duration) (*TokenIssuer, error) {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	key, err := loadOrCreateSigningKey(keyPath)
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{key: key, ttl: ttl}, nil
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

func (t *TokenIssuer) Issue(userID string, email string) (string, time.Time, error) {
	if t == nil || len(t.key) == 0 {
		return "", time.Time{}, errors.New("token issuer not initialized")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("missing user_id")
	}

	now := time.Now()
	expires := now.Add(t.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: NormalizeEmail(email),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify checks signature and expiry and returns the token's user id.
func (t *TokenIssuer) Verify(token string) (string, error) {
	if t == nil || len(t.key) == 0 {
		return "", errors.New("token issuer not initialized")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.key, nil
	}, jwt.WithIssuer(tokenIssuerName), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	userID := strings.TrimSpace(c.Subject)
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func loadOrCreateSigningKey(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing signing key path")
	}
	path = filepath.Clean(path)

	if b, err := os.ReadFile(path); err == nil {
		key, decErr := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(b)))
		if decErr == nil && len(key) >= 32 {
			return key, nil
		}
		// Unreadable key file: regenerate rather than lock everyone out.
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(key) + "\n"
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(encoded), 0o600); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, err
	}
	return key, nil
}
