package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// Service combines the users store and the token issuer into the operations
// the API layer calls.
type Service struct {
	log    *slog.Logger
	store  *Store
	issuer *TokenIssuer
}

func NewService(log *slog.Logger, store *Store, issuer *TokenIssuer) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, store: store, issuer: issuer}
}

type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      *User  `json:"user"`
}

func (s *Service) Register(ctx context.Context, email string, displayName string, password string) (*Session, error) {
	if s == nil || s.store == nil || s.issuer == nil {
		return nil, errors.New("auth service not initialized")
	}
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := s.store.CreateUser(ctx, email, displayName, string(hash))
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.UserID)
	return s.newSession(u)
}

func (s *Service) Login(ctx context.Context, email string, password string) (*Session, error) {
	if s == nil || s.store == nil || s.issuer == nil {
		return nil, errors.New("auth service not initialized")
	}
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	s.log.Info("user logged in", "user_id", u.UserID)
	return s.newSession(u)
}

// VerifyToken resolves a bearer token to the user it was issued for.
func (s *Service) VerifyToken(ctx context.Context, token string) (*User, error) {
	if s == nil || s.store == nil || s.issuer == nil {
		return nil, errors.New("auth service not initialized")
	}
	userID, err := s.issuer.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

func (s *Service) newSession(u *User) (*Session, error) {
	token, expires, err := s.issuer.Issue(u.UserID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires.UnixMilli(), User: u}, nil
}

// TTLFromMinutes converts a config value to a duration, with a sane floor.
func TTLFromMinutes(minutes int) time.Duration {
	if minutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(minutes) * time.Minute
}
