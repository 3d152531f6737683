// Package session holds the persisted credential token. A Store is passed
// explicitly to every component that authenticates requests or guards a view.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultKey is the storage key of the access token.
const DefaultKey = "access_token"

var ErrEmptyToken = errors.New("session: empty token")

type Store struct {
	repo   Repository
	key    string
	logger *zap.Logger
}

type Option func(*Store)

// WithKey stores the token under a different key, e.g. one per chat.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{repo: repo, key: DefaultKey, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the persisted token. A storage failure reads as logged-out.
func (s *Store) Get() (string, bool) {
	token, ok, err := s.repo.Load(s.key)
	if err != nil {
		s.logger.Warn("failed to read session", zap.String("key", s.key), zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *Store) Set(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.repo.Save(s.key, token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	if err := s.repo.Delete(s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Expired reports whether the stored token is a JWT whose exp claim is not
// after now. The signature is not verified; only the backend can do that.
// Opaque tokens and JWTs without exp never expire here.
func (s *Store) Expired(now time.Time) bool {
	token, ok := s.Get()
	if !ok {
		return false
	}
	return TokenExpired(token, now)
}

func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
