// Package session holds the backend credentials of a bot user.
//
// A Session is passed explicitly to every authenticated call; nothing reads
// a token from shared state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/storage/redis"
)

const (
	RoleAdmin = "admin"

	// FallbackTTL applies when the token carries no exp claim
	FallbackTTL = 12 * time.Hour
)

var (
	ErrNoSession = errors.New("not logged in")
	ErrExpired   = errors.New("session expired")
)

type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// FromLogin builds a session from a login answer. The token is parsed
// without verification, only to learn its expiry; the backend verifies it
// on every request.
func FromLogin(res *board.LoginResponse, now time.Time) (*Session, error) {
	s := &Session{
		Token: res.Token,
		Email: res.User.Email,
		Name:  res.User.Name,
		Role:  res.User.Role,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(res.Token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("read token expiry: %w", err)
	}

	if exp != nil {
		s.ExpiresAt = exp.Time
	} else {
		s.ExpiresAt = now.Add(FallbackTTL)
	}

	if s.Expired(now) {
		return nil, ErrExpired
	}

	return s, nil
}

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, key string) error
}

// Store keeps one session per Telegram user. Entries expire together with
// their token.
type Store struct {
	cache  kv
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(cache kv, logger *zap.Logger) *Store {
	return &Store{
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (st *Store) Save(ctx context.Context, userID int64, s *Session) error {
	ttl := s.ExpiresAt.Sub(st.now())
	if ttl <= 0 {
		return ErrExpired
	}

	if err := st.cache.Set(ctx, redis.SessionKey(userID), s, ttl); err != nil {
		st.logger.Error("failed to save session", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("save session: %w", err)
	}

	st.logger.Info("session saved",
		zap.Int64("user_id", userID),
		zap.String("role", s.Role),
		zap.Time("expires_at", s.ExpiresAt),
	)

	return nil
}

// Get returns the user's session, ErrNoSession when there is none, or
// ErrExpired when it ran out (the stale entry is removed).
func (st *Store) Get(ctx context.Context, userID int64) (*Session, error) {
	var s Session
	err := st.cache.Get(ctx, redis.SessionKey(userID), &s)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.Expired(st.now()) {
		_ = st.Delete(ctx, userID)
		return nil, ErrExpired
	}

	return &s, nil
}

func (st *Store) Delete(ctx context.Context, userID int64) error {
	if err := st.cache.Delete(ctx, redis.SessionKey(userID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Invalidate drops a session the backend refused. The caller tells the user
// to log in again; the request is not retried.
func (st *Store) Invalidate(ctx context.Context, userID int64, cause error) {
	st.logger.Warn("session rejected by backend",
		zap.Int64("user_id", userID),
		zap.Error(cause),
	)
	if err := st.Delete(ctx, userID); err != nil {
		st.logger.Error("failed to drop rejected session", zap.Int64("user_id", userID), zap.Error(err))
	}
}
