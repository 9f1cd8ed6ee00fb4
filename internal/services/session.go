package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// Sessions keeps one bearer session per user in Redis.
type Sessions struct {
	rdb redis.Cmdable
}

func NewSessions(rdb redis.Cmdable) *Sessions {
	return &Sessions{rdb: rdb}
}

// Create invalidates the user's previous session and returns a new token, so
// the 7-day timer resets on every sign in.
func (s *Sessions) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if err := s.InvalidateUser(ctx, userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, userID.String(), SessionDuration)
	pipe.Set(ctx, UserSessionKeyPrefix+userID.String(), token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Validate returns the user a token belongs to. Unknown tokens are not an error.
func (s *Sessions) Validate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}
	raw, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, err
	}
	return userID, true, nil
}

func (s *Sessions) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	raw, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if err == nil && raw != "" {
		s.rdb.Del(ctx, UserSessionKeyPrefix+raw)
	}
	return s.rdb.Del(ctx, SessionKeyPrefix+token).Err()
}

func (s *Sessions) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	key := UserSessionKeyPrefix + userID.String()
	token, err := s.rdb.Get(ctx, key).Result()
	if err == nil && token != "" {
		s.rdb.Del(ctx, SessionKeyPrefix+token)
	}
	return s.rdb.Del(ctx, key).Err()
}
