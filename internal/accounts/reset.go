package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

var ErrTokenInvalid = errors.New("reset token invalid or expired")

// ResetStore keeps password-reset tokens in Redis with a TTL. Only the
// SHA-256 of the token is stored; the raw token is handed out once and never
// persisted.
type ResetStore struct{ Redis *redis.Client }

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue mints a single-use token bound to the user.
func (s *ResetStore) Issue(ctx context.Context, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)
	key := fmt.Sprintf(redisx.KeyPasswordReset, hashToken(token))
	if err := s.Redis.Set(ctx, key, userID, redisx.TTLPasswordReset).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume atomically deletes the token (GETDEL) so it cannot be replayed,
// returning the bound user id.
func (s *ResetStore) Consume(ctx context.Context, token string) (string, error) {
	key := fmt.Sprintf(redisx.KeyPasswordReset, hashToken(token))
	userID, err := s.Redis.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
