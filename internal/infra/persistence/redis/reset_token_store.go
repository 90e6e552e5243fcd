package redis

import (
	"context"
	"time"

	"renthouse/internal/domain/repository"
	"renthouse/internal/errors"

	goredis "github.com/redis/go-redis/v9"
)

// ResetTokenKeyPrefix namespaces password-reset tokens in Redis.
const ResetTokenKeyPrefix = "RESET:PASSWORD:TOKEN:"

type resetTokenStore struct {
	client goredis.UniversalClient
}

// NewResetTokenStore builds a ResetTokenStore on a Redis client.
func NewResetTokenStore(client goredis.UniversalClient) repository.ResetTokenStore {
	return &resetTokenStore{client: client}
}

// Set stores the phone number under the token key with the given TTL.
func (s *resetTokenStore) Set(ctx context.Context, token, phoneNumber string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetTokenKey(token), phoneNumber, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set reset token")
	}

	return nil
}

// Get returns the phone number stored under token.
func (s *resetTokenStore) Get(ctx context.Context, token string) (string, bool, error) {
	phoneNumber, err := s.client.Get(ctx, resetTokenKey(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get reset token")
	}

	return phoneNumber, true, nil
}

// Delete removes the token key.
func (s *resetTokenStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, resetTokenKey(token)).Err(); err != nil {
		return errors.Wrap(err, "redis delete reset token")
	}

	return nil
}

func resetTokenKey(token string) string {
	return ResetTokenKeyPrefix + token
}
