package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/internal/domain/model"
)

// RedisCorrelationStore implements core.CorrelationStore with one expiring key per dispatch.
type RedisCorrelationStore struct {
	client redis.UniversalClient
}

// NewRedisCorrelationStore creates a RedisCorrelationStore.
func NewRedisCorrelationStore(client redis.UniversalClient) *RedisCorrelationStore {
	return &RedisCorrelationStore{client: client}
}

func correlationKey(contactID string, sessionIndex int) string {
	return "correlation:" + contactID + ":" + strconv.Itoa(sessionIndex)
}

// Remember stores c for (contactID, sessionIndex) with the given TTL.
func (s *RedisCorrelationStore) Remember(
	ctx context.Context,
	contactID string,
	sessionIndex int,
	c model.Correlation,
	ttl time.Duration,
) error {
	if contactID == "" {
		return ErrContactIDRequired
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode correlation: %w", err)
	}
	if err := s.client.Set(ctx, correlationKey(contactID, sessionIndex), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set correlation: %w", err)
	}
	return nil
}

// Resolve returns the stored correlation, or (nil, nil) when it is absent, expired, or unreadable.
func (s *RedisCorrelationStore) Resolve(ctx context.Context, contactID string, sessionIndex int) (*model.Correlation, error) {
	if contactID == "" {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, correlationKey(contactID, sessionIndex)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get correlation: %w", err)
	}
	var c model.Correlation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, nil
	}
	return &c, nil
}

// Forget deletes the correlation. Deleting a missing entry is not an error.
func (s *RedisCorrelationStore) Forget(ctx context.Context, contactID string, sessionIndex int) error {
	if contactID == "" {
		return nil
	}
	if err := s.client.Del(ctx, correlationKey(contactID, sessionIndex)).Err(); err != nil {
		return fmt.Errorf("redis del correlation: %w", err)
	}
	return nil
}
