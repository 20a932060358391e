package data

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/internal/domain/model"
)

const inFlightKey = "dispatch:inflight"

// RedisInFlightTracker implements core.InFlightTracker on a sorted set scored by dispatch start (unix ms).
type RedisInFlightTracker struct {
	client redis.UniversalClient
}

// NewRedisInFlightTracker creates a RedisInFlightTracker.
func NewRedisInFlightTracker(client redis.UniversalClient) *RedisInFlightTracker {
	return &RedisInFlightTracker{client: client}
}

func inFlightMember(d model.InFlightDispatch) string {
	return d.ContactID + ":" + strconv.Itoa(d.SessionIndex)
}

// parseInFlightMember splits on the last colon so contact ids may themselves contain colons.
func parseInFlightMember(member string) (model.InFlightDispatch, bool) {
	i := strings.LastIndexByte(member, ':')
	if i <= 0 {
		return model.InFlightDispatch{}, false
	}
	idx, err := strconv.Atoi(member[i+1:])
	if err != nil {
		return model.InFlightDispatch{}, false
	}
	return model.InFlightDispatch{ContactID: member[:i], SessionIndex: idx}, true
}

// Track records d as in flight since startedAt.
func (t *RedisInFlightTracker) Track(ctx context.Context, d model.InFlightDispatch, startedAt time.Time) error {
	if d.ContactID == "" {
		return ErrContactIDRequired
	}
	z := redis.Z{Score: float64(startedAt.UnixMilli()), Member: inFlightMember(d)}
	if err := t.client.ZAdd(ctx, inFlightKey, z).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

// Untrack removes d and reports whether it was present. Only one concurrent caller observes true.
func (t *RedisInFlightTracker) Untrack(ctx context.Context, d model.InFlightDispatch) (bool, error) {
	n, err := t.client.ZRem(ctx, inFlightKey, inFlightMember(d)).Result()
	if err != nil {
		return false, fmt.Errorf("redis zrem: %w", err)
	}
	return n > 0, nil
}

// Stale returns up to limit dispatches started before cutoff, oldest first.
func (t *RedisInFlightTracker) Stale(ctx context.Context, cutoff time.Time, limit int) ([]model.InFlightDispatch, error) {
	if limit <= 0 {
		limit = 100
	}
	members, err := t.client.ZRangeByScore(ctx, inFlightKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	out := make([]model.InFlightDispatch, 0, len(members))
	for _, m := range members {
		if d, ok := parseInFlightMember(m); ok {
			out = append(out, d)
		}
	}
	return out, nil
}
