package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/internal/domain/model"
)

// DefaultWaitingQueueKey is the Redis list holding encoded WAITING jobs.
const DefaultWaitingQueueKey = "queue:waiting"

// RedisWaitingQueue implements core.WaitingQueue on a Redis list.
// RPUSH appends at the tail and LPOP removes the head, so every job is delivered to exactly one caller.
type RedisWaitingQueue struct {
	client redis.UniversalClient
	key    string
}

// NewRedisWaitingQueue creates a queue stored under key (DefaultWaitingQueueKey when empty).
func NewRedisWaitingQueue(client redis.UniversalClient, key string) *RedisWaitingQueue {
	if key == "" {
		key = DefaultWaitingQueueKey
	}
	return &RedisWaitingQueue{client: client, key: key}
}

// Enqueue appends jobs in order with a single RPUSH.
func (q *RedisWaitingQueue) Enqueue(ctx context.Context, jobs ...*model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	values := make([]any, 0, len(jobs))
	for _, j := range jobs {
		raw, err := model.EncodeJob(j)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		values = append(values, raw)
	}
	if err := q.client.RPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

// DequeueNext pops the head job. It returns (nil, nil) when the queue is empty.
// An undecodable entry is consumed and reported as an error.
func (q *RedisWaitingQueue) DequeueNext(ctx context.Context) (*model.Job, error) {
	raw, err := q.client.LPop(ctx, q.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis lpop: %w", err)
	}
	return model.DecodeJob(raw)
}

// Requeue pushes job back onto the head with LPUSH.
func (q *RedisWaitingQueue) Requeue(ctx context.Context, job *model.Job) error {
	raw, err := model.EncodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Peek returns up to limit jobs from the head without removing them. A limit <= 0 returns all.
func (q *RedisWaitingQueue) Peek(ctx context.Context, limit int) ([]*model.Job, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raws, err := q.client.LRange(ctx, q.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	jobs := make([]*model.Job, 0, len(raws))
	for _, raw := range raws {
		j, decErr := model.DecodeJob([]byte(raw))
		if decErr != nil {
			return nil, decErr
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Len returns the number of waiting jobs.
func (q *RedisWaitingQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return n, nil
}
