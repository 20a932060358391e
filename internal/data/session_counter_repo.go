package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/internal/data/pgxutil"
	apperrors "github.com/voicebot/consultd/internal/errors"
)

// The upsert takes a row lock on conflict, so concurrent callers for one contact are serialized by Postgres.
const nextSessionIndexQuery = `
	INSERT INTO session_counters (contact_id, last_index, updated_at)
	VALUES ($1, 1, now())
	ON CONFLICT (contact_id)
	DO UPDATE SET last_index = session_counters.last_index + 1, updated_at = now()
	RETURNING last_index`

// SessionCounterRepo implements core.SessionIndexAllocator on the session_counters table.
type SessionCounterRepo struct {
	DB *sql.DB
}

// NewSessionCounterRepo creates a SessionCounterRepo.
func NewSessionCounterRepo(db *sql.DB) *SessionCounterRepo {
	return &SessionCounterRepo{DB: db}
}

// NextIndex increments and returns the contact's counter. The first call for a contact returns 1.
func (r *SessionCounterRepo) NextIndex(ctx context.Context, contactID string) (int, error) {
	if contactID == "" {
		return 0, ErrContactIDRequired
	}
	var idx int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, nextSessionIndexQuery, contactID).Scan(&idx)
	})
	if err != nil {
		return 0, fmt.Errorf("next session index: %w", apperrors.MapDBError(err))
	}
	return idx, nil
}

const sessionCountersKey = "session:counters"

// RedisSessionCounter implements core.SessionIndexAllocator with HINCRBY on a single hash.
type RedisSessionCounter struct {
	client redis.UniversalClient
}

// NewRedisSessionCounter creates a RedisSessionCounter.
func NewRedisSessionCounter(client redis.UniversalClient) *RedisSessionCounter {
	return &RedisSessionCounter{client: client}
}

// NextIndex increments and returns the contact's counter. The first call for a contact returns 1.
func (c *RedisSessionCounter) NextIndex(ctx context.Context, contactID string) (int, error) {
	if contactID == "" {
		return 0, ErrContactIDRequired
	}
	n, err := c.client.HIncrBy(ctx, sessionCountersKey, contactID, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby: %w", err)
	}
	return int(n), nil
}
