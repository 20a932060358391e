package data

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/internal/testutil"
)

// setupTestRedis returns a flushed client or skips when Redis is unavailable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get returns identical bytes", func(t *testing.T) {
		key := "questions:qs-1"
		value := []byte(`{"questionSet":{"questionsId":"qs-1","title":"t","flow":[]}}`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("entry expires after ttl", func(t *testing.T) {
		key := "questions:short-lived"
		require.NoError(t, repo.Set(ctx, key, []byte("x"), 100*time.Millisecond))

		time.Sleep(250 * time.Millisecond)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "non:existent:key")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete existing and missing key", func(t *testing.T) {
		key := "test:key:2"
		require.NoError(t, repo.Set(ctx, key, []byte("to be deleted"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("set if not exists", func(t *testing.T) {
		key := "lock:dispatch-scheduler"

		wasSet, err := repo.SetIfNotExists(ctx, key, []byte("a"), time.Minute)
		require.NoError(t, err)
		assert.True(t, wasSet)

		wasSet, err = repo.SetIfNotExists(ctx, key, []byte("b"), time.Minute)
		require.NoError(t, err)
		assert.False(t, wasSet)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), result)
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	// Validation happens before any Redis round trip, so an unreachable client is fine.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.ErrorIs(t, repo.Set(ctx, "", []byte("value"), time.Minute), ErrEmptyKey)

	_, err := repo.Get(ctx, "")
	require.ErrorIs(t, err, ErrEmptyKey)

	_, err = repo.Delete(ctx, "")
	require.ErrorIs(t, err, ErrEmptyKey)

	_, err = repo.SetIfNotExists(ctx, "", []byte("value"), time.Minute)
	require.ErrorIs(t, err, ErrEmptyKey)
}
