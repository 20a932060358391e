// Package core defines the ports between the service layer and its adapters,
// plus the cache-aside logic for question set snapshots.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/voicebot/consultd/internal/domain/model"
)

// CacheRepository defines the interface for caching operations.
// The core defines the interface and the data layer provides the implementation.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// DefaultQuestionSetTTL is how long a snapshot stays cached after a batch submit.
const DefaultQuestionSetTTL = time.Hour

// QuestionSetCache keeps immutable question set snapshots under "questions:<id>".
type QuestionSetCache struct {
	cache   CacheRepository
	catalog QuestionSetCatalog
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// QuestionSetCacheOptions bundles dependencies for NewQuestionSetCache.
type QuestionSetCacheOptions struct {
	Cache   CacheRepository
	Catalog QuestionSetCatalog
	TTL     time.Duration
	Now     func() time.Time
}

// NewQuestionSetCache creates a QuestionSetCache.
func NewQuestionSetCache(opts QuestionSetCacheOptions) *QuestionSetCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultQuestionSetTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &QuestionSetCache{
		cache:   opts.Cache,
		catalog: opts.Catalog,
		ttl:     ttl,
		now:     now,
	}
}

// Put stores snap under its question set id, superseding any earlier snapshot.
func (c *QuestionSetCache) Put(ctx context.Context, snap model.QuestionSetSnapshot, ttl time.Duration) error {
	if snap.QuestionSet.ID == "" {
		return errors.New("question set id is required")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, questionSetKey(snap.QuestionSet.ID), raw, ttl)
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
// An undecodable entry is dropped and reported as a miss.
func (c *QuestionSetCache) Get(ctx context.Context, id string) (*model.QuestionSetSnapshot, error) {
	if id == "" {
		return nil, nil
	}
	raw, err := c.cache.Get(ctx, questionSetKey(id))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var snap model.QuestionSetSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		_, _ = c.cache.Delete(ctx, questionSetKey(id))
		return nil, nil
	}
	return &snap, nil
}

// Warm reads the question set from the catalog and caches a fresh snapshot with the default TTL.
func (c *QuestionSetCache) Warm(ctx context.Context, id string) (*model.QuestionSetSnapshot, error) {
	qs, err := c.catalog.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := model.QuestionSetSnapshot{QuestionSet: *qs, CachedAt: c.now().UTC()}
	if err := c.Put(ctx, snap, c.ttl); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Resolve returns the cached snapshot or, on a miss, reads the catalog and re-caches.
// Concurrent misses for the same id share one catalog read, which is not tied to any
// single caller's cancellation; each caller stops waiting when its own ctx ends.
func (c *QuestionSetCache) Resolve(ctx context.Context, id string) (*model.QuestionSetSnapshot, error) {
	snap, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		return c.Warm(shared, id)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.QuestionSetSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func questionSetKey(id string) string {
	return "questions:" + id
}
