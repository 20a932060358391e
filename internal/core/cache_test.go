package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/voicebot/consultd/internal/domain/model"
)

//go:generate mockgen -source=cache.go -destination=cache_mock.go -package=core
//go:generate mockgen -destination=question_set_catalog_mock_test.go -package=core github.com/voicebot/consultd/internal/core QuestionSetCatalog

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleQuestionSet() *model.QuestionSet {
	return &model.QuestionSet{
		ID:    "qs-1",
		Title: "Weekly check-in",
		Flow: []model.Question{
			{Text: "How are you sleeping?", ExpectedResponses: []model.ExpectedResponse{{Text: "poorly"}}},
		},
	}
}

func encodedSnapshot(t *testing.T, qs *model.QuestionSet) []byte {
	t.Helper()
	raw, err := json.Marshal(model.QuestionSetSnapshot{QuestionSet: *qs, CachedAt: fixedNow})
	require.NoError(t, err)
	return raw
}

func newTestCache(cache CacheRepository, catalog QuestionSetCatalog) *QuestionSetCache {
	return NewQuestionSetCache(QuestionSetCacheOptions{
		Cache:   cache,
		Catalog: catalog,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestQuestionSetCache_Get(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		setup   func(*testing.T, *MockCacheRepository)
		wantNil bool
		wantErr bool
	}{
		{
			name:    "empty id is a miss",
			id:      "",
			setup:   func(*testing.T, *MockCacheRepository) {},
			wantNil: true,
		},
		{
			name: "miss",
			id:   "qs-1",
			setup: func(_ *testing.T, cache *MockCacheRepository) {
				cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(nil, nil)
			},
			wantNil: true,
		},
		{
			name: "hit",
			id:   "qs-1",
			setup: func(t *testing.T, cache *MockCacheRepository) {
				cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(encodedSnapshot(t, sampleQuestionSet()), nil)
			},
		},
		{
			name: "corrupt entry is dropped",
			id:   "qs-1",
			setup: func(_ *testing.T, cache *MockCacheRepository) {
				cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return([]byte("{not json"), nil)
				cache.EXPECT().Delete(gomock.Any(), "questions:qs-1").Return(true, nil)
			},
			wantNil: true,
		},
		{
			name: "backend error",
			id:   "qs-1",
			setup: func(_ *testing.T, cache *MockCacheRepository) {
				cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(nil, errors.New("redis down"))
			},
			wantNil: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			cache := NewMockCacheRepository(ctrl)
			tt.setup(t, cache)

			snap, err := newTestCache(cache, NewMockQuestionSetCatalog(ctrl)).Get(context.Background(), tt.id)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, snap)
				return
			}
			require.NotNil(t, snap)
			assert.Equal(t, "Weekly check-in", snap.QuestionSet.Title)
			assert.Len(t, snap.QuestionSet.Flow, 1)
		})
	}
}

func TestQuestionSetCache_PutRequiresID(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newTestCache(NewMockCacheRepository(ctrl), NewMockQuestionSetCatalog(ctrl))

	err := c.Put(context.Background(), model.QuestionSetSnapshot{}, time.Minute)
	require.Error(t, err)
}

func TestQuestionSetCache_PutUsesGivenTTL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := NewMockCacheRepository(ctrl)
	qs := sampleQuestionSet()
	cache.EXPECT().Set(gomock.Any(), "questions:qs-1", encodedSnapshot(t, qs), 5*time.Minute).Return(nil)

	c := newTestCache(cache, NewMockQuestionSetCatalog(ctrl))
	err := c.Put(context.Background(), model.QuestionSetSnapshot{QuestionSet: *qs, CachedAt: fixedNow}, 5*time.Minute)
	require.NoError(t, err)
}

func TestQuestionSetCache_WarmCachesWithDefaultTTL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := NewMockCacheRepository(ctrl)
	catalog := NewMockQuestionSetCatalog(ctrl)
	qs := sampleQuestionSet()

	catalog.EXPECT().FindByID(gomock.Any(), "qs-1").Return(qs, nil)
	cache.EXPECT().Set(gomock.Any(), "questions:qs-1", encodedSnapshot(t, qs), time.Hour).Return(nil)

	snap, err := newTestCache(cache, catalog).Warm(context.Background(), "qs-1")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, snap.CachedAt)
}

func TestQuestionSetCache_WarmPropagatesCatalogError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	catalog := NewMockQuestionSetCatalog(ctrl)
	catalog.EXPECT().FindByID(gomock.Any(), "missing").Return(nil, errors.New("not found"))

	_, err := newTestCache(NewMockCacheRepository(ctrl), catalog).Warm(context.Background(), "missing")
	require.Error(t, err)
}

func TestQuestionSetCache_ResolveHitSkipsCatalog(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := NewMockCacheRepository(ctrl)
	cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(encodedSnapshot(t, sampleQuestionSet()), nil)

	snap, err := newTestCache(cache, NewMockQuestionSetCatalog(ctrl)).Resolve(context.Background(), "qs-1")
	require.NoError(t, err)
	assert.Equal(t, "qs-1", snap.QuestionSet.ID)
}

func TestQuestionSetCache_ResolveMissFallsBackToCatalog(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := NewMockCacheRepository(ctrl)
	catalog := NewMockQuestionSetCatalog(ctrl)
	qs := sampleQuestionSet()

	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(nil, nil),
		catalog.EXPECT().FindByID(gomock.Any(), "qs-1").Return(qs, nil),
		cache.EXPECT().Set(gomock.Any(), "questions:qs-1", gomock.Any(), time.Hour).Return(nil),
	)

	snap, err := newTestCache(cache, catalog).Resolve(context.Background(), "qs-1")
	require.NoError(t, err)
	assert.Equal(t, "Weekly check-in", snap.QuestionSet.Title)
}

func TestQuestionSetCache_ResolveConcurrentMisses(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := NewMockCacheRepository(ctrl)
	catalog := NewMockQuestionSetCatalog(ctrl)

	cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(nil, nil).AnyTimes()
	catalog.EXPECT().FindByID(gomock.Any(), "qs-1").Return(sampleQuestionSet(), nil).MinTimes(1)
	cache.EXPECT().Set(gomock.Any(), "questions:qs-1", gomock.Any(), time.Hour).Return(nil).MinTimes(1)

	c := newTestCache(cache, catalog)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Resolve(context.Background(), "qs-1")
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()
}

func TestQuestionSetCache_ResolveSurvivesLeaderCancellation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cache := NewMockCacheRepository(ctrl)
	catalog := NewMockQuestionSetCatalog(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	cache.EXPECT().Get(gomock.Any(), "questions:qs-1").Return(nil, nil).AnyTimes()
	catalog.EXPECT().FindByID(gomock.Any(), "qs-1").DoAndReturn(
		func(ctx context.Context, _ string) (*model.QuestionSet, error) {
			once.Do(func() { close(started) })
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return sampleQuestionSet(), nil
		}).MinTimes(1)
	cache.EXPECT().Set(gomock.Any(), "questions:qs-1", gomock.Any(), time.Hour).Return(nil).MinTimes(1)

	c := newTestCache(cache, catalog)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Resolve(leaderCtx, "qs-1")
		leaderErr <- err
	}()
	<-started

	type result struct {
		snap *model.QuestionSetSnapshot
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		snap, err := c.Resolve(context.Background(), "qs-1")
		follower <- result{snap, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	require.NotNil(t, got.snap)
	assert.Equal(t, "Weekly check-in", got.snap.QuestionSet.Title)
}
