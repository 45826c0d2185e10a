package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Minute), mr
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	_, err := store.Create(ctx, "CA1", "+919800000001")
	require.NoError(t, err)
	assert.True(t, mr.Exists("ivr:session:CA1"))
	assert.Greater(t, mr.TTL("ivr:session:CA1"), time.Duration(0))

	updated, err := store.Update(ctx, "CA1", func(s *models.CallSession) error {
		s.Language = models.LanguageKannada
		s.CollectedFields["name"] = "https://rec/1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.LanguageKannada, updated.Language)

	got, err := store.Get(ctx, "CA1")
	require.NoError(t, err)
	assert.Equal(t, "https://rec/1", got.CollectedFields["name"])

	require.NoError(t, store.Remove(ctx, "CA1"))
	_, err = store.Get(ctx, "CA1")
	assert.True(t, IsNotFound(err))
}

func TestRedisStoreSessionsExpire(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	_, err := store.Create(ctx, "CA2", "+919800000002")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "CA2")
	assert.True(t, IsNotFound(err))
}

func TestRedisStoreUpdateMissIsNotFound(t *testing.T) {
	store, _ := newRedisStore(t)

	called := false
	_, err := store.Update(context.Background(), "missing", func(*models.CallSession) error {
		called = true
		return nil
	})
	assert.True(t, IsNotFound(err))
	assert.False(t, called)
}

func TestRedisStoreUpdateErrorLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	_, err := store.Create(ctx, "CA3", "+919800000003")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Update(ctx, "CA3", func(s *models.CallSession) error {
		s.State = models.StateFinalizing
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "CA3")
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingLanguage, got.State)
}

func TestRedisStoreCreateKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	_, err := store.Create(ctx, "CA4", "+919800000004")
	require.NoError(t, err)
	_, err = store.Update(ctx, "CA4", func(s *models.CallSession) error {
		s.State = models.StateFinalizing
		return nil
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, "CA4", "+919800000004")
	assert.True(t, IsExists(err))

	got, err := store.Get(ctx, "CA4")
	require.NoError(t, err)
	assert.Equal(t, models.StateFinalizing, got.State)
}

func TestRedisStoreConcurrentUpdatesLoseNothing(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	_, err := store.Create(ctx, "CA5", "+919800000005")
	require.NoError(t, err)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			field := fmt.Sprintf("f%d", i)
			_, err := store.Update(ctx, "CA5", func(s *models.CallSession) error {
				s.CollectedFields[field] = "x"
				return nil
			})
			if err != nil {
				// only contention may fail an update
				assert.True(t, utils.IsCode(err, utils.CodeConflict), err.Error())
				return
			}
			mu.Lock()
			applied[field] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, "CA5")
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	assert.Len(t, got.CollectedFields, len(applied))
	for field := range applied {
		assert.Contains(t, got.CollectedFields, field)
	}
}
