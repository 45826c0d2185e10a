package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yoockh/labourline/internal/cache"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
)

const maxUpdateAttempts = 5

// RedisStore shares sessions between instances behind the same webhook URL.
type RedisStore struct {
	rdb   *redis.Client
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisStore{
		rdb:   rdb,
		cache: cache.NewRedisCache(rdb, "ivr:session:"),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *RedisStore) Create(ctx context.Context, callID, callerAddress string) (*models.CallSession, error) {
	const op = "RedisStore.Create"

	if callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil)
	}
	s := models.NewCallSession(callID, callerAddress, r.now())
	added, err := r.cache.AddJSON(ctx, callID, s, r.ttl)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store session", err)
	}
	if !added {
		return nil, ErrExists
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, callID string) (*models.CallSession, error) {
	var s models.CallSession
	hit, err := r.cache.GetJSON(ctx, callID, &s)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, "RedisStore.Get", "failed to read session", err)
	}
	if !hit {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

// Update uses WATCH so concurrent writers on the same call retry instead of
// overwriting each other.
func (r *RedisStore) Update(ctx context.Context, callID string, fn func(*models.CallSession) error) (*models.CallSession, error) {
	const op = "RedisStore.Update"

	key := r.cache.Key(callID)
	var (
		out   *models.CallSession
		fnErr error
	)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return utils.ErrNotFound
		}
		if err != nil {
			return err
		}
		var s models.CallSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			fnErr = err
			return err
		}
		b, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, r.ttl)
			return nil
		})
		if err == nil {
			out = &s
		}
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if fnErr != nil {
			return nil, fnErr
		}
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, err
			}
			return nil, utils.E(utils.CodeUnavailable, op, "failed to update session", err)
		}
		return out, nil
	}
	return nil, utils.E(utils.CodeConflict, op, "too many concurrent updates", utils.ErrConflict)
}

func (r *RedisStore) Put(ctx context.Context, s *models.CallSession) error {
	const op = "RedisStore.Put"

	if s == nil || s.CallID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session with call_id is required", nil)
	}
	if err := r.cache.SetJSON(ctx, s.CallID, s, r.ttl); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to store session", err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, callID string) error {
	if err := r.cache.Del(ctx, callID); err != nil {
		return utils.E(utils.CodeUnavailable, "RedisStore.Remove", "failed to delete session", err)
	}
	return nil
}
