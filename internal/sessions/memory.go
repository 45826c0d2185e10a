package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
)

// MemoryStore keeps sessions in process. Entries expire after ttl so calls
// whose finalization never ran do not accumulate.
type MemoryStore struct {
	cache *cache.Cache
	mu    sync.Mutex
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryStore{
		cache: cache.New(ttl, ttl/2),
		now:   time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, callID, callerAddress string) (*models.CallSession, error) {
	const op = "MemoryStore.Create"

	if callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil)
	}
	s := models.NewCallSession(callID, callerAddress, m.now())

	m.mu.Lock()
	err := m.cache.Add(callID, s, cache.DefaultExpiration)
	m.mu.Unlock()
	if err != nil {
		return nil, ErrExists
	}

	return s.Clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, callID string) (*models.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(callID)
	if !ok {
		return nil, utils.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, callID string, fn func(*models.CallSession) error) (*models.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.lookup(callID)
	if !ok {
		return nil, utils.ErrNotFound
	}
	next := s.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.cache.Set(callID, next, cache.DefaultExpiration)
	return next.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *models.CallSession) error {
	if s == nil || s.CallID == "" {
		return utils.E(utils.CodeInvalidArgument, "MemoryStore.Put", "session with call_id is required", nil)
	}
	m.mu.Lock()
	m.cache.Set(s.CallID, s.Clone(), cache.DefaultExpiration)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, callID string) error {
	m.mu.Lock()
	m.cache.Delete(callID)
	m.mu.Unlock()
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}

func (m *MemoryStore) lookup(callID string) (*models.CallSession, bool) {
	x, found := m.cache.Get(callID)
	if !found {
		return nil, false
	}
	s, ok := x.(*models.CallSession)
	return s, ok
}
