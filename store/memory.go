package store

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"captchaSolver/models"
)

// MemoryStore keeps tasks in an in-process TTL cache. It backs tests and
// single-instance deployments that run without Redis; expiry covers tasks
// orphaned in processing by a crashed worker.
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *models.Task]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *models.Task](ttl),
		ttlcache.WithDisableTouchOnHit[string, *models.Task](),
	)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Create(ctx context.Context, task *models.Task) error {
	s.set(task)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, task *models.Task) error {
	s.set(task)
	return nil
}

// set stores a copy so callers can keep mutating their Task without racing
// concurrent pollers.
func (s *MemoryStore) set(task *models.Task) {
	copied := *task
	s.cache.Set(task.ID, &copied, ttlcache.DefaultTTL)
}

func (s *MemoryStore) Take(ctx context.Context, id string) (*models.Task, error) {
	// Read and conditional delete must be one logical step, same contract
	// as the Redis Lua script.
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrTaskNotFound
	}

	task := *item.Value()
	if task.Terminal() {
		s.cache.Delete(id)
	}
	return &task, nil
}

func (s *MemoryStore) CountActive(ctx context.Context) (int, error) {
	return s.cache.Len(), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
